package routes

import (
	"github.com/gin-gonic/gin"

	"teamtasks/internal/handlers"
	"teamtasks/internal/middleware"
	"teamtasks/internal/realtime"
	"teamtasks/internal/services"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Tasks        *handlers.TaskHandler
	Health       *handlers.HealthHandler
	Stream       *realtime.StreamHandler
	Integrations *handlers.IntegrationsHandler
}

// SetupRoutes mounts the API under /api. Everything except auth entry
// points and health goes through the credential gate.
func SetupRoutes(r *gin.Engine, h Handlers, tokens services.AuthService, identities middleware.IdentityResolver) *gin.Engine {
	api := r.Group("/api")

	// ---- public
	api.GET("/health", h.Health.Health)
	api.POST("/auth/:role/register", h.Auth.Register)
	api.POST("/auth/:role/login", h.Auth.Login)
	if h.Integrations != nil {
		api.POST("/integrations/telegram/webhook", h.Integrations.Webhook)
	}

	// ---- protected
	protected := api.Group("", middleware.Authenticate(tokens, identities))

	auth := protected.Group("/auth")
	{
		auth.GET("/me", h.Auth.Me)
		auth.PUT("/password", h.Auth.ChangePassword)
	}

	users := protected.Group("/users")
	{
		users.GET("", middleware.AdminOnly(), h.Users.ListUsers)
		users.GET("/notifications", h.Users.Notifications)
		users.PATCH("/notifications/:index/read", h.Users.MarkNotificationRead)
		users.PUT("/me/telegram", h.Users.LinkTelegram)
		if h.Integrations != nil {
			users.POST("/me/telegram/link", h.Integrations.RequestTelegramLink)
		}
		if h.Stream != nil {
			users.GET("/notifications/stream", h.Stream.Stream)
		}
	}

	tasks := protected.Group("/tasks")
	{
		tasks.POST("", middleware.AdminOnly(), h.Tasks.Create)
		tasks.GET("", middleware.AdminOnly(), h.Tasks.GetAll)
		tasks.GET("/my", h.Tasks.GetMine)
		tasks.GET("/report", middleware.AdminOnly(), h.Tasks.Report)
		tasks.GET("/:id", h.Tasks.GetByID)
		tasks.PUT("/:id", h.Tasks.Update)
		tasks.DELETE("/:id", middleware.AdminOnly(), h.Tasks.Delete)
	}

	return r
}
