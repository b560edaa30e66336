package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "teamtasks/docs"

	"teamtasks/internal/config"
	"teamtasks/internal/handlers"
	"teamtasks/internal/middleware"
	"teamtasks/internal/models"
	"teamtasks/internal/pdf"
	"teamtasks/internal/realtime"
	"teamtasks/internal/repositories"
	"teamtasks/internal/routes"
	"teamtasks/internal/services"
)

// Store bundles the repositories behind the configured driver.
type Store struct {
	Users repositories.UserRepository
	Tasks repositories.TaskRepository
	Links repositories.TelegramLinkRepository
	db    *sqlx.DB
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStore connects to Postgres (or builds the in-memory store) and
// applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Printf("[db] using in-memory store, data is lost on exit")
		mem := repositories.NewMemory()
		return &Store{Users: mem.Users(), Tasks: mem.Tasks(), Links: mem.TelegramLinks()}, nil
	}

	db, err := sqlx.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := repositories.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		Users: repositories.NewUserRepository(db),
		Tasks: repositories.NewTaskRepository(db.DB),
		Links: repositories.NewTelegramLinkRepository(db),
		db:    db,
	}, nil
}

// App is the assembled HTTP application.
type App struct {
	Router     *gin.Engine
	Dispatcher *services.NotificationDispatcher
	Users      services.UserService
}

// Build wires services and routes over store.
func Build(cfg *config.Config, store *Store) (*App, error) {
	authService, err := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, err
	}
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	// the Telegram mirror is optional; a bad token only disables it
	var (
		chat    services.ChatNotifier
		botName string
	)
	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramService(cfg.Telegram.BotToken)
		if err != nil {
			log.Printf("[tg][disabled] %v", err)
		} else {
			chat = tg
			botName = tg.Username()
		}
	}

	hub := realtime.NewHub()
	dispatcher := services.NewNotificationDispatcher(store.Users, emailService, chat, hub)
	reports := pdf.NewReportGenerator(cfg.Reports.FontPath)

	userService := services.NewUserService(store.Users, authService, cfg.Auth.AdminRegistrationKey)
	taskService := services.NewTaskService(store.Tasks, store.Users, dispatcher, reports)
	linkService := services.NewTelegramLinkService(store.Links, store.Users, store.Tasks, chat, botName)

	var pinger handlers.Pinger
	if store.db != nil {
		pinger = store.db
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:   handlers.NewAuthHandler(userService),
		Users:  handlers.NewUserHandler(userService),
		Tasks:  handlers.NewTaskHandler(taskService),
		Health: handlers.NewHealthHandler(pinger),
		Stream: realtime.NewStreamHandler(hub, cfg.Server.AllowedOrigins),

		Integrations: handlers.NewIntegrationsHandler(linkService, cfg.Telegram.WebhookSecret),
	}, authService, userService)

	return &App{Router: router, Dispatcher: dispatcher, Users: userService}, nil
}

// Run serves until ctx is cancelled, then drains requests and pending
// notification deliveries.
func Run(ctx context.Context, cfg *config.Config) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[db][close][err] %v", err)
		}
	}()

	a, err := Build(cfg, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[http] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Printf("[http] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http][shutdown][err] %v", err)
	}
	a.Dispatcher.Wait()
	return nil
}

// Migrate applies pending schema migrations and exits.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("nothing to migrate for the memory driver")
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	return store.Close()
}

// CreateAdmin provisions an administrator without the registration key.
func CreateAdmin(ctx context.Context, cfg *config.Config, name, email, password string) (*models.User, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	authService, err := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, err
	}
	return services.NewUserService(store.Users, authService, "").CreateAdmin(ctx, name, email, password)
}
