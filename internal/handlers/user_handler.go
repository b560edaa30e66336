package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers
// @Summary      List assignable users
// @Description  Admin only. Returns id, name and email of every user with role User.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListAssignable(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, "user.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Notifications
// @Summary      Caller's notifications
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /users/notifications [get]
func (h *UserHandler) Notifications(c *gin.Context) {
	list, err := h.userService.Notifications(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, "user.notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkNotificationRead
// @Summary      Mark a notification read
// @Description  index is the position in the caller's notification list.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        index  path      int  true  "notification index"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /users/notifications/{index}/read [patch]
func (h *UserHandler) MarkNotificationRead(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "user.notification_read", "invalid index")
		return
	}
	if err := h.userService.MarkNotificationRead(c.Request.Context(), currentUser(c), index); err != nil {
		writeError(c, "user.notification_read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

type linkTelegramRequest struct {
	ChatID int64 `json:"chatId"`
}

// LinkTelegram
// @Summary      Link or unlink a Telegram chat
// @Description  chatId 0 unlinks. Linked chats receive a copy of assignment notices.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      linkTelegramRequest  true  "chat"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /users/me/telegram [put]
func (h *UserHandler) LinkTelegram(c *gin.Context) {
	var req linkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user.telegram", "invalid request body")
		return
	}
	if err := h.userService.LinkTelegram(c.Request.Context(), currentUser(c), req.ChatID); err != nil {
		writeError(c, "user.telegram", err)
		return
	}
	msg := "telegram chat linked"
	if req.ChatID == 0 {
		msg = "telegram chat unlinked"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
