package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/models"
	"teamtasks/internal/services"
)

type AuthHandler struct {
	userService services.UserService
}

func NewAuthHandler(userService services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// roleParam maps the :role path segment ("admin" or "user") to a Role.
func roleParam(c *gin.Context) (models.Role, bool) {
	switch c.Param("role") {
	case "admin":
		return models.RoleAdmin, true
	case "user":
		return models.RoleUser, true
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "unknown role"})
	return "", false
}

// Register
// @Summary      Register an account
// @Description  role is admin or user. Admin registration needs adminKey.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        role  path      string                  true  "admin | user"
// @Param        body  body      models.RegisterRequest  true  "account"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /auth/{role}/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "auth.register", "name, valid email and a password of at least 6 characters are required")
		return
	}
	sess, err := h.userService.Register(c.Request.Context(), role, req)
	if err != nil {
		writeError(c, "auth.register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "registration successful",
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt,
		"user":      sess.User,
	})
}

// Login
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        role  path      string               true  "admin | user"
// @Param        body  body      models.LoginRequest  true  "credentials"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/{role}/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "auth.login", "email and password are required")
		return
	}
	sess, err := h.userService.Login(c.Request.Context(), role, req.Email, req.Password)
	if err != nil {
		writeError(c, "auth.login", err)
		return
	}
	log.Printf("[auth][login][ok] id=%d role=%s", sess.User.ID, sess.User.Role)
	c.JSON(http.StatusOK, gin.H{
		"message":   "login successful",
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt,
		"user":      sess.User,
	})
}

// Me
// @Summary      Current identity
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

// ChangePassword
// @Summary      Change password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.ChangePasswordRequest  true  "passwords"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "auth.password", "current password and a new password of at least 6 characters are required")
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), currentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, "auth.password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
