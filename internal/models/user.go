package models

import "time"

// Role is the coarse permission level of an identity.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a registered identity. Notifications are embedded and ordered by
// arrival; their position is the only handle clients have on them.
type User struct {
	ID             int64         `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	Email          string        `json:"email" db:"email"`
	PasswordHash   string        `json:"-" db:"password_hash"`
	Role           Role          `json:"role" db:"role"`
	TelegramChatID int64         `json:"telegramChatId,omitempty" db:"telegram_chat_id"`
	Notifications  Notifications `json:"-" db:"notifications"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}

// Public strips credentials and the inbox.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	cp.Notifications = nil
	return &cp
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserRef is the expanded form of a user reference embedded in a task.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Assignable is the listing shape of GET /users.
type Assignable struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	AdminKey string `json:"adminKey"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}
