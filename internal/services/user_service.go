package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strings"
	"time"

	"teamtasks/internal/apperr"
	"teamtasks/internal/authz"
	"teamtasks/internal/models"
	"teamtasks/internal/repositories"
)

// Session is what register and login hand back to the client.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type UserService interface {
	Register(ctx context.Context, role models.Role, req models.RegisterRequest) (*Session, error)
	Login(ctx context.Context, role models.Role, email, password string) (*Session, error)
	CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error)

	// Identity resolves a token subject; unknown ids are not found.
	Identity(ctx context.Context, id int64) (*models.User, error)
	ListAssignable(ctx context.Context, actor *models.User) ([]models.Assignable, error)
	ChangePassword(ctx context.Context, actor *models.User, current, next string) error
	LinkTelegram(ctx context.Context, actor *models.User, chatID int64) error

	Notifications(ctx context.Context, actor *models.User) (models.Notifications, error)
	MarkNotificationRead(ctx context.Context, actor *models.User, index int) error
}

type userService struct {
	repo        repositories.UserRepository
	authService AuthService
	adminKey    string
	now         func() time.Time
}

// NewUserService wires identity operations. An empty adminKey disables
// self-service admin registration.
func NewUserService(repo repositories.UserRepository, authService AuthService, adminKey string) UserService {
	return &userService{
		repo:        repo,
		authService: authService,
		adminKey:    adminKey,
		now:         time.Now,
	}
}

var errInvalidCredentials = apperr.Unauthorized("invalid credentials")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) create(ctx context.Context, role models.Role, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if email == "" {
		return nil, apperr.BadRequest("email is required")
	}
	if len(password) < 6 {
		return nil, apperr.BadRequest("password must be at least 6 characters")
	}
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, apperr.BadRequest("user already exists")
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

func (s *userService) session(user *models.User) (*Session, error) {
	token, exp, err := s.authService.IssueToken(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: user.Public()}, nil
}

func (s *userService) Register(ctx context.Context, role models.Role, req models.RegisterRequest) (*Session, error) {
	if !role.Valid() {
		return nil, apperr.NotFound("unknown role")
	}
	if role == models.RoleAdmin {
		if s.adminKey == "" {
			return nil, apperr.Forbidden("admin registration is disabled")
		}
		if subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(s.adminKey)) != 1 {
			return nil, apperr.Forbidden("invalid admin key")
		}
	}
	user, err := s.create(ctx, role, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	log.Printf("[user][register][ok] id=%d role=%s", user.ID, user.Role)
	return s.session(user)
}

func (s *userService) Login(ctx context.Context, role models.Role, email, password string) (*Session, error) {
	if !role.Valid() {
		return nil, apperr.NotFound("unknown role")
	}
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if user.Role != role || !s.authService.CheckPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	return s.session(user)
}

func (s *userService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	user, err := s.create(ctx, models.RoleAdmin, name, email, password)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *userService) Identity(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return user.Public(), nil
}

func (s *userService) ListAssignable(ctx context.Context, actor *models.User) ([]models.Assignable, error) {
	if err := authz.CanListUsers(actor); err != nil {
		return nil, err
	}
	users, err := s.repo.ListByRole(ctx, models.RoleUser)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *userService) ChangePassword(ctx context.Context, actor *models.User, current, next string) error {
	if actor == nil {
		return apperr.Unauthorized("token required")
	}
	if len(next) < 6 {
		return apperr.BadRequest("password must be at least 6 characters")
	}
	stored, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}
	if !s.authService.CheckPassword(stored.PasswordHash, current) {
		return apperr.BadRequest("current password is incorrect")
	}
	hash, err := s.authService.HashPassword(next)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, actor.ID, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *userService) LinkTelegram(ctx context.Context, actor *models.User, chatID int64) error {
	if actor == nil {
		return apperr.Unauthorized("token required")
	}
	if err := s.repo.SetTelegramChat(ctx, actor.ID, chatID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *userService) Notifications(ctx context.Context, actor *models.User) (models.Notifications, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("token required")
	}
	list, err := s.repo.ListNotifications(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	if list == nil {
		list = models.Notifications{}
	}
	return list, nil
}

func (s *userService) MarkNotificationRead(ctx context.Context, actor *models.User, index int) error {
	if actor == nil {
		return apperr.Unauthorized("token required")
	}
	if err := s.repo.MarkNotificationRead(ctx, actor.ID, index); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal(err)
	}
	return nil
}
