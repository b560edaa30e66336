package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"

	"teamtasks/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.Assignable, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SetTelegramChat(ctx context.Context, id int64, chatID int64) error

	// inbox
	AppendNotification(ctx context.Context, userID int64, n models.Notification) (int, error)
	ListNotifications(ctx context.Context, userID int64) (models.Notifications, error)
	MarkNotificationRead(ctx context.Context, userID int64, index int) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role,
	COALESCE(telegram_chat_id, 0) AS telegram_chat_id, notifications, created_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (name, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`
	err := r.db.QueryRowxContext(ctx, q,
		user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	).Scan(&user.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := r.db.GetContext(ctx, u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]models.Assignable, error) {
	out := []models.Assignable{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, name, email FROM users WHERE role = $1 ORDER BY name, id`, role)
	return out, err
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *userRepository) SetTelegramChat(ctx context.Context, id int64, chatID int64) error {
	var v any
	if chatID != 0 {
		v = chatID
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET telegram_chat_id=$1 WHERE id=$2`, v, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// AppendNotification appends in a single statement so concurrent appends
// never lose entries. It returns the position of the new entry.
func (r *userRepository) AppendNotification(ctx context.Context, userID int64, n models.Notification) (int, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	const q = `
		UPDATE users
		SET notifications = notifications || jsonb_build_array($1::jsonb)
		WHERE id = $2
		RETURNING jsonb_array_length(notifications) - 1`
	var idx int
	if err := r.db.QueryRowxContext(ctx, q, string(payload), userID).Scan(&idx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return idx, nil
}

func (r *userRepository) ListNotifications(ctx context.Context, userID int64) (models.Notifications, error) {
	var out models.Notifications
	err := r.db.QueryRowxContext(ctx, `SELECT notifications FROM users WHERE id = $1`, userID).Scan(&out)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead flips the read flag of the entry at index. Out of
// range indexes report ErrNotFound.
func (r *userRepository) MarkNotificationRead(ctx context.Context, userID int64, index int) error {
	if index < 0 {
		return ErrNotFound
	}
	const q = `
		UPDATE users
		SET notifications = jsonb_set(notifications, ARRAY[$1::text, 'read'], 'true'::jsonb)
		WHERE id = $2 AND $3 < jsonb_array_length(notifications)`
	res, err := r.db.ExecContext(ctx, q, strconv.Itoa(index), userID, index)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
