package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// TelegramLink is a one-time code that binds a chat to a user.
type TelegramLink struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

type TelegramLinkRepository interface {
	Create(ctx context.Context, userID int64, code string, expiresAt time.Time) (*TelegramLink, error)
	// Consume marks an unused, unexpired code as used. Anything else is ErrNotFound.
	Consume(ctx context.Context, code string, now time.Time) (*TelegramLink, error)
}

type telegramLinkRepository struct{ db *sqlx.DB }

func NewTelegramLinkRepository(db *sqlx.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

func (r *telegramLinkRepository) Create(ctx context.Context, userID int64, code string, expiresAt time.Time) (*TelegramLink, error) {
	var l TelegramLink
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO telegram_links (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, code, expires_at, used, created_at
	`, userID, code, expiresAt).StructScan(&l)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *telegramLinkRepository) Consume(ctx context.Context, code string, now time.Time) (*TelegramLink, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var l TelegramLink
	err = tx.GetContext(ctx, &l, `
		SELECT id, user_id, code, expires_at, used, created_at
		FROM telegram_links
		WHERE code = $1
		FOR UPDATE
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if l.Used || now.After(l.ExpiresAt) {
		return nil, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE telegram_links SET used = TRUE WHERE id = $1`, l.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	l.Used = true
	return &l, nil
}
