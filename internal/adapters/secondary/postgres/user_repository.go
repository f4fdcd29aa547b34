package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

// UserRepository stores chat registrations in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserDirectory = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) IsRegistered(ctx context.Context, chatID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM registered_users WHERE chat_id = $1)`,
		chatID,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) Register(ctx context.Context, user domain.RegisteredUser) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registered_users (chat_id, first_name, last_name, username, status, technician)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (chat_id) DO UPDATE SET
		   first_name = EXCLUDED.first_name,
		   last_name  = EXCLUDED.last_name,
		   username   = EXCLUDED.username,
		   status     = EXCLUDED.status,
		   technician = EXCLUDED.technician`,
		user.ChatID, user.FirstName, user.LastName, user.Username, user.Status, user.Technician,
	)
	return err
}

func (r *UserRepository) FindByChat(ctx context.Context, chatID int64) (*domain.RegisteredUser, error) {
	return r.findOne(ctx,
		`SELECT chat_id, first_name, last_name, username, status, technician, created_at
		 FROM registered_users WHERE chat_id = $1`,
		chatID,
	)
}

func (r *UserRepository) FindByTechnician(ctx context.Context, technician string) (*domain.RegisteredUser, error) {
	return r.findOne(ctx,
		`SELECT chat_id, first_name, last_name, username, status, technician, created_at
		 FROM registered_users WHERE technician = $1 AND status = $2`,
		technician, domain.UserActive,
	)
}

func (r *UserRepository) SetStatus(ctx context.Context, chatID int64, status domain.UserStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registered_users SET status = $1 WHERE chat_id = $2`,
		status, chatID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*domain.RegisteredUser, error) {
	var user domain.RegisteredUser
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ChatID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Status,
		&user.Technician,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
