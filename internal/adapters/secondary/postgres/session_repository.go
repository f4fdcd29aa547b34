package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

// SessionRepository persists per-chat dialog state, so an in-flight
// signup or ticket close survives a bot restart.
type SessionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Get loads the chat's session. A missing row or an unrecognized stored
// state yields a fresh idle session rather than an error.
func (r *SessionRepository) Get(ctx context.Context, chatID int64) (domain.Session, error) {
	var (
		state string
		data  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT state, data FROM dialog_sessions WHERE chat_id = $1`,
		chatID,
	).Scan(&state, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewSession(chatID), nil
		}
		return domain.Session{}, err
	}

	if !domain.ValidState(domain.DialogState(state)) {
		return domain.NewSession(chatID), nil
	}

	session := domain.Session{
		ChatID: chatID,
		State:  domain.DialogState(state),
		Data:   map[string]string{},
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &session.Data); err != nil {
			return domain.NewSession(chatID), nil
		}
	}
	return session, nil
}

func (r *SessionRepository) Put(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session.Data)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO dialog_sessions (chat_id, state, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (chat_id) DO UPDATE SET
		   state      = EXCLUDED.state,
		   data       = EXCLUDED.data,
		   updated_at = now()`,
		session.ChatID, string(session.State), data,
	)
	return err
}

func (r *SessionRepository) Clear(ctx context.Context, chatID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM dialog_sessions WHERE chat_id = $1`,
		chatID,
	)
	return err
}
