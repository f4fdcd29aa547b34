package ports

import (
	"context"
	"time"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

// TicketGateway is the port to the dispatch board's REST surface. The
// board owns every ticket record; all mutations here are last-write-wins.
type TicketGateway interface {
	// ListOpenTickets returns operator-submitted tickets that are due on
	// the current date and not finished, sorted by technician name.
	ListOpenTickets(ctx context.Context) ([]domain.Ticket, error)

	// ListTechnicianTickets returns a technician's unfinished tickets.
	ListTechnicianTickets(ctx context.Context, technician string) ([]domain.Ticket, error)

	// GetTicket fetches one ticket by its absolute number. A ticket that
	// no longer exists on the board yields apperrors.ErrTicketNotFound.
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)

	AcceptTicket(ctx context.Context, id string) error
	RescheduleTicket(ctx context.Context, id string, at time.Time) error
	FinishTicket(ctx context.Context, id string) error
	SetResolution(ctx context.Context, id, text string) error
	DeleteTicket(ctx context.Context, id string) error

	// ValidateTechnicianCredentials checks a mobile-app account against
	// the board's technician table.
	ValidateTechnicianCredentials(ctx context.Context, username, password string) (bool, error)
}

// Button is one inline action button. The payload is encoded to its wire
// form only inside the Telegram adapter.
type Button struct {
	Label   string
	Payload domain.CallbackPayload
}

// MessageChannel is the port to the messaging system. Delivery is
// best-effort; there is no exactly-once guarantee.
type MessageChannel interface {
	// SendText delivers a text message. html selects HTML formatting.
	SendText(ctx context.Context, chatID int64, text string, html bool) error

	// SendTextWithButtons delivers a text message with inline buttons,
	// one slice per keyboard row.
	SendTextWithButtons(ctx context.Context, chatID int64, text string, html bool, rows [][]Button) error

	// SendDocument delivers a file from the local filesystem.
	SendDocument(ctx context.Context, chatID int64, path string) error

	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// ClearButtons removes the inline keyboard from a sent message so a
	// button cannot be pressed twice.
	ClearButtons(ctx context.Context, chatID int64, messageID int) error
}

// UserDirectory stores the chat-to-technician registration records.
type UserDirectory interface {
	IsRegistered(ctx context.Context, chatID int64) (bool, error)
	Register(ctx context.Context, user domain.RegisteredUser) error

	// FindByChat returns apperrors.ErrUserNotFound for unknown chats.
	FindByChat(ctx context.Context, chatID int64) (*domain.RegisteredUser, error)

	// FindByTechnician resolves a board technician name to a registered
	// chat. apperrors.ErrUserNotFound when no chat is linked.
	FindByTechnician(ctx context.Context, technician string) (*domain.RegisteredUser, error)

	SetStatus(ctx context.Context, chatID int64, status domain.UserStatus) error
}

// SessionStore persists per-chat dialog state across restarts. Put is a
// single upsert so concurrent handlers for the same chat never observe a
// partial update.
type SessionStore interface {
	// Get returns an idle session with an empty data bag when the chat
	// has no stored state.
	Get(ctx context.Context, chatID int64) (domain.Session, error)
	Put(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context, chatID int64) error
}
