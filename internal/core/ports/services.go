package ports

import (
	"context"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

// Message carries the context of one inbound Telegram message. It is
// built by the primary adapter; core services never see raw updates.
type Message struct {
	ChatID    int64
	ChatType  string // "private", "group" or "supergroup"
	MessageID int
	UserID    int64
	FirstName string
	LastName  string
	Username  string
	Text      string
}

// Private reports whether the message arrived in a direct chat.
func (m Message) Private() bool {
	return m.ChatType == "private"
}

// Group reports whether the message arrived in a group or supergroup.
func (m Message) Group() bool {
	return m.ChatType == "group" || m.ChatType == "supergroup"
}

// DialogService drives the per-chat conversation state machine.
type DialogService interface {
	// HandleCommand processes a slash command (name without the slash).
	HandleCommand(ctx context.Context, name string, msg Message) error

	// HandleText processes a plain text message according to the chat's
	// current dialog state.
	HandleText(ctx context.Context, msg Message) error

	// HandleCallback processes a decoded button press. msg describes the
	// message the button was attached to.
	HandleCallback(ctx context.Context, msg Message, payload domain.CallbackPayload) error
}

// ReportService runs the scheduled report flows.
type ReportService interface {
	// BroadcastOpenTickets sends the grouped digest and the consolidated
	// spreadsheet to every broadcast recipient.
	BroadcastOpenTickets(ctx context.Context) error

	// SendPersonalDigests sends each registered technician their own
	// ticket digest with an acknowledge button.
	SendPersonalDigests(ctx context.Context) error
}
