package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CallbackKind tags a button-press payload. The wire strings are part of
// the deployed button vocabulary: digests and menus already sent to chats
// keep working across releases as long as these do not change.
type CallbackKind string

const (
	CallbackPickTicket  CallbackKind = "task"
	CallbackViewTicket  CallbackKind = "view_act"
	CallbackCloseTicket CallbackKind = "close_action"
	CallbackConfirm     CallbackKind = "closing_act_accept"
	CallbackEditReason  CallbackKind = "closing_act_edit"
	CallbackCancelClose CallbackKind = "closing_act_cancel"
	CallbackAcknowledge CallbackKind = "accept_action"
)

// ErrBadCallback marks an inbound payload that does not parse.
var ErrBadCallback = errors.New("malformed callback payload")

// CallbackPayload is the structured form of a button payload. String
// encoding and decoding happen only at the Telegram boundary; core logic
// works with this type.
type CallbackPayload struct {
	Kind       CallbackKind
	TicketID   string
	ChatID     int64
	Technician string
}

// Encode renders the payload in the positional wire grammar:
// kind|ticketID|chatID, kind|technician, or a bare kind.
func (p CallbackPayload) Encode() string {
	switch p.Kind {
	case CallbackPickTicket, CallbackViewTicket, CallbackCloseTicket:
		return fmt.Sprintf("%s|%s|%d", p.Kind, p.TicketID, p.ChatID)
	case CallbackAcknowledge:
		return fmt.Sprintf("%s|%s", p.Kind, p.Technician)
	default:
		return string(p.Kind)
	}
}

// ParseCallbackPayload decodes a wire payload into its structured form.
func ParseCallbackPayload(data string) (CallbackPayload, error) {
	parts := strings.Split(data, "|")
	kind := CallbackKind(parts[0])
	switch kind {
	case CallbackPickTicket, CallbackViewTicket, CallbackCloseTicket:
		if len(parts) != 3 {
			return CallbackPayload{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		chatID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return CallbackPayload{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		return CallbackPayload{Kind: kind, TicketID: parts[1], ChatID: chatID}, nil
	case CallbackAcknowledge:
		if len(parts) != 2 || parts[1] == "" {
			return CallbackPayload{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		return CallbackPayload{Kind: kind, Technician: parts[1]}, nil
	case CallbackConfirm, CallbackEditReason, CallbackCancelClose:
		if len(parts) != 1 {
			return CallbackPayload{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		return CallbackPayload{Kind: kind}, nil
	default:
		return CallbackPayload{}, fmt.Errorf("%w: unknown kind %q", ErrBadCallback, parts[0])
	}
}
