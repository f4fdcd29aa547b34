package domain

// DialogState names one state of the per-chat conversation machine.
type DialogState string

const (
	StateIdle                 DialogState = "idle"
	StateAwaitingUsername     DialogState = "awaiting_username"
	StateAwaitingPassword     DialogState = "awaiting_password"
	StateAwaitingCloseReason  DialogState = "awaiting_close_reason"
	StateAwaitingCloseConfirm DialogState = "awaiting_close_confirm"
)

// Data bag keys carried across dialog steps.
const (
	DataUsername    = "username"
	DataTicketID    = "ticket_id"
	DataCloseReason = "close_reason"
)

// ValidState reports whether s is a member of the closed state set.
// Used when decoding persisted sessions.
func ValidState(s DialogState) bool {
	switch s {
	case StateIdle, StateAwaitingUsername, StateAwaitingPassword,
		StateAwaitingCloseReason, StateAwaitingCloseConfirm:
		return true
	}
	return false
}

// Session is the durable per-chat dialog state. At most one active state
// exists per chat; starting a new flow resets any previous one.
type Session struct {
	ChatID int64
	State  DialogState
	Data   map[string]string
}

// NewSession returns an idle session with an empty data bag.
func NewSession(chatID int64) Session {
	return Session{ChatID: chatID, State: StateIdle, Data: map[string]string{}}
}

// Idle reports whether no dialog flow is in progress.
func (s Session) Idle() bool {
	return s.State == StateIdle || s.State == ""
}

// Reset returns the session to idle and empties the data bag.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Data = map[string]string{}
}

// Set stores one value in the data bag, allocating it if needed.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[key] = value
}
