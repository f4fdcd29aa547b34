package domain

import "time"

// UserStatus marks a registered chat as enabled or disabled.
type UserStatus int

const (
	UserInactive UserStatus = 0
	UserActive   UserStatus = 1
)

// RegisteredUser links a Telegram chat to a technician account on the
// dispatch board. The technician name is the shared identifier between
// the board's ticket records and the bot's registration records.
type RegisteredUser struct {
	ChatID     int64
	FirstName  string
	LastName   string
	Username   string
	Status     UserStatus
	Technician string
	CreatedAt  time.Time
}

// Active reports whether the user may use personal bot features.
func (u RegisteredUser) Active() bool {
	return u.Status == UserActive
}

// HasTechnician reports whether the chat is linked to a board technician.
func (u RegisteredUser) HasTechnician() bool {
	return u.Technician != ""
}
