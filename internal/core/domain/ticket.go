package domain

import (
	"time"
)

// Layouts used by the dispatch board's REST API for date and datetime
// fields. All ticket timestamps arrive and are rendered in these formats.
const (
	DateLayout     = "02.01.2006"
	DateTimeLayout = "02.01.2006 15:04:05"
)

// Status mirrors the board's numeric technician-status codes.
type Status int

const (
	StatusOpen     Status = 0
	StatusAccepted Status = 1
	StatusFinished Status = 3
)

// Ticket is an in-memory copy of one work order on the dispatch board.
// The board owns the record; the bot never persists tickets locally.
type Ticket struct {
	ID          string // absolute ticket number, as returned by the board
	Technician  string
	Status      Status
	Defect      string
	SiteName    string
	SiteNumber  string
	SiteAddress string
	ReportedBy  string
	TakenBy     string
	SubmittedAt string // board datetime, DateTimeLayout
	ScheduledAt string // board datetime, DateTimeLayout
	AcceptedAt  string
	Resolution  string
}

// ScheduledTime parses the ticket's scheduled datetime.
func (t Ticket) ScheduledTime() (time.Time, error) {
	return time.Parse(DateTimeLayout, t.ScheduledAt)
}

// Unfinished reports whether the ticket still needs work.
func (t Ticket) Unfinished() bool {
	return t.Status != StatusFinished
}

// DueOn reports whether the ticket belongs in a report generated on the
// given day: scheduled on or before that date and not yet finished.
func (t Ticket) DueOn(day time.Time) (bool, error) {
	if !t.Unfinished() {
		return false, nil
	}
	scheduled, err := t.ScheduledTime()
	if err != nil {
		return false, err
	}
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	sy, sm, sd := scheduled.Date()
	scheduledDay := time.Date(sy, sm, sd, 0, 0, 0, 0, day.Location())
	return !scheduledDay.After(dayStart), nil
}
