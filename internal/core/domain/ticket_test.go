package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketDueOn(t *testing.T) {
	day := time.Date(2026, 8, 28, 14, 30, 0, 0, time.Local)

	tests := []struct {
		name   string
		ticket Ticket
		want   bool
	}{
		{
			name:   "scheduled earlier the same day",
			ticket: Ticket{Status: StatusOpen, ScheduledAt: "28.08.2026 09:00:00"},
			want:   true,
		},
		{
			name:   "scheduled later the same day still counts",
			ticket: Ticket{Status: StatusOpen, ScheduledAt: "28.08.2026 23:00:00"},
			want:   true,
		},
		{
			name:   "overdue from last week",
			ticket: Ticket{Status: StatusAccepted, ScheduledAt: "21.08.2026 10:00:00"},
			want:   true,
		},
		{
			name:   "scheduled tomorrow",
			ticket: Ticket{Status: StatusOpen, ScheduledAt: "29.08.2026 00:30:00"},
			want:   false,
		},
		{
			name:   "finished tickets never due",
			ticket: Ticket{Status: StatusFinished, ScheduledAt: "01.01.2026 10:00:00"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ticket.DueOn(day)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTicketDueOnBadTimestamp(t *testing.T) {
	ticket := Ticket{Status: StatusOpen, ScheduledAt: "2026-08-28T09:00:00Z"}
	_, err := ticket.DueOn(time.Now())
	assert.Error(t, err)
}

func TestTicketUnfinished(t *testing.T) {
	assert.True(t, Ticket{Status: StatusOpen}.Unfinished())
	assert.True(t, Ticket{Status: StatusAccepted}.Unfinished())
	assert.False(t, Ticket{Status: StatusFinished}.Unfinished())
}
