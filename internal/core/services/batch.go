package services

import (
	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

// digestFlushThreshold is the number of technician runs folded into one
// broadcast digest before it is flushed and a fresh one started.
const digestFlushThreshold = 3

// TechnicianRun is one contiguous run of tickets sharing a technician.
type TechnicianRun struct {
	Technician string
	Tickets    []domain.Ticket
}

// GroupByTechnician partitions a ticket sequence into contiguous runs by
// technician name. The input must already be sorted by technician (the
// gateway guarantees it); this function does not sort.
func GroupByTechnician(tickets []domain.Ticket) []TechnicianRun {
	var runs []TechnicianRun
	for _, t := range tickets {
		if n := len(runs); n > 0 && runs[n-1].Technician == t.Technician {
			runs[n-1].Tickets = append(runs[n-1].Tickets, t)
			continue
		}
		runs = append(runs, TechnicianRun{Technician: t.Technician, Tickets: []domain.Ticket{t}})
	}
	return runs
}
