package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

func TestDigestRendersTicketBlock(t *testing.T) {
	d := &Digest{}
	d.AddHeader(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	d.AddTechnician("petrov")
	d.AddTicket(domain.Ticket{
		SiteNumber:  "17",
		SiteName:    "Substation north",
		SiteAddress: "Lenina 5",
		Defect:      "*** pump failure",
		ReportedBy:  "smirnova",
		TakenBy:     "dispatcher",
		SubmittedAt: "27.08.2026 18:45:00",
	})

	out := d.String()
	assert.Contains(t, out, "<b>Emergency tickets 28.08.2026</b>")
	assert.Contains(t, out, "<b>petrov</b>")
	assert.Contains(t, out, "17\r\nSubstation north Lenina 5")
	assert.Contains(t, out, "<code>*** pump failure</code>")
	assert.Contains(t, out, "<ins>Reported by: smirnova (dispatcher)</ins>")
	assert.Contains(t, out, "<ins>Submitted: 27.08.2026 18:45:00</ins>")

	// The legacy digests used CRLF line breaks; no bare LF should appear.
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestDigestCountsTechnicianRuns(t *testing.T) {
	d := &Digest{}
	assert.Equal(t, 0, d.Runs())

	d.AddTechnician("a")
	d.AddTechnician("b")
	assert.Equal(t, 2, d.Runs())
}

func TestDigestStampGeneratedAt(t *testing.T) {
	d := &Digest{}
	d.StampGeneratedAt(time.Date(2026, 8, 28, 9, 15, 30, 0, time.UTC))
	assert.Contains(t, d.String(), "<ins>Report generated: 28.08.2026 09:15:30</ins>")
}
