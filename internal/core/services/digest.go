package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

// lineBreak is the separator historically used in digests; kept so the
// rendered messages stay byte-identical for existing chats.
const lineBreak = "\r\n"

// Digest accumulates the HTML text of one report message. The zero value
// is an empty digest with no header; broadcast digests call AddHeader
// first, personal digests start directly with the technician name.
type Digest struct {
	b    strings.Builder
	runs int
}

// AddHeader writes the bold report title with the report date.
func (d *Digest) AddHeader(day time.Time) {
	fmt.Fprintf(&d.b, "<b>Emergency tickets %s</b>", day.Format(domain.DateLayout))
	d.AddBlankLine()
	d.AddBlankLine()
}

// AddTechnician starts a technician run with a bold name header.
func (d *Digest) AddTechnician(name string) {
	d.runs++
	fmt.Fprintf(&d.b, "<b>%s</b>", name)
	d.AddBlankLine()
}

// AddTicket appends one ticket block: site, defect, reporter, submission
// time.
func (d *Digest) AddTicket(t domain.Ticket) {
	fmt.Fprintf(&d.b, "%s%s%s %s%s<code>%s</code>",
		t.SiteNumber, lineBreak, t.SiteName, t.SiteAddress, lineBreak, t.Defect)
	d.AddBlankLine()
	fmt.Fprintf(&d.b, "<ins>Reported by: %s (%s)</ins>", t.ReportedBy, t.TakenBy)
	d.AddBlankLine()
	fmt.Fprintf(&d.b, "<ins>Submitted: %s</ins>", t.SubmittedAt)
	d.AddBlankLine()
}

// AddBlankLine appends one empty line.
func (d *Digest) AddBlankLine() {
	d.b.WriteString(lineBreak)
}

// StampGeneratedAt appends the report generation timestamp.
func (d *Digest) StampGeneratedAt(ts time.Time) {
	d.AddBlankLine()
	fmt.Fprintf(&d.b, "<ins>Report generated: %s</ins>", ts.Format(domain.DateTimeLayout))
}

// Runs returns the number of technician runs folded into this digest.
func (d *Digest) Runs() int {
	return d.runs
}

// String returns the accumulated message text.
func (d *Digest) String() string {
	return d.b.String()
}
