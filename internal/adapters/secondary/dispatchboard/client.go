// Package dispatchboard implements the TicketGateway port against the
// dispatch board's table-access REST API. The board exposes three
// endpoints (api.table.get, api.table.edit, api.table.delete) taking the
// table name, a JSON filter and a JSON field list as query parameters;
// the remote-access token travels as the "pud" parameter.
package dispatchboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

const (
	endpointGet    = "api.table.get"
	endpointEdit   = "api.table.edit"
	endpointDelete = "api.table.delete"

	ticketsTable     = "zayavki"
	techniciansTable = "lkuser"

	tokenParam = "pud"
)

// Config holds the connection settings for the board.
type Config struct {
	Host  string
	Port  string
	Token string
	// DefectTemplate restricts the report pull to operator-submitted
	// tickets; their defect text starts with this marker.
	DefectTemplate string
}

// Client talks to the dispatch board.
type Client struct {
	http           *http.Client
	base           string
	token          string
	defectTemplate string
}

var _ ports.TicketGateway = (*Client)(nil)

// NewClient creates a board client. httpClient may be nil, in which case
// a client with a 30s timeout is used.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:           httpClient,
		base:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		token:          cfg.Token,
		defectTemplate: cfg.DefectTemplate,
	}
}

// boardTicket is the wire shape of one zayavki row. The board is loose
// about numeric vs. string encoding, hence flexString everywhere.
type boardTicket struct {
	ID          flexString `json:"n_abs"`
	Defect      flexString `json:"zay"`
	TakenBy     flexString `json:"prin"`
	SubmittedAt flexString `json:"timez"`
	SiteName    flexString `json:"nameobj"`
	SiteNumber  flexString `json:"numobj"`
	SiteAddress flexString `json:"addrobj"`
	Technician  flexString `json:"tehn"`
	ScheduledAt flexString `json:"timev"`
	ReportedBy  flexString `json:"who"`
	Status      flexInt    `json:"sttech"`
	AcceptedAt  flexString `json:"timer"`
	Resolution  flexString `json:"rez"`
}

func (b boardTicket) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:          string(b.ID),
		Technician:  string(b.Technician),
		Status:      domain.Status(b.Status),
		Defect:      string(b.Defect),
		SiteName:    string(b.SiteName),
		SiteNumber:  string(b.SiteNumber),
		SiteAddress: string(b.SiteAddress),
		ReportedBy:  string(b.ReportedBy),
		TakenBy:     string(b.TakenBy),
		SubmittedAt: string(b.SubmittedAt),
		ScheduledAt: string(b.ScheduledAt),
		AcceptedAt:  string(b.AcceptedAt),
		Resolution:  string(b.Resolution),
	}
}

// ListOpenTickets returns operator-submitted tickets due on the current
// date, sorted by technician name.
func (c *Client) ListOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	all, err := c.listUnfinished(ctx)
	if err != nil {
		return nil, err
	}
	today := time.Now()
	due := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		ok, err := t.DueOn(today)
		if err != nil {
			return nil, fmt.Errorf("ticket %s: bad scheduled time %q: %w", t.ID, t.ScheduledAt, err)
		}
		if ok {
			due = append(due, t)
		}
	}
	return due, nil
}

// ListTechnicianTickets returns the technician's unfinished tickets.
func (c *Client) ListTechnicianTickets(ctx context.Context, technician string) ([]domain.Ticket, error) {
	all, err := c.listUnfinished(ctx)
	if err != nil {
		return nil, err
	}
	var mine []domain.Ticket
	for _, t := range all {
		if t.Technician == technician && t.Unfinished() {
			mine = append(mine, t)
		}
	}
	return mine, nil
}

// GetTicket fetches one ticket by its absolute number.
func (c *Client) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	filter, err := encodeFilter(map[string]string{"n_abs": id})
	if err != nil {
		return nil, err
	}
	rows, err := c.get(ctx, url.Values{
		"name":   {ticketsTable},
		"filter": {filter},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrTicketNotFound
	}
	ticket := rows[0].toDomain()
	return &ticket, nil
}

// AcceptTicket sets the accepted status mark and stamps the acceptance
// time, mirroring the board's two-step edit.
func (c *Client) AcceptTicket(ctx context.Context, id string) error {
	if err := c.edit(ctx, id, "sttech", strconv.Itoa(int(domain.StatusAccepted))); err != nil {
		return err
	}
	return c.edit(ctx, id, "timer", time.Now().Format(domain.DateTimeLayout))
}

// RescheduleTicket moves the ticket's scheduled time.
func (c *Client) RescheduleTicket(ctx context.Context, id string, at time.Time) error {
	return c.edit(ctx, id, "timev", at.Format(domain.DateTimeLayout))
}

// FinishTicket marks the ticket finished.
func (c *Client) FinishTicket(ctx context.Context, id string) error {
	return c.edit(ctx, id, "sttech", strconv.Itoa(int(domain.StatusFinished)))
}

// SetResolution records the close-out text.
func (c *Client) SetResolution(ctx context.Context, id, text string) error {
	return c.edit(ctx, id, "rez", text)
}

// DeleteTicket removes the ticket record from the board.
func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	u := c.endpoint(endpointDelete, url.Values{
		"name":  {ticketsTable},
		"n_abs": {id},
	})
	return c.do(ctx, u, nil)
}

// boardAccount is the wire shape of one lkuser row.
type boardAccount struct {
	Name     flexString `json:"fio"`
	Password flexString `json:"pass"`
	Status   flexInt    `json:"status"`
}

// ValidateTechnicianCredentials checks a mobile-app account against the
// board's technician table.
func (c *Client) ValidateTechnicianCredentials(ctx context.Context, username, password string) (bool, error) {
	fields, err := encodeFields("fio", "n_abs", "status", "pass")
	if err != nil {
		return false, err
	}
	u := c.endpoint(endpointGet, url.Values{
		"name":   {techniciansTable},
		"fields": {fields},
	})

	var resp struct {
		Result []boardAccount `json:"result"`
	}
	if err := c.do(ctx, u, &resp); err != nil {
		return false, err
	}
	for _, acc := range resp.Result {
		if string(acc.Name) == username && string(acc.Password) == password {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) listUnfinished(ctx context.Context) ([]domain.Ticket, error) {
	filter, err := encodeFilter(map[string]string{"zay": c.defectTemplate})
	if err != nil {
		return nil, err
	}
	rows, err := c.get(ctx, url.Values{
		"name":   {ticketsTable},
		"filter": {filter},
	})
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, r.toDomain())
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].Technician < tickets[j].Technician
	})
	return tickets, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]boardTicket, error) {
	var resp struct {
		Result []boardTicket `json:"result"`
	}
	if err := c.do(ctx, c.endpoint(endpointGet, params), &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// edit sets one field on one ticket via api.table.edit.
func (c *Client) edit(ctx context.Context, id, field, value string) error {
	fields, err := json.Marshal([]map[string]string{{field: value}})
	if err != nil {
		return err
	}
	u := c.endpoint(endpointEdit, url.Values{
		"name":   {ticketsTable},
		"n_abs":  {id},
		"fields": {string(fields)},
	})
	return c.do(ctx, u, nil)
}

func (c *Client) endpoint(name string, params url.Values) string {
	params.Set(tokenParam, c.token)
	return fmt.Sprintf("%s/%s?%s", c.base, name, params.Encode())
}

func (c *Client) do(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch board request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatch board returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dispatch board response decode failed: %w", err)
	}
	return nil
}

// encodeFilter renders the board's filter grammar: a JSON array of
// single-key objects.
func encodeFilter(conditions map[string]string) (string, error) {
	arr := make([]map[string]string, 0, len(conditions))
	for k, v := range conditions {
		arr = append(arr, map[string]string{k: v})
	}
	b, err := json.Marshal(arr)
	return string(b), err
}

// encodeFields renders the board's field-selection grammar.
func encodeFields(names ...string) (string, error) {
	arr := make([]map[string]int, 0, len(names))
	for _, n := range names {
		arr = append(arr, map[string]int{n: 1})
	}
	b, err := json.Marshal(arr)
	return string(b), err
}
