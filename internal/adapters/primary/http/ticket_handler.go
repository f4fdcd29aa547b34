package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

// TicketHandler gives operators read and delete access to board tickets
// without going through the board UI.
type TicketHandler struct {
	tickets      ports.TicketGateway
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewTicketHandler(tickets ports.TicketGateway, eh *ErrorHandler, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets:      tickets,
		errorHandler: eh,
		logger:       logger,
	}
}

// ticketDTO is the ops API view of a board ticket.
type ticketDTO struct {
	ID          string `json:"id"`
	Technician  string `json:"technician"`
	Status      int    `json:"status"`
	Defect      string `json:"defect"`
	SiteName    string `json:"site_name"`
	SiteNumber  string `json:"site_number"`
	SiteAddress string `json:"site_address"`
	ReportedBy  string `json:"reported_by"`
	TakenBy     string `json:"taken_by"`
	SubmittedAt string `json:"submitted_at"`
	ScheduledAt string `json:"scheduled_at"`
	AcceptedAt  string `json:"accepted_at,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

func toTicketDTO(t domain.Ticket) ticketDTO {
	return ticketDTO{
		ID:          t.ID,
		Technician:  t.Technician,
		Status:      int(t.Status),
		Defect:      t.Defect,
		SiteName:    t.SiteName,
		SiteNumber:  t.SiteNumber,
		SiteAddress: t.SiteAddress,
		ReportedBy:  t.ReportedBy,
		TakenBy:     t.TakenBy,
		SubmittedAt: t.SubmittedAt,
		ScheduledAt: t.ScheduledAt,
		AcceptedAt:  t.AcceptedAt,
		Resolution:  t.Resolution,
	}
}

// HandleList returns the tickets due on the current date.
func (h *TicketHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.ListOpenTickets(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]ticketDTO, 0, len(tickets))
	for _, t := range tickets {
		dtos = append(dtos, toTicketDTO(t))
	}
	WriteSuccess(w, dtos)
}

// HandleGet returns a single ticket by its board number.
func (h *TicketHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	ticket, err := h.tickets.GetTicket(r.Context(), id)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteSuccess(w, toTicketDTO(*ticket))
}

// HandleDelete removes a ticket from the board.
func (h *TicketHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	if _, err := h.tickets.GetTicket(r.Context(), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := h.tickets.DeleteTicket(r.Context(), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket deleted via ops api", "ticket_id", id)
	w.WriteHeader(http.StatusNoContent)
}
