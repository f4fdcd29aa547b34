package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
	"github.com/lorrc/field-dispatch-bot/internal/infrastructure/logging"
)

// reportRunTimeout bounds a manually triggered report run.
const reportRunTimeout = 5 * time.Minute

// ReportHandler exposes manual triggers for the scheduled report flows,
// for reruns after an outage or an off-schedule pull.
type ReportHandler struct {
	reports      ports.ReportService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewReportHandler(reports ports.ReportService, eh *ErrorHandler, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:      reports,
		errorHandler: eh,
		logger:       logger,
	}
}

// HandleBroadcast triggers the group-wide ticket report. The run happens
// in the background; the response only confirms the trigger.
func (h *ReportHandler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	runID := h.startRun("broadcast", h.reports.BroadcastOpenTickets)
	WriteAccepted(w, "broadcast report started: "+runID)
}

// HandlePersonal triggers the per-technician digest run.
func (h *ReportHandler) HandlePersonal(w http.ResponseWriter, r *http.Request) {
	runID := h.startRun("personal", h.reports.SendPersonalDigests)
	WriteAccepted(w, "personal digest run started: "+runID)
}

func (h *ReportHandler) startRun(kind string, run func(context.Context) error) string {
	runID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportRunTimeout)
		defer cancel()
		ctx = logging.WithRunID(ctx, runID)

		h.logger.InfoContext(ctx, "manual report run started", "kind", kind)
		if err := run(ctx); err != nil {
			h.logger.ErrorContext(ctx, "manual report run failed", "kind", kind, "error", err)
			return
		}
		h.logger.InfoContext(ctx, "manual report run finished", "kind", kind)
	}()
	return runID
}
