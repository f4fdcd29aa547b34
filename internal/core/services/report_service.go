package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

const noOpenTicketsMsg = "No open tickets for the current date"

// ReportConfig carries the dispatch targets for scheduled reports.
type ReportConfig struct {
	// BroadcastChatIDs receive the grouped digest and the spreadsheet on
	// every run.
	BroadcastChatIDs []int64
	// ExportDir is where spreadsheet files are staged before sending.
	// The directory is removed after each broadcast run.
	ExportDir string
}

// ReportService implements the scheduled report flows: the group-wide
// broadcast and the per-technician personal digests.
type ReportService struct {
	tickets ports.TicketGateway
	users   ports.UserDirectory
	channel ports.MessageChannel
	cfg     ReportConfig
	logger  *slog.Logger
}

var _ ports.ReportService = (*ReportService)(nil)

// NewReportService creates a new report service.
func NewReportService(
	tickets ports.TicketGateway,
	users ports.UserDirectory,
	channel ports.MessageChannel,
	cfg ReportConfig,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		tickets: tickets,
		users:   users,
		channel: channel,
		cfg:     cfg,
		logger:  logger,
	}
}

// BroadcastOpenTickets pulls the due tickets, folds technician runs into
// text digests flushed every third technician, and sends the consolidated
// spreadsheet once at the end of the pass. An empty pull produces a single
// "no tickets" notice instead.
func (s *ReportService) BroadcastOpenTickets(ctx context.Context) error {
	tickets, err := s.tickets.ListOpenTickets(ctx)
	if err != nil {
		return err
	}

	if len(tickets) == 0 {
		return s.sendToBroadcast(ctx, noOpenTicketsMsg, true)
	}

	now := time.Now()
	sheet, err := NewSpreadsheet(now)
	if err != nil {
		return err
	}

	digest := &Digest{}
	digest.AddHeader(now)

	for _, run := range GroupByTechnician(tickets) {
		digest.AddTechnician(run.Technician)
		for _, t := range run.Tickets {
			digest.AddTicket(t)
			digest.AddBlankLine()
			if err := sheet.AddRow(t); err != nil {
				return err
			}
		}

		if digest.Runs() == digestFlushThreshold {
			digest.StampGeneratedAt(time.Now())
			if err := s.sendToBroadcast(ctx, digest.String(), true); err != nil {
				return err
			}
			digest = &Digest{}
			digest.AddHeader(now)
		}
	}

	if digest.Runs() > 0 {
		digest.StampGeneratedAt(time.Now())
		if err := s.sendToBroadcast(ctx, digest.String(), true); err != nil {
			return err
		}
	}

	if err := sheet.StampGeneratedAt(time.Now()); err != nil {
		return err
	}
	path, err := sheet.Save(s.cfg.ExportDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(s.cfg.ExportDir); err != nil {
			s.logger.Warn("failed to clean export directory", "dir", s.cfg.ExportDir, "error", err)
		}
	}()

	for _, chat := range s.cfg.BroadcastChatIDs {
		if err := s.channel.SendDocument(ctx, chat, path); err != nil {
			return err
		}
	}

	s.logger.Info("broadcast report sent",
		"tickets", sheet.RowCount(),
		"recipients", len(s.cfg.BroadcastChatIDs),
	)
	return nil
}

// SendPersonalDigests sends each technician with a registered chat their
// own ticket digest carrying an acknowledge button. Technicians without a
// registered chat are skipped.
func (s *ReportService) SendPersonalDigests(ctx context.Context) error {
	tickets, err := s.tickets.ListOpenTickets(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, run := range GroupByTechnician(tickets) {
		user, err := s.users.FindByTechnician(ctx, run.Technician)
		if errors.Is(err, apperrors.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		digest := &Digest{}
		digest.AddTechnician(run.Technician)
		for _, t := range run.Tickets {
			digest.AddTicket(t)
		}
		digest.AddBlankLine()

		buttons := [][]ports.Button{{{
			Label: "Acknowledged",
			Payload: domain.CallbackPayload{
				Kind:       domain.CallbackAcknowledge,
				Technician: run.Technician,
			},
		}}}
		if err := s.channel.SendTextWithButtons(ctx, user.ChatID, digest.String(), true, buttons); err != nil {
			return err
		}
		sent++
	}

	s.logger.Info("personal digests sent", "count", sent)
	return nil
}

func (s *ReportService) sendToBroadcast(ctx context.Context, text string, html bool) error {
	for _, chat := range s.cfg.BroadcastChatIDs {
		if err := s.channel.SendText(ctx, chat, text, html); err != nil {
			return err
		}
	}
	return nil
}
