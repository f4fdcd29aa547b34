package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

// User-facing dialog texts.
const (
	msgStartHelp = "To access bot features, sign up and wait for " +
		"confirmation by an administrator. Run /signup to start registration."
	msgDialogClosed     = "Dialog closed"
	msgSignupGroupChat  = "Signup is not available in a group chat. Message the bot directly to register."
	msgAlreadySignedUp  = "You are already registered. No signup needed."
	msgAskUsername      = "Enter your field app username"
	msgAskPassword      = "Enter your field app password"
	msgSignupDone       = "You are registered. Bot features are now available."
	msgSignupBadAccount = "Wrong username or password. You are not registered. " +
		"If you mistyped, run the signup again."
	msgMyTasksNotLinked = "Personal ticket lists are not available: you are not " +
		"registered or your chat has no linked technician account. Sign up or " +
		"ask an administrator to check the technician link."
	msgMyTasksGroupChat = "Ticket lists are available to registered users in a direct chat with the bot only"
	msgPickTicket       = "Pick a ticket from the list. The button label is the ticket number."
	msgNoTickets        = "You have no tickets"
	msgAskResolution    = "Enter the ticket resolution:"
	msgCloseCancelled   = "You cancelled closing the ticket"
	msgReportStarting   = "Generating the ticket report. Please wait."
	msgTasksNotAllowed  = "You are not allowed to run this command in a group. " +
		"For your personal ticket list, message the bot directly."
)

// DialogConfig carries the chat lists the dialog flows need.
type DialogConfig struct {
	// AdminChatIDs may trigger the group-wide report with /tasks.
	AdminChatIDs []int64
	// BroadcastChatIDs receive close and acknowledge notices.
	BroadcastChatIDs []int64
}

// DialogService is the conversation state machine. Each inbound update is
// dispatched against the chat's stored session state; every transition
// writes the session back before replying.
type DialogService struct {
	sessions ports.SessionStore
	tickets  ports.TicketGateway
	users    ports.UserDirectory
	channel  ports.MessageChannel
	reports  ports.ReportService
	cfg      DialogConfig
	logger   *slog.Logger
}

var _ ports.DialogService = (*DialogService)(nil)

// NewDialogService creates a new dialog service.
func NewDialogService(
	sessions ports.SessionStore,
	tickets ports.TicketGateway,
	users ports.UserDirectory,
	channel ports.MessageChannel,
	reports ports.ReportService,
	cfg DialogConfig,
	logger *slog.Logger,
) *DialogService {
	return &DialogService{
		sessions: sessions,
		tickets:  tickets,
		users:    users,
		channel:  channel,
		reports:  reports,
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleCommand processes a slash command. Commands are accepted in any
// dialog state; flow-starting commands force-reset the session first.
func (s *DialogService) HandleCommand(ctx context.Context, name string, msg ports.Message) error {
	switch name {
	case "start":
		if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
			return err
		}
		return s.channel.SendText(ctx, msg.ChatID, msgStartHelp, false)
	case "cancel":
		if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
			return err
		}
		return s.channel.SendText(ctx, msg.ChatID, msgDialogClosed, false)
	case "signup":
		return s.startSignup(ctx, msg)
	case "my_tasks":
		return s.startTicketSelection(ctx, msg)
	case "tasks":
		return s.runReport(ctx, msg)
	default:
		s.logger.Debug("ignoring unknown command", "command", name, "chat_id", msg.ChatID)
		return nil
	}
}

// HandleText processes a plain text message according to the chat's
// current dialog state. Text outside any flow is ignored.
func (s *DialogService) HandleText(ctx context.Context, msg ports.Message) error {
	sess, err := s.sessions.Get(ctx, msg.ChatID)
	if err != nil {
		return err
	}

	switch sess.State {
	case domain.StateAwaitingUsername:
		return s.acceptUsername(ctx, msg, sess)
	case domain.StateAwaitingPassword:
		return s.acceptPassword(ctx, msg, sess)
	case domain.StateAwaitingCloseReason, domain.StateAwaitingCloseConfirm:
		// Text while the confirmation buttons are shown replaces the
		// pending reason, same as pressing "edit" first.
		return s.acceptCloseReason(ctx, msg, sess)
	default:
		return nil
	}
}

// HandleCallback processes a decoded button press.
func (s *DialogService) HandleCallback(ctx context.Context, msg ports.Message, payload domain.CallbackPayload) error {
	switch payload.Kind {
	case domain.CallbackPickTicket:
		return s.showTicketActions(ctx, msg, payload)
	case domain.CallbackViewTicket:
		return s.viewTicket(ctx, msg, payload)
	case domain.CallbackCloseTicket:
		return s.startTicketClose(ctx, msg, payload)
	case domain.CallbackConfirm:
		return s.confirmTicketClose(ctx, msg)
	case domain.CallbackEditReason:
		return s.editCloseReason(ctx, msg)
	case domain.CallbackCancelClose:
		return s.cancelTicketClose(ctx, msg)
	case domain.CallbackAcknowledge:
		return s.acknowledgeTickets(ctx, msg, payload.Technician)
	default:
		s.logger.Warn("ignoring unknown callback", "kind", payload.Kind, "chat_id", msg.ChatID)
		return nil
	}
}

// --- signup flow ---

func (s *DialogService) startSignup(ctx context.Context, msg ports.Message) error {
	if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
		return err
	}
	if !msg.Private() {
		return s.channel.SendText(ctx, msg.ChatID, msgSignupGroupChat, false)
	}
	registered, err := s.users.IsRegistered(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if registered {
		return s.channel.SendText(ctx, msg.ChatID, msgAlreadySignedUp, false)
	}

	sess := domain.NewSession(msg.ChatID)
	sess.State = domain.StateAwaitingUsername
	if err := s.sessions.Put(ctx, sess); err != nil {
		return err
	}
	return s.channel.SendText(ctx, msg.ChatID, msgAskUsername, false)
}

func (s *DialogService) acceptUsername(ctx context.Context, msg ports.Message, sess domain.Session) error {
	if !msg.Private() {
		return nil
	}
	sess.Set(domain.DataUsername, msg.Text)
	sess.State = domain.StateAwaitingPassword
	if err := s.sessions.Put(ctx, sess); err != nil {
		return err
	}
	return s.channel.SendText(ctx, msg.ChatID, msgAskPassword, false)
}

func (s *DialogService) acceptPassword(ctx context.Context, msg ports.Message, sess domain.Session) error {
	if !msg.Private() {
		return nil
	}
	username := sess.Data[domain.DataUsername]
	valid, err := s.tickets.ValidateTechnicianCredentials(ctx, username, msg.Text)
	if err != nil {
		return err
	}

	reply := msgSignupBadAccount
	if valid {
		user := domain.RegisteredUser{
			ChatID:     msg.UserID,
			FirstName:  msg.FirstName,
			LastName:   msg.LastName,
			Username:   msg.Username,
			Status:     domain.UserActive,
			Technician: username,
		}
		if err := s.users.Register(ctx, user); err != nil {
			return err
		}
		reply = msgSignupDone
	}

	if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
		return err
	}
	return s.channel.SendText(ctx, msg.ChatID, reply, false)
}

// --- ticket selection and close flow ---

func (s *DialogService) startTicketSelection(ctx context.Context, msg ports.Message) error {
	if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
		return err
	}
	if !msg.Private() {
		s.logger.Warn("ticket list requested outside a private chat", "chat_id", msg.ChatID)
		return s.channel.SendText(ctx, msg.ChatID, msgMyTasksGroupChat, false)
	}

	user, err := s.users.FindByChat(ctx, msg.ChatID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return s.channel.SendText(ctx, msg.ChatID, msgMyTasksNotLinked, false)
	}
	if err != nil {
		return err
	}
	if !user.HasTechnician() {
		return s.channel.SendText(ctx, msg.ChatID, msgMyTasksNotLinked, false)
	}

	tickets, err := s.tickets.ListTechnicianTickets(ctx, user.Technician)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return s.channel.SendText(ctx, msg.ChatID, msgNoTickets, false)
	}

	row := make([]ports.Button, 0, len(tickets))
	for _, t := range tickets {
		row = append(row, ports.Button{
			Label: t.ID,
			Payload: domain.CallbackPayload{
				Kind:     domain.CallbackPickTicket,
				TicketID: t.ID,
				ChatID:   msg.UserID,
			},
		})
	}
	return s.channel.SendTextWithButtons(ctx, msg.ChatID, msgPickTicket, false, [][]ports.Button{row})
}

func (s *DialogService) showTicketActions(ctx context.Context, msg ports.Message, payload domain.CallbackPayload) error {
	if err := s.channel.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		return err
	}
	rows := [][]ports.Button{
		{{
			Label: "View ticket",
			Payload: domain.CallbackPayload{
				Kind:     domain.CallbackViewTicket,
				TicketID: payload.TicketID,
				ChatID:   payload.ChatID,
			},
		}},
		{{
			Label: "Close ticket",
			Payload: domain.CallbackPayload{
				Kind:     domain.CallbackCloseTicket,
				TicketID: payload.TicketID,
				ChatID:   payload.ChatID,
			},
		}},
	}
	text := fmt.Sprintf("You picked ticket %s. Choose an action:", payload.TicketID)
	return s.channel.SendTextWithButtons(ctx, payload.ChatID, text, false, rows)
}

func (s *DialogService) viewTicket(ctx context.Context, msg ports.Message, payload domain.CallbackPayload) error {
	if err := s.channel.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		return err
	}
	ticket, err := s.tickets.GetTicket(ctx, payload.TicketID)
	if errors.Is(err, apperrors.ErrTicketNotFound) {
		// The ticket vanished from the board between listing and viewing.
		return nil
	}
	if err != nil {
		return err
	}

	digest := &Digest{}
	digest.AddTicket(*ticket)
	digest.StampGeneratedAt(time.Now())
	return s.channel.SendText(ctx, payload.ChatID, digest.String(), true)
}

func (s *DialogService) startTicketClose(ctx context.Context, msg ports.Message, payload domain.CallbackPayload) error {
	if err := s.channel.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		return err
	}
	sess := domain.NewSession(msg.ChatID)
	sess.State = domain.StateAwaitingCloseReason
	sess.Set(domain.DataTicketID, payload.TicketID)
	if err := s.sessions.Put(ctx, sess); err != nil {
		return err
	}
	return s.channel.SendText(ctx, msg.ChatID, msgAskResolution, false)
}

func (s *DialogService) acceptCloseReason(ctx context.Context, msg ports.Message, sess domain.Session) error {
	ticketID := sess.Data[domain.DataTicketID]
	sess.Set(domain.DataCloseReason, msg.Text)
	sess.State = domain.StateAwaitingCloseConfirm
	if err := s.sessions.Put(ctx, sess); err != nil {
		return err
	}

	rows := [][]ports.Button{
		{{Label: "Confirm", Payload: domain.CallbackPayload{Kind: domain.CallbackConfirm}}},
		{{Label: "Edit resolution text", Payload: domain.CallbackPayload{Kind: domain.CallbackEditReason}}},
		{{Label: "Cancel", Payload: domain.CallbackPayload{Kind: domain.CallbackCancelClose}}},
	}
	text := fmt.Sprintf("Ticket %s will be closed. Resolution: %s. Choose an action:", ticketID, msg.Text)
	return s.channel.SendTextWithButtons(ctx, msg.ChatID, text, false, rows)
}

func (s *DialogService) confirmTicketClose(ctx context.Context, msg ports.Message) error {
	sess, err := s.sessions.Get(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if sess.State != domain.StateAwaitingCloseConfirm {
		return nil
	}
	ticketID := sess.Data[domain.DataTicketID]
	reason := sess.Data[domain.DataCloseReason]

	technician := ""
	if user, err := s.users.FindByChat(ctx, msg.ChatID); err == nil {
		technician = user.Technician
	}

	// The ticket's current status is not re-checked here; a close raced
	// by another actor is last-write-wins.
	if err := s.tickets.FinishTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.tickets.SetResolution(ctx, ticketID, reason); err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
		return err
	}

	notice := fmt.Sprintf("Ticket %s closed. Technician: %s. Resolution: %s", ticketID, technician, reason)
	if err := s.channel.SendText(ctx, msg.ChatID, notice, false); err != nil {
		return err
	}
	for _, chat := range s.cfg.BroadcastChatIDs {
		if err := s.channel.SendText(ctx, chat, notice, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *DialogService) editCloseReason(ctx context.Context, msg ports.Message) error {
	sess, err := s.sessions.Get(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if sess.State != domain.StateAwaitingCloseConfirm {
		return nil
	}
	sess.State = domain.StateAwaitingCloseReason
	if err := s.sessions.Put(ctx, sess); err != nil {
		return err
	}
	if err := s.channel.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		return err
	}
	return s.channel.SendText(ctx, msg.ChatID, msgAskResolution, false)
}

func (s *DialogService) cancelTicketClose(ctx context.Context, msg ports.Message) error {
	sess, err := s.sessions.Get(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if sess.State != domain.StateAwaitingCloseConfirm {
		return nil
	}
	if err := s.sessions.Clear(ctx, msg.ChatID); err != nil {
		return err
	}
	if err := s.channel.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		return err
	}
	return s.channel.SendText(ctx, msg.ChatID, msgCloseCancelled, false)
}

// --- personal digest acknowledgment ---

// acknowledgeTickets marks every ticket of the technician as accepted and
// reschedules it to the acknowledgment time. The issuing chat is not
// matched against the technician name.
func (s *DialogService) acknowledgeTickets(ctx context.Context, msg ports.Message, technician string) error {
	if err := s.channel.ClearButtons(ctx, msg.ChatID, msg.MessageID); err != nil {
		return err
	}

	tickets, err := s.tickets.ListTechnicianTickets(ctx, technician)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, t := range tickets {
		if err := s.tickets.AcceptTicket(ctx, t.ID); err != nil {
			return err
		}
		if err := s.tickets.RescheduleTicket(ctx, t.ID, now); err != nil {
			return err
		}
	}

	notice := fmt.Sprintf("%s acknowledged the emergency ticket list for %s",
		technician, now.Format(domain.DateLayout))
	for _, chat := range s.cfg.BroadcastChatIDs {
		if err := s.channel.SendText(ctx, chat, notice, false); err != nil {
			return err
		}
	}
	return nil
}

// --- report trigger ---

// runReport handles /tasks: a registered user in a private chat gets the
// personal digest pass, an admin in a group chat triggers the full
// broadcast, everyone else is refused or ignored.
func (s *DialogService) runReport(ctx context.Context, msg ports.Message) error {
	switch {
	case msg.Private():
		registered, err := s.users.IsRegistered(ctx, msg.UserID)
		if err != nil {
			return err
		}
		if !registered {
			s.logger.Warn("report requested by unregistered private chat", "chat_id", msg.ChatID)
			return nil
		}
		if err := s.channel.SendText(ctx, msg.ChatID, msgReportStarting, false); err != nil {
			return err
		}
		return s.reports.SendPersonalDigests(ctx)
	case msg.Group():
		if !slices.Contains(s.cfg.AdminChatIDs, msg.UserID) {
			return s.channel.SendText(ctx, msg.ChatID, msgTasksNotAllowed, false)
		}
		if err := s.channel.SendText(ctx, msg.ChatID, msgReportStarting, false); err != nil {
			return err
		}
		return s.reports.BroadcastOpenTickets(ctx)
	default:
		s.logger.Warn("report requested from unsupported chat type",
			"chat_id", msg.ChatID, "chat_type", msg.ChatType)
		return nil
	}
}
