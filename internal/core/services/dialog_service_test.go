package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
	"github.com/lorrc/field-dispatch-bot/internal/core/mocks"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

const (
	testChat  int64 = 1001
	adminUser int64 = 42
)

type dialogFixture struct {
	svc      *DialogService
	sessions *mocks.MockSessionStore
	tickets  *mocks.MockTicketGateway
	users    *mocks.MockUserDirectory
	channel  *mocks.MockMessageChannel
	reports  *mocks.MockReportService
}

func newDialogFixture(t *testing.T) *dialogFixture {
	t.Helper()
	f := &dialogFixture{
		sessions: mocks.NewMockSessionStore(),
		tickets:  mocks.NewMockTicketGateway(),
		users:    mocks.NewMockUserDirectory(),
		channel:  mocks.NewMockMessageChannel(),
		reports:  mocks.NewMockReportService(),
	}
	f.svc = NewDialogService(f.sessions, f.tickets, f.users, f.channel, f.reports, DialogConfig{
		AdminChatIDs:     []int64{adminUser},
		BroadcastChatIDs: []int64{broadcastChat},
	}, slog.Default())
	return f
}

func privateMsg(text string) ports.Message {
	return ports.Message{
		ChatID:   testChat,
		ChatType: "private",
		UserID:   testChat,
		Text:     text,
	}
}

func groupMsg(userID int64) ports.Message {
	return ports.Message{ChatID: -5000, ChatType: "group", UserID: userID}
}

func sessionIn(state domain.DialogState, data map[string]string) domain.Session {
	s := domain.NewSession(testChat)
	s.State = state
	for k, v := range data {
		s.Set(k, v)
	}
	return s
}

// --- /start and /cancel ---

func TestCancelResetsAnyState(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, msgDialogClosed, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "cancel", privateMsg("/cancel")))

	f.sessions.AssertCalled(t, "Clear", mock.Anything, testChat)
	f.channel.AssertExpectations(t)
}

func TestStartSendsHelp(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, msgStartHelp, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "start", privateMsg("/start")))
	f.channel.AssertExpectations(t)
}

func TestUnknownCommandIgnored(t *testing.T) {
	f := newDialogFixture(t)
	require.NoError(t, f.svc.HandleCommand(context.Background(), "frobnicate", privateMsg("/frobnicate")))
	f.channel.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- signup flow ---

func TestSignupRefusedInGroupChat(t *testing.T) {
	f := newDialogFixture(t)
	msg := groupMsg(7)
	f.sessions.On("Clear", mock.Anything, msg.ChatID).Return(nil)
	f.channel.On("SendText", mock.Anything, msg.ChatID, msgSignupGroupChat, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "signup", msg))

	f.channel.AssertExpectations(t)
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSignupRefusedWhenAlreadyRegistered(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.users.On("IsRegistered", mock.Anything, testChat).Return(true, nil)
	f.channel.On("SendText", mock.Anything, testChat, msgAlreadySignedUp, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "signup", privateMsg("/signup")))

	f.channel.AssertExpectations(t)
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSignupHappyPath(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()

	// Step 1: /signup moves the chat to awaiting_username.
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.users.On("IsRegistered", mock.Anything, testChat).Return(false, nil)
	f.sessions.On("Put", mock.Anything, mock.MatchedBy(func(s domain.Session) bool {
		return s.State == domain.StateAwaitingUsername
	})).Return(nil).Once()
	f.channel.On("SendText", mock.Anything, testChat, msgAskUsername, false).Return(nil)
	require.NoError(t, f.svc.HandleCommand(ctx, "signup", privateMsg("/signup")))

	// Step 2: the username answer moves to awaiting_password.
	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingUsername, nil), nil).Once()
	f.sessions.On("Put", mock.Anything, mock.MatchedBy(func(s domain.Session) bool {
		return s.State == domain.StateAwaitingPassword && s.Data[domain.DataUsername] == "petrov"
	})).Return(nil).Once()
	f.channel.On("SendText", mock.Anything, testChat, msgAskPassword, false).Return(nil)
	require.NoError(t, f.svc.HandleText(ctx, privateMsg("petrov")))

	// Step 3: a valid password registers the chat and closes the dialog.
	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingPassword, map[string]string{domain.DataUsername: "petrov"}), nil).Once()
	f.tickets.On("ValidateTechnicianCredentials", mock.Anything, "petrov", "secret").Return(true, nil)
	f.users.On("Register", mock.Anything, mock.MatchedBy(func(u domain.RegisteredUser) bool {
		return u.ChatID == testChat && u.Technician == "petrov" && u.Status == domain.UserActive
	})).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, msgSignupDone, false).Return(nil)
	require.NoError(t, f.svc.HandleText(ctx, privateMsg("secret")))

	f.users.AssertExpectations(t)
	f.channel.AssertExpectations(t)
}

func TestSignupBadCredentials(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingPassword, map[string]string{domain.DataUsername: "petrov"}), nil)
	f.tickets.On("ValidateTechnicianCredentials", mock.Anything, "petrov", "wrong").Return(false, nil)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, msgSignupBadAccount, false).Return(nil)

	require.NoError(t, f.svc.HandleText(context.Background(), privateMsg("wrong")))

	f.users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	f.sessions.AssertCalled(t, "Clear", mock.Anything, testChat)
}

func TestIdleTextIgnored(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Get", mock.Anything, testChat).Return(domain.NewSession(testChat), nil)

	require.NoError(t, f.svc.HandleText(context.Background(), privateMsg("hello")))
	f.channel.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- ticket selection ---

func TestMyTasksWithoutRegistration(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.users.On("FindByChat", mock.Anything, testChat).Return(nil, apperrors.ErrUserNotFound)
	f.channel.On("SendText", mock.Anything, testChat, msgMyTasksNotLinked, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "my_tasks", privateMsg("/my_tasks")))
	f.channel.AssertExpectations(t)
}

func TestMyTasksShowsTicketButtons(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.users.On("FindByChat", mock.Anything, testChat).
		Return(&domain.RegisteredUser{ChatID: testChat, Technician: "petrov", Status: domain.UserActive}, nil)
	f.tickets.On("ListTechnicianTickets", mock.Anything, "petrov").
		Return([]domain.Ticket{{ID: "11"}, {ID: "12"}}, nil)

	var rows [][]ports.Button
	f.channel.On("SendTextWithButtons", mock.Anything, testChat, msgPickTicket, false, mock.Anything).
		Run(func(args mock.Arguments) {
			rows = args.Get(4).([][]ports.Button)
		}).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "my_tasks", privateMsg("/my_tasks")))

	require.Len(t, rows, 1)
	require.Len(t, rows[0], 2)
	assert.Equal(t, "11", rows[0][0].Label)
	assert.Equal(t, domain.CallbackPayload{
		Kind:     domain.CallbackPickTicket,
		TicketID: "11",
		ChatID:   testChat,
	}, rows[0][0].Payload)
}

func TestMyTasksEmptyList(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.users.On("FindByChat", mock.Anything, testChat).
		Return(&domain.RegisteredUser{ChatID: testChat, Technician: "petrov", Status: domain.UserActive}, nil)
	f.tickets.On("ListTechnicianTickets", mock.Anything, "petrov").Return([]domain.Ticket{}, nil)
	f.channel.On("SendText", mock.Anything, testChat, msgNoTickets, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "my_tasks", privateMsg("/my_tasks")))
	f.channel.AssertExpectations(t)
}

// --- viewing ---

func TestViewTicketVanishedFromBoard(t *testing.T) {
	f := newDialogFixture(t)
	msg := privateMsg("")
	msg.MessageID = 77
	payload := domain.CallbackPayload{Kind: domain.CallbackViewTicket, TicketID: "404", ChatID: testChat}

	f.channel.On("DeleteMessage", mock.Anything, testChat, 77).Return(nil)
	f.tickets.On("GetTicket", mock.Anything, "404").Return(nil, apperrors.ErrTicketNotFound)

	// A vanished ticket is silently dropped, not reported to the chat.
	require.NoError(t, f.svc.HandleCallback(context.Background(), msg, payload))
	f.channel.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- close flow ---

func TestCloseTicketRoundTrip(t *testing.T) {
	f := newDialogFixture(t)
	ctx := context.Background()
	msg := privateMsg("")
	msg.MessageID = 5

	// Pressing "Close ticket" opens the resolution prompt.
	f.channel.On("DeleteMessage", mock.Anything, testChat, 5).Return(nil)
	f.sessions.On("Put", mock.Anything, mock.MatchedBy(func(s domain.Session) bool {
		return s.State == domain.StateAwaitingCloseReason && s.Data[domain.DataTicketID] == "33"
	})).Return(nil).Once()
	f.channel.On("SendText", mock.Anything, testChat, msgAskResolution, false).Return(nil)
	payload := domain.CallbackPayload{Kind: domain.CallbackCloseTicket, TicketID: "33", ChatID: testChat}
	require.NoError(t, f.svc.HandleCallback(ctx, msg, payload))

	// The typed resolution moves to the confirmation step.
	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingCloseReason, map[string]string{domain.DataTicketID: "33"}), nil).Once()
	f.sessions.On("Put", mock.Anything, mock.MatchedBy(func(s domain.Session) bool {
		return s.State == domain.StateAwaitingCloseConfirm && s.Data[domain.DataCloseReason] == "replaced relay"
	})).Return(nil).Once()
	var rows [][]ports.Button
	f.channel.On("SendTextWithButtons", mock.Anything, testChat, mock.AnythingOfType("string"), false, mock.Anything).
		Run(func(args mock.Arguments) {
			rows = args.Get(4).([][]ports.Button)
		}).Return(nil)
	require.NoError(t, f.svc.HandleText(ctx, privateMsg("replaced relay")))
	require.Len(t, rows, 3)

	// Confirming writes the board fields and notifies the broadcast chats.
	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingCloseConfirm, map[string]string{
			domain.DataTicketID:    "33",
			domain.DataCloseReason: "replaced relay",
		}), nil).Once()
	f.users.On("FindByChat", mock.Anything, testChat).
		Return(&domain.RegisteredUser{ChatID: testChat, Technician: "petrov"}, nil)
	f.tickets.On("FinishTicket", mock.Anything, "33").Return(nil)
	f.tickets.On("SetResolution", mock.Anything, "33", "replaced relay").Return(nil)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, mock.MatchedBy(func(text string) bool {
		return text == "Ticket 33 closed. Technician: petrov. Resolution: replaced relay"
	}), false).Return(nil)
	f.channel.On("SendText", mock.Anything, broadcastChat, mock.AnythingOfType("string"), false).Return(nil)

	require.NoError(t, f.svc.HandleCallback(ctx, msg, domain.CallbackPayload{Kind: domain.CallbackConfirm}))

	f.tickets.AssertExpectations(t)
	f.channel.AssertCalled(t, "SendText", mock.Anything, broadcastChat, mock.AnythingOfType("string"), false)
}

func TestConfirmOutsideCloseFlowIgnored(t *testing.T) {
	f := newDialogFixture(t)
	f.sessions.On("Get", mock.Anything, testChat).Return(domain.NewSession(testChat), nil)

	require.NoError(t, f.svc.HandleCallback(context.Background(), privateMsg(""),
		domain.CallbackPayload{Kind: domain.CallbackConfirm}))

	f.tickets.AssertNotCalled(t, "FinishTicket", mock.Anything, mock.Anything)
}

func TestCancelCloseKeepsTicketOpen(t *testing.T) {
	f := newDialogFixture(t)
	msg := privateMsg("")
	msg.MessageID = 9

	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingCloseConfirm, map[string]string{domain.DataTicketID: "33"}), nil)
	f.sessions.On("Clear", mock.Anything, testChat).Return(nil)
	f.channel.On("DeleteMessage", mock.Anything, testChat, 9).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, msgCloseCancelled, false).Return(nil)

	require.NoError(t, f.svc.HandleCallback(context.Background(), msg,
		domain.CallbackPayload{Kind: domain.CallbackCancelClose}))

	f.tickets.AssertNotCalled(t, "FinishTicket", mock.Anything, mock.Anything)
	f.channel.AssertExpectations(t)
}

func TestEditCloseReasonReprompts(t *testing.T) {
	f := newDialogFixture(t)
	msg := privateMsg("")
	msg.MessageID = 9

	f.sessions.On("Get", mock.Anything, testChat).
		Return(sessionIn(domain.StateAwaitingCloseConfirm, map[string]string{domain.DataTicketID: "33"}), nil)
	f.sessions.On("Put", mock.Anything, mock.MatchedBy(func(s domain.Session) bool {
		return s.State == domain.StateAwaitingCloseReason && s.Data[domain.DataTicketID] == "33"
	})).Return(nil)
	f.channel.On("DeleteMessage", mock.Anything, testChat, 9).Return(nil)
	f.channel.On("SendText", mock.Anything, testChat, msgAskResolution, false).Return(nil)

	require.NoError(t, f.svc.HandleCallback(context.Background(), msg,
		domain.CallbackPayload{Kind: domain.CallbackEditReason}))
	f.sessions.AssertExpectations(t)
}

// --- acknowledgment ---

func TestAcknowledgeAcceptsAndReschedulesAll(t *testing.T) {
	f := newDialogFixture(t)
	msg := privateMsg("")
	msg.MessageID = 3

	f.channel.On("ClearButtons", mock.Anything, testChat, 3).Return(nil)
	f.tickets.On("ListTechnicianTickets", mock.Anything, "petrov").
		Return([]domain.Ticket{{ID: "1", Technician: "petrov"}, {ID: "2", Technician: "petrov"}}, nil)
	f.tickets.On("AcceptTicket", mock.Anything, "1").Return(nil)
	f.tickets.On("AcceptTicket", mock.Anything, "2").Return(nil)
	f.tickets.On("RescheduleTicket", mock.Anything, "1", mock.AnythingOfType("time.Time")).Return(nil)
	f.tickets.On("RescheduleTicket", mock.Anything, "2", mock.AnythingOfType("time.Time")).Return(nil)
	f.channel.On("SendText", mock.Anything, broadcastChat, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "petrov acknowledged the emergency ticket list")
	}), false).Return(nil)

	require.NoError(t, f.svc.HandleCallback(context.Background(), msg,
		domain.CallbackPayload{Kind: domain.CallbackAcknowledge, Technician: "petrov"}))

	f.tickets.AssertExpectations(t)
}

// --- /tasks dispatch ---

func TestTasksPrivateRegisteredRunsPersonalDigests(t *testing.T) {
	f := newDialogFixture(t)
	f.users.On("IsRegistered", mock.Anything, testChat).Return(true, nil)
	f.channel.On("SendText", mock.Anything, testChat, msgReportStarting, false).Return(nil)
	f.reports.On("SendPersonalDigests", mock.Anything).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "tasks", privateMsg("/tasks")))
	f.reports.AssertExpectations(t)
}

func TestTasksPrivateUnregisteredIgnored(t *testing.T) {
	f := newDialogFixture(t)
	f.users.On("IsRegistered", mock.Anything, testChat).Return(false, nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "tasks", privateMsg("/tasks")))
	f.reports.AssertNotCalled(t, "SendPersonalDigests", mock.Anything)
	f.channel.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTasksGroupAdminRunsBroadcast(t *testing.T) {
	f := newDialogFixture(t)
	msg := groupMsg(adminUser)
	f.channel.On("SendText", mock.Anything, msg.ChatID, msgReportStarting, false).Return(nil)
	f.reports.On("BroadcastOpenTickets", mock.Anything).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "tasks", msg))
	f.reports.AssertExpectations(t)
}

func TestTasksGroupNonAdminRefused(t *testing.T) {
	f := newDialogFixture(t)
	msg := groupMsg(7)
	f.channel.On("SendText", mock.Anything, msg.ChatID, msgTasksNotAllowed, false).Return(nil)

	require.NoError(t, f.svc.HandleCommand(context.Background(), "tasks", msg))
	f.reports.AssertNotCalled(t, "BroadcastOpenTickets", mock.Anything)
}
