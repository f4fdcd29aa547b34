package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

// MockTicketGateway is a mock implementation of ports.TicketGateway
type MockTicketGateway struct {
	mock.Mock
}

func NewMockTicketGateway() *MockTicketGateway {
	return &MockTicketGateway{}
}

func (m *MockTicketGateway) ListOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketGateway) ListTechnicianTickets(ctx context.Context, technician string) ([]domain.Ticket, error) {
	args := m.Called(ctx, technician)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketGateway) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketGateway) AcceptTicket(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTicketGateway) RescheduleTicket(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockTicketGateway) FinishTicket(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTicketGateway) SetResolution(ctx context.Context, id, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

func (m *MockTicketGateway) DeleteTicket(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTicketGateway) ValidateTechnicianCredentials(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(ctx, username, password)
	return args.Bool(0), args.Error(1)
}

// MockMessageChannel is a mock implementation of ports.MessageChannel
type MockMessageChannel struct {
	mock.Mock
}

func NewMockMessageChannel() *MockMessageChannel {
	return &MockMessageChannel{}
}

func (m *MockMessageChannel) SendText(ctx context.Context, chatID int64, text string, html bool) error {
	args := m.Called(ctx, chatID, text, html)
	return args.Error(0)
}

func (m *MockMessageChannel) SendTextWithButtons(ctx context.Context, chatID int64, text string, html bool, rows [][]ports.Button) error {
	args := m.Called(ctx, chatID, text, html, rows)
	return args.Error(0)
}

func (m *MockMessageChannel) SendDocument(ctx context.Context, chatID int64, path string) error {
	args := m.Called(ctx, chatID, path)
	return args.Error(0)
}

func (m *MockMessageChannel) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

func (m *MockMessageChannel) ClearButtons(ctx context.Context, chatID int64, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

// MockUserDirectory is a mock implementation of ports.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func NewMockUserDirectory() *MockUserDirectory {
	return &MockUserDirectory{}
}

func (m *MockUserDirectory) IsRegistered(ctx context.Context, chatID int64) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserDirectory) Register(ctx context.Context, user domain.RegisteredUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserDirectory) FindByChat(ctx context.Context, chatID int64) (*domain.RegisteredUser, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegisteredUser), args.Error(1)
}

func (m *MockUserDirectory) FindByTechnician(ctx context.Context, technician string) (*domain.RegisteredUser, error) {
	args := m.Called(ctx, technician)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegisteredUser), args.Error(1)
}

func (m *MockUserDirectory) SetStatus(ctx context.Context, chatID int64, status domain.UserStatus) error {
	args := m.Called(ctx, chatID, status)
	return args.Error(0)
}

// MockSessionStore is a mock implementation of ports.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) Get(ctx context.Context, chatID int64) (domain.Session, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockSessionStore) Put(ctx context.Context, session domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) Clear(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// MockReportService is a mock implementation of ports.ReportService
type MockReportService struct {
	mock.Mock
}

func NewMockReportService() *MockReportService {
	return &MockReportService{}
}

func (m *MockReportService) BroadcastOpenTickets(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockReportService) SendPersonalDigests(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
