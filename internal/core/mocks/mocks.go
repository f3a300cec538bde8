package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

// MockMessageRepository is a mock implementation of ports.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Echo the argument back when the test returns a function.
	if fn, ok := args.Get(0).(func(context.Context, *domain.ChatMessage) *domain.ChatMessage); ok {
		return fn(ctx, msg), args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID string, after domain.MessageCursor, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, conversationID, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockChatService is a mock implementation of ports.ChatService
type MockChatService struct {
	mock.Mock
}

func NewMockChatService() *MockChatService {
	return &MockChatService{}
}

func (m *MockChatService) HandleInbound(ctx context.Context, params ports.InboundMessageParams) (*domain.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, params ports.ListMessagesParams) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) PushStatus(ctx context.Context, params ports.StatusUpdateParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockNotificationSink is a mock implementation of ports.NotificationSink
type MockNotificationSink struct {
	mock.Mock
}

func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{}
}

func (m *MockNotificationSink) Toast(n domain.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockNotificationSink) ShowNative(n domain.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockNotificationSink) PlayCue() error {
	args := m.Called()
	return args.Error(0)
}

// MockPermissionProvider is a mock implementation of ports.PermissionProvider
type MockPermissionProvider struct {
	mock.Mock
}

func NewMockPermissionProvider() *MockPermissionProvider {
	return &MockPermissionProvider{}
}

func (m *MockPermissionProvider) Permission() domain.Permission {
	args := m.Called()
	return args.Get(0).(domain.Permission)
}

func (m *MockPermissionProvider) RequestPermission(ctx context.Context) (domain.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Permission), args.Error(1)
}

// MockVisibilityProbe is a mock implementation of ports.VisibilityProbe
type MockVisibilityProbe struct {
	mock.Mock
}

func NewMockVisibilityProbe() *MockVisibilityProbe {
	return &MockVisibilityProbe{}
}

func (m *MockVisibilityProbe) Visible() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockIntentAnalyzer is a mock implementation of ports.IntentAnalyzer
type MockIntentAnalyzer struct {
	mock.Mock
}

func NewMockIntentAnalyzer() *MockIntentAnalyzer {
	return &MockIntentAnalyzer{}
}

func (m *MockIntentAnalyzer) AnalyzeUserIntent(text string) domain.IntentAnalysis {
	args := m.Called(text)
	return args.Get(0).(domain.IntentAnalysis)
}

func (m *MockIntentAnalyzer) AnalyzeConversationProgression(history []domain.ChatMessage) domain.Progression {
	args := m.Called(history)
	return args.Get(0).(domain.Progression)
}

func (m *MockIntentAnalyzer) SuggestFollowUps(intent domain.Intent) []string {
	args := m.Called(intent)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
