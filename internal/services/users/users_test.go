package users

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/notifier"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *MockRepository) SetBan(ctx context.Context, userID int64, banned bool, reason string) error {
	args := m.Called(ctx, userID, banned, reason)
	return args.Error(0)
}

func (m *MockRepository) UpdateSubscription(ctx context.Context, userID int64, sub models.Subscription) error {
	args := m.Called(ctx, userID, sub)
	return args.Error(0)
}

func (m *MockRepository) ResetDevice(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.Stats)
	return stats, args.Error(1)
}

func (m *MockRepository) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepository) ListUserAudit(ctx context.Context, userID int64, limit int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]*models.AuditEntry)
	return entries, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(event notifier.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_Register(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.ID == 42 && u.Nickname == "player1" && !u.RegisteredAt.IsZero()
	})).Return(nil).Once()
	repo.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.UserID == 42 && e.Action == models.ActionRegister
	})).Return(nil).Once()

	service := New(repo, nil, newNoopLogger())
	err := service.Register(context.Background(), 42, "Display", "player1", "secret")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Ban(t *testing.T) {
	repo := new(MockRepository)
	notify := new(MockNotifier)

	repo.On("SetBan", mock.Anything, int64(42), true, "cheating").Return(nil).Once()
	repo.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == models.ActionBan
	})).Return(nil).Once()
	notify.On("Publish", mock.MatchedBy(func(e notifier.Event) bool {
		return e.Kind == notifier.EventBanned && e.UserID == 42 && e.Message == "cheating"
	})).Return(nil).Once()

	service := New(repo, notify, newNoopLogger())
	require.NoError(t, service.Ban(context.Background(), 42, "cheating"))

	repo.AssertExpectations(t)
	notify.AssertExpectations(t)
}

func TestService_Ban_NotificationFailureDoesNotFailBan(t *testing.T) {
	repo := new(MockRepository)
	notify := new(MockNotifier)

	repo.On("SetBan", mock.Anything, int64(42), true, "spam").Return(nil).Once()
	repo.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
	notify.On("Publish", mock.Anything).Return(assert.AnError).Once()

	service := New(repo, notify, newNoopLogger())
	assert.NoError(t, service.Ban(context.Background(), 42, "spam"))
}

func TestService_GrantSubscription(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name        string
		subType     string
		days        int
		current     models.Subscription
		wantErr     error
		checkUpdate func(t *testing.T, sub models.Subscription)
		wantActive  bool
	}{
		{
			name:    "unknown tier",
			subType: "lifetime",
			wantErr: ErrUnknownTier,
		},
		{
			name:    "fresh grant uses tier days",
			subType: models.Tier30Days,
			current: models.Subscription{State: models.SubscriptionNone},
			checkUpdate: func(t *testing.T, sub models.Subscription) {
				assert.Equal(t, models.SubscriptionFinite, sub.State)
				assert.WithinDuration(t, now.AddDate(0, 0, 30), sub.End, time.Minute)
			},
			wantActive: true,
		},
		{
			name:    "active subscription stacks",
			subType: models.Tier30Days,
			current: models.Subscription{
				State: models.SubscriptionFinite,
				Type:  models.Tier14Days,
				End:   now.AddDate(0, 0, 10),
			},
			checkUpdate: func(t *testing.T, sub models.Subscription) {
				assert.WithinDuration(t, now.AddDate(0, 0, 40), sub.End, time.Minute)
			},
			wantActive: true,
		},
		{
			name:    "explicit days override",
			subType: models.Tier1Day,
			days:    7,
			current: models.Subscription{State: models.SubscriptionNone},
			checkUpdate: func(t *testing.T, sub models.Subscription) {
				assert.WithinDuration(t, now.AddDate(0, 0, 7), sub.End, time.Minute)
			},
			wantActive: true,
		},
		{
			name:    "forever grant",
			subType: models.TierForever,
			current: models.Subscription{State: models.SubscriptionNone},
			checkUpdate: func(t *testing.T, sub models.Subscription) {
				assert.Equal(t, models.SubscriptionForever, sub.State)
			},
			wantActive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.wantErr == nil {
				repo.On("GetUser", mock.Anything, int64(42)).
					Return(&models.User{ID: 42, Subscription: tt.current}, nil).Once()
				repo.On("UpdateSubscription", mock.Anything, int64(42), mock.MatchedBy(func(sub models.Subscription) bool {
					tt.checkUpdate(t, sub)
					return true
				})).Return(nil).Once()
				repo.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
			}

			service := New(repo, nil, newNoopLogger())
			info, err := service.GrantSubscription(context.Background(), 42, tt.subType, tt.days)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, info.Active)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_RemoveSubscription(t *testing.T) {
	repo := new(MockRepository)
	repo.On("UpdateSubscription", mock.Anything, int64(42), models.Subscription{State: models.SubscriptionNone}).
		Return(nil).Once()
	repo.On("AppendAudit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.Action == models.ActionSubscriptionRemove
	})).Return(nil).Once()

	service := New(repo, nil, newNoopLogger())
	require.NoError(t, service.RemoveSubscription(context.Background(), 42))
	repo.AssertExpectations(t)
}

func TestService_AuditTrail_DefaultLimit(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListUserAudit", mock.Anything, int64(42), 10).
		Return([]*models.AuditEntry{}, nil).Once()

	service := New(repo, nil, newNoopLogger())
	_, err := service.AuditTrail(context.Background(), 42, 0)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
