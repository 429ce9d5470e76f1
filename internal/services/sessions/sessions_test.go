package sessions

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/sessions"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	args := m.Called(ctx, nickname)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) BindDevice(ctx context.Context, userID int64, deviceID string) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}

func (m *MockUserRepository) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func activeUser() *models.User {
	return &models.User{
		ID:       100,
		Nickname: "player1",
		Password: "secret",
		DeviceID: "hwid-abc",
		Subscription: models.Subscription{
			State: models.SubscriptionFinite,
			Type:  models.Tier30Days,
			End:   time.Now().UTC().Add(10 * 24 * time.Hour),
		},
	}
}

func TestService_Login(t *testing.T) {
	tests := []struct {
		name       string
		nickname   string
		password   string
		deviceID   string
		setupMocks func(*MockUserRepository)
		wantErr    error
		wantBanned bool
	}{
		{
			name:     "success",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-abc",
			setupMocks: func(r *MockUserRepository) {
				r.On("GetUserByNickname", mock.Anything, "player1").Return(activeUser(), nil).Once()
				r.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:     "unknown nickname",
			nickname: "ghost",
			password: "secret",
			setupMocks: func(r *MockUserRepository) {
				r.On("GetUserByNickname", mock.Anything, "ghost").
					Return(nil, repository.ErrUserNotFound).Once()
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "storage failure is not invalid credentials",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-abc",
			setupMocks: func(r *MockUserRepository) {
				r.On("GetUserByNickname", mock.Anything, "player1").
					Return(nil, assert.AnError).Once()
			},
			wantErr: assert.AnError,
		},
		{
			name:     "wrong password",
			nickname: "player1",
			password: "wrong",
			deviceID: "hwid-abc",
			setupMocks: func(r *MockUserRepository) {
				r.On("GetUserByNickname", mock.Anything, "player1").Return(activeUser(), nil).Once()
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "banned account",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-abc",
			setupMocks: func(r *MockUserRepository) {
				user := activeUser()
				user.IsBanned = true
				user.BanReason = "cheating"
				r.On("GetUserByNickname", mock.Anything, "player1").Return(user, nil).Once()
			},
			wantBanned: true,
		},
		{
			name:     "device mismatch",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-other",
			setupMocks: func(r *MockUserRepository) {
				r.On("GetUserByNickname", mock.Anything, "player1").Return(activeUser(), nil).Once()
			},
			wantErr: ErrDeviceMismatch,
		},
		{
			name:     "first login binds device",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-new",
			setupMocks: func(r *MockUserRepository) {
				user := activeUser()
				user.DeviceID = ""
				r.On("GetUserByNickname", mock.Anything, "player1").Return(user, nil).Once()
				r.On("BindDevice", mock.Anything, int64(100), "hwid-new").Return(nil).Once()
				r.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Once()
			},
		},
		{
			name:     "expired subscription",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-abc",
			setupMocks: func(r *MockUserRepository) {
				user := activeUser()
				user.Subscription.End = time.Now().UTC().Add(-time.Hour)
				r.On("GetUserByNickname", mock.Anything, "player1").Return(user, nil).Once()
			},
			wantErr: ErrNoActiveSubscription,
		},
		{
			name:     "no subscription at all",
			nickname: "player1",
			password: "secret",
			deviceID: "hwid-abc",
			setupMocks: func(r *MockUserRepository) {
				user := activeUser()
				user.Subscription = models.Subscription{State: models.SubscriptionNone}
				r.On("GetUserByNickname", mock.Anything, "player1").Return(user, nil).Once()
			},
			wantErr: ErrNoActiveSubscription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMocks(repo)
			service := New(repo, sessions.NewMemoryStore(), 24*time.Hour, newNoopLogger())

			token, summary, err := service.Login(context.Background(), tt.nickname, tt.password, tt.deviceID)

			switch {
			case tt.wantBanned:
				var banned *AccountBannedError
				assert.ErrorAs(t, err, &banned)
				assert.Equal(t, "cheating", banned.Reason)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantErr != ErrInvalidCredentials {
					assert.NotErrorIs(t, err, ErrInvalidCredentials)
				}
				assert.Empty(t, token)
			default:
				require.NoError(t, err)
				assert.Len(t, token, 64)
				assert.Equal(t, int64(100), summary.UserID)
				assert.True(t, summary.Subscription.Active)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestTruncateDevice(t *testing.T) {
	assert.Equal(t, "hwid-abc", truncateDevice("hwid-abc"))
	assert.Equal(t, "0123456789abcdef...", truncateDevice("0123456789abcdefXYZ"))
	// hwid из многобайтовых символов режется по рунам, не по байтам.
	assert.Equal(t, strings.Repeat("ж", 16)+"...", truncateDevice(strings.Repeat("ж", 20)))
}

func TestService_Verify(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUserByNickname", mock.Anything, "player1").Return(activeUser(), nil)
	repo.On("AppendAudit", mock.Anything, mock.Anything).Return(nil)

	store := sessions.NewMemoryStore()
	service := New(repo, store, 24*time.Hour, newNoopLogger())

	token, _, err := service.Login(context.Background(), "player1", "secret", "hwid-abc")
	require.NoError(t, err)

	t.Run("valid session", func(t *testing.T) {
		repo.On("GetUser", mock.Anything, int64(100)).Return(activeUser(), nil).Once()

		summary, err := service.Verify(context.Background(), token, "hwid-abc")
		require.NoError(t, err)
		assert.Equal(t, "player1", summary.Nickname)
		assert.True(t, summary.Subscription.Active)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := service.Verify(context.Background(), "deadbeef", "hwid-abc")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("device mismatch", func(t *testing.T) {
		_, err := service.Verify(context.Background(), token, "hwid-other")
		assert.ErrorIs(t, err, ErrDeviceMismatch)
	})

	t.Run("ban after login kills session", func(t *testing.T) {
		banned := activeUser()
		banned.IsBanned = true
		banned.BanReason = "refund abuse"
		repo.On("GetUser", mock.Anything, int64(100)).Return(banned, nil).Once()

		_, err := service.Verify(context.Background(), token, "hwid-abc")
		var bannedErr *AccountBannedError
		assert.ErrorAs(t, err, &bannedErr)
	})

	t.Run("subscription expiry after login kills session", func(t *testing.T) {
		expired := activeUser()
		expired.Subscription.End = time.Now().UTC().Add(-time.Minute)
		repo.On("GetUser", mock.Anything, int64(100)).Return(expired, nil).Once()

		_, err := service.Verify(context.Background(), token, "hwid-abc")
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
	})

	t.Run("expired session is evicted", func(t *testing.T) {
		err := store.Put(context.Background(), models.Session{
			Token:     "expiredtoken",
			UserID:    100,
			DeviceID:  "hwid-abc",
			ExpiresAt: time.Now().UTC().Add(-time.Second),
		})
		require.NoError(t, err)

		_, err = service.Verify(context.Background(), "expiredtoken", "hwid-abc")
		assert.ErrorIs(t, err, ErrSessionExpired)

		// Повторная проверка: токен уже выселен.
		_, err = service.Verify(context.Background(), "expiredtoken", "hwid-abc")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestService_Logout(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetUserByNickname", mock.Anything, "player1").Return(activeUser(), nil)
	repo.On("AppendAudit", mock.Anything, mock.Anything).Return(nil)

	service := New(repo, sessions.NewMemoryStore(), 24*time.Hour, newNoopLogger())

	token, _, err := service.Login(context.Background(), "player1", "secret", "hwid-abc")
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), token))

	_, err = service.Verify(context.Background(), token, "hwid-abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Повторный выход с тем же токеном не ошибка.
	assert.NoError(t, service.Logout(context.Background(), token))
}

func TestService_Online(t *testing.T) {
	repo := new(MockUserRepository)
	store := sessions.NewMemoryStore()
	service := New(repo, store, 24*time.Hour, newNoopLogger())

	now := time.Now().UTC()
	require.NoError(t, store.Put(context.Background(), models.Session{
		Token: "alive", ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.Put(context.Background(), models.Session{
		Token: "stale", ExpiresAt: now.Add(-time.Hour),
	}))

	count, err := service.Online(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
