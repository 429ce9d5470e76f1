package keys

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
	"github.com/ravensoft/license-server/internal/notifier"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateKey(ctx context.Context, key models.RedemptionKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRepository) ListKeys(ctx context.Context) ([]*models.RedemptionKey, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]*models.RedemptionKey)
	return keys, args.Error(1)
}

func (m *MockRepository) DeleteUnusedKey(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRepository) ActivateKey(ctx context.Context, key string, userID int64, now time.Time) (*models.RedemptionKey, models.Subscription, error) {
	args := m.Called(ctx, key, userID, now)
	k, _ := args.Get(0).(*models.RedemptionKey)
	sub, _ := args.Get(1).(models.Subscription)
	return k, sub, args.Error(2)
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

func TestService_Generate(t *testing.T) {
	t.Run("unknown tier", func(t *testing.T) {
		service := New(new(MockRepository), nil, newNoopLogger())
		_, err := service.Generate(context.Background(), "lifetime", 1)
		assert.ErrorIs(t, err, ErrUnknownTier)
	})

	t.Run("success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreateKey", mock.Anything, mock.MatchedBy(func(k models.RedemptionKey) bool {
			return strings.HasPrefix(k.Key, "RAVEN-") &&
				k.Type == models.Tier30Days && k.Days == 30 && k.CreatedBy == 7
		})).Return(nil).Once()

		service := New(repo, nil, newNoopLogger())
		value, err := service.Generate(context.Background(), models.Tier30Days, 7)
		require.NoError(t, err)
		assert.Len(t, value, len("RAVEN-")+16)
		repo.AssertExpectations(t)
	})

	t.Run("collision triggers regeneration", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreateKey", mock.Anything, mock.Anything).Return(repository.ErrKeyExists).Once()
		repo.On("CreateKey", mock.Anything, mock.Anything).Return(nil).Once()

		service := New(repo, nil, newNoopLogger())
		_, err := service.Generate(context.Background(), models.Tier1Day, 7)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestService_Activate(t *testing.T) {
	t.Run("success publishes notification", func(t *testing.T) {
		repo := new(MockRepository)
		notify := new(MockNotifier)

		granted := models.Subscription{
			State: models.SubscriptionFinite,
			Type:  models.Tier30Days,
			End:   time.Now().UTC().AddDate(0, 0, 30),
		}
		repo.On("ActivateKey", mock.Anything, "RAVEN-AAAA", int64(42), mock.Anything).
			Return(&models.RedemptionKey{Key: "RAVEN-AAAA", Type: models.Tier30Days, Days: 30}, granted, nil).Once()
		notify.On("Publish", mock.MatchedBy(func(e notifier.Event) bool {
			return e.Kind == notifier.EventKeyActivated && e.UserID == 42
		})).Return(nil).Once()

		service := New(repo, notify, newNoopLogger())
		info, err := service.Activate(context.Background(), "RAVEN-AAAA", 42)
		require.NoError(t, err)
		assert.True(t, info.Active)
		assert.Equal(t, models.Tier30Days, info.Type)

		repo.AssertExpectations(t)
		notify.AssertExpectations(t)
	})

	t.Run("already used key", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ActivateKey", mock.Anything, "RAVEN-AAAA", int64(42), mock.Anything).
			Return(nil, models.Subscription{}, repository.ErrKeyAlreadyUsed).Once()

		service := New(repo, nil, newNoopLogger())
		_, err := service.Activate(context.Background(), "RAVEN-AAAA", 42)
		assert.ErrorIs(t, err, repository.ErrKeyAlreadyUsed)
	})
}

func TestService_Delete(t *testing.T) {
	repo := new(MockRepository)
	repo.On("DeleteUnusedKey", mock.Anything, "RAVEN-BBBB").Return(repository.ErrKeyAlreadyUsed).Once()

	service := New(repo, nil, newNoopLogger())
	err := service.Delete(context.Background(), "RAVEN-BBBB")
	assert.ErrorIs(t, err, repository.ErrKeyAlreadyUsed)
}
