package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
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

func (m *MockRepository) CreatePayment(ctx context.Context, p models.PaymentRequest) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) ListPendingPayments(ctx context.Context) ([]*models.PaymentRequest, error) {
	args := m.Called(ctx)
	payments, _ := args.Get(0).([]*models.PaymentRequest)
	return payments, args.Error(1)
}

func (m *MockRepository) ConfirmPayment(ctx context.Context, id string, operatorID int64, now time.Time) (*models.PaymentRequest, models.Subscription, error) {
	args := m.Called(ctx, id, operatorID, now)
	p, _ := args.Get(0).(*models.PaymentRequest)
	sub, _ := args.Get(1).(models.Subscription)
	return p, sub, args.Error(2)
}

func (m *MockRepository) RejectPayment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
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

func TestService_Create(t *testing.T) {
	t.Run("unknown tier fails fast", func(t *testing.T) {
		service := New(new(MockRepository), nil, newNoopLogger())
		_, err := service.Create(context.Background(), 42, 299.0, "lifetime")
		assert.ErrorIs(t, err, ErrUnknownTier)
	})

	t.Run("success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p models.PaymentRequest) bool {
			return p.UserID == 42 && p.Amount == 299.0 &&
				p.Type == models.Tier30Days && p.Status == models.PaymentPending
		})).Return(nil).Once()

		service := New(repo, nil, newNoopLogger())
		id, err := service.Create(context.Background(), 42, 299.0, models.Tier30Days)
		require.NoError(t, err)

		_, err = uuid.Parse(id)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestService_Confirm(t *testing.T) {
	t.Run("success publishes notification", func(t *testing.T) {
		repo := new(MockRepository)
		notify := new(MockNotifier)

		paymentID := uuid.NewString()
		confirmed := &models.PaymentRequest{
			ID:     paymentID,
			UserID: 42,
			Amount: 299.0,
			Type:   models.Tier30Days,
			Status: models.PaymentConfirmed,
		}
		granted := models.Subscription{
			State: models.SubscriptionFinite,
			Type:  models.Tier30Days,
			End:   time.Now().UTC().AddDate(0, 0, 30),
		}
		repo.On("ConfirmPayment", mock.Anything, paymentID, int64(7), mock.Anything).
			Return(confirmed, granted, nil).Once()
		notify.On("Publish", mock.MatchedBy(func(e notifier.Event) bool {
			return e.Kind == notifier.EventPaymentConfirmed && e.UserID == 42
		})).Return(nil).Once()

		service := New(repo, notify, newNoopLogger())
		p, info, err := service.Confirm(context.Background(), paymentID, 7)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentConfirmed, p.Status)
		assert.True(t, info.Active)

		repo.AssertExpectations(t)
		notify.AssertExpectations(t)
	})

	t.Run("second confirmation is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		paymentID := uuid.NewString()
		repo.On("ConfirmPayment", mock.Anything, paymentID, int64(7), mock.Anything).
			Return(nil, models.Subscription{}, repository.ErrPaymentAlreadyResolved).Once()

		service := New(repo, nil, newNoopLogger())
		_, _, err := service.Confirm(context.Background(), paymentID, 7)
		assert.ErrorIs(t, err, repository.ErrPaymentAlreadyResolved)
	})
}

func TestService_Reject(t *testing.T) {
	repo := new(MockRepository)
	paymentID := uuid.NewString()
	repo.On("RejectPayment", mock.Anything, paymentID).Return(nil).Once()

	service := New(repo, nil, newNoopLogger())
	assert.NoError(t, service.Reject(context.Background(), paymentID))
	repo.AssertExpectations(t)
}
