// Package payments содержит бизнес-логику заявок на ручную оплату:
// создание, подтверждение оператором и отклонение.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ravensoft/license-server/internal/ledger"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/metrics"
	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/notifier"
)

// ErrUnknownTier возвращается при создании заявки на несуществующий тариф.
// Неизвестный тариф отсекается сразу, а не при подтверждении.
var ErrUnknownTier = errors.New("unknown payment tier")

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	CreatePayment(ctx context.Context, p models.PaymentRequest) error
	ListPendingPayments(ctx context.Context) ([]*models.PaymentRequest, error)
	ConfirmPayment(ctx context.Context, id string, operatorID int64, now time.Time) (*models.PaymentRequest, models.Subscription, error)
	RejectPayment(ctx context.Context, id string) error
}

// Notifier публикует события для доставки пользователю ботом.
type Notifier interface {
	Publish(event notifier.Event) error
}

// Service реализует операции над платёжными заявками.
type Service struct {
	repo   Repository
	notify Notifier
	log    *slog.Logger
}

// New создаёт новый экземпляр Service.
func New(repo Repository, notify Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		notify: notify,
		log:    log,
	}
}

// Create регистрирует заявку на оплату и возвращает её ID.
func (s *Service) Create(ctx context.Context, userID int64, amount float64, subType string) (string, error) {
	if _, ok := models.TierDays[subType]; !ok {
		return "", ErrUnknownTier
	}

	p := models.PaymentRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Type:      subType,
		Status:    models.PaymentPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return "", err
	}
	s.log.Info("created payment request",
		slog.String("id", p.ID), slog.Int64("user_id", userID), slog.String("type", subType))
	return p.ID, nil
}

// ListPending возвращает неразрешённые заявки.
func (s *Service) ListPending(ctx context.Context) ([]*models.PaymentRequest, error) {
	return s.repo.ListPendingPayments(ctx)
}

// Confirm подтверждает заявку от имени оператора. Эффекты — продление
// подписки, прирост total_paid и запись журнала — применяются ровно один
// раз; повторное подтверждение получает repository.ErrPaymentAlreadyResolved.
func (s *Service) Confirm(ctx context.Context, id string, operatorID int64) (*models.PaymentRequest, models.SubscriptionInfo, error) {
	now := time.Now().UTC()
	p, newSub, err := s.repo.ConfirmPayment(ctx, id, operatorID, now)
	if err != nil {
		return nil, models.SubscriptionInfo{}, err
	}

	metrics.PaymentsConfirmed.Inc()
	s.log.Info("payment confirmed",
		slog.String("id", id), slog.Int64("operator_id", operatorID))

	if s.notify != nil {
		err = s.notify.Publish(notifier.Event{
			UserID:  p.UserID,
			Kind:    notifier.EventPaymentConfirmed,
			Message: fmt.Sprintf("%s, %.2f₽", p.Type, p.Amount),
		})
		if err != nil {
			s.log.Warn("failed to publish notification", sl.Err(err))
		}
	}
	return p, ledger.Info(newSub, now), nil
}

// Reject отклоняет заявку без побочных эффектов.
// Отсутствующая заявка не считается ошибкой.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.repo.RejectPayment(ctx, id)
}
