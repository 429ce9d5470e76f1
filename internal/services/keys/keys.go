// Package keys содержит бизнес-логику выпуска и активации одноразовых
// ключей подписки.
package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ravensoft/license-server/internal/ledger"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/lib/token"
	"github.com/ravensoft/license-server/internal/metrics"
	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/notifier"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// ErrUnknownTier возвращается при попытке выпустить ключ несуществующего тарифа.
var ErrUnknownTier = errors.New("unknown key tier")

// maxGenerateAttempts ограничивает перегенерацию при коллизии ключа.
// Пространство ключей 36^16, так что больше одной попытки не ожидается.
const maxGenerateAttempts = 3

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	CreateKey(ctx context.Context, key models.RedemptionKey) error
	ListKeys(ctx context.Context) ([]*models.RedemptionKey, error)
	DeleteUnusedKey(ctx context.Context, key string) error
	ActivateKey(ctx context.Context, key string, userID int64, now time.Time) (*models.RedemptionKey, models.Subscription, error)
}

// Notifier публикует события для доставки пользователю ботом.
type Notifier interface {
	Publish(event notifier.Event) error
}

// Service реализует операции над ключами активации.
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

// Generate выпускает новый ключ заданного тарифа от имени оператора.
// Коллизия по значению ключа приводит к перегенерации.
func (s *Service) Generate(ctx context.Context, keyType string, createdBy int64) (string, error) {
	days, ok := models.TierDays[keyType]
	if !ok {
		return "", ErrUnknownTier
	}

	var lastErr error
	for i := 0; i < maxGenerateAttempts; i++ {
		value, err := token.NewRedemptionKey()
		if err != nil {
			return "", err
		}
		err = s.repo.CreateKey(ctx, models.RedemptionKey{
			Key:       value,
			Type:      keyType,
			Days:      days,
			CreatedAt: time.Now().UTC(),
			CreatedBy: createdBy,
		})
		if errors.Is(err, repository.ErrKeyExists) {
			lastErr = err
			continue
		}
		if err != nil {
			return "", err
		}
		s.log.Info("generated new key", slog.String("type", keyType), slog.Int64("created_by", createdBy))
		return value, nil
	}
	return "", lastErr
}

// List возвращает все выпущенные ключи.
func (s *Service) List(ctx context.Context) ([]*models.RedemptionKey, error) {
	return s.repo.ListKeys(ctx)
}

// Delete удаляет неиспользованный ключ.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.repo.DeleteUnusedKey(ctx, key)
}

// Activate погашает ключ в пользу пользователя и возвращает сводку
// по применённой подписке. Ключ гасится ровно один раз: при гонке
// остальные вызовы получают repository.ErrKeyAlreadyUsed.
func (s *Service) Activate(ctx context.Context, key string, userID int64) (models.SubscriptionInfo, error) {
	now := time.Now().UTC()
	k, newSub, err := s.repo.ActivateKey(ctx, key, userID, now)
	if err != nil {
		return models.SubscriptionInfo{}, err
	}

	metrics.KeyActivations.Inc()
	s.log.Info("key activated",
		slog.String("type", k.Type), slog.Int64("user_id", userID))

	if s.notify != nil {
		err = s.notify.Publish(notifier.Event{
			UserID:  userID,
			Kind:    notifier.EventKeyActivated,
			Message: fmt.Sprintf("%s (%d дней)", k.Type, k.Days),
		})
		if err != nil {
			s.log.Warn("failed to publish notification", sl.Err(err))
		}
	}
	return ledger.Info(newSub, now), nil
}
