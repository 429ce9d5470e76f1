// Package users содержит бизнес-логику работы с учётными записями:
// регистрация, блокировки, административная выдача и снятие подписки,
// статистика магазина и журнал действий.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ravensoft/license-server/internal/ledger"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/notifier"
)

// ErrUnknownTier возвращается при попытке выдать подписку несуществующего тарифа.
var ErrUnknownTier = errors.New("unknown subscription tier")

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	SetBan(ctx context.Context, userID int64, banned bool, reason string) error
	UpdateSubscription(ctx context.Context, userID int64, sub models.Subscription) error
	ResetDevice(ctx context.Context, userID int64) error
	GetStats(ctx context.Context) (*models.Stats, error)
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	ListUserAudit(ctx context.Context, userID int64, limit int) ([]*models.AuditEntry, error)
}

// Notifier публикует события для доставки пользователю ботом.
type Notifier interface {
	Publish(event notifier.Event) error
}

// Service реализует операции над учётными записями.
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

// audit дописывает запись журнала. Сбой журнала не откатывает действие.
func (s *Service) audit(ctx context.Context, userID int64, action, details string) {
	err := s.repo.AppendAudit(ctx, models.AuditEntry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to append audit entry", slog.String("action", action), sl.Err(err))
	}
}

// publish отправляет событие пользователю. Доставка необязательная.
func (s *Service) publish(event notifier.Event) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Publish(event); err != nil {
		s.log.Warn("failed to publish notification", slog.String("kind", event.Kind), sl.Err(err))
	}
}

// Register создаёт нового пользователя.
func (s *Service) Register(ctx context.Context, userID int64, displayName, nickname, password string) error {
	user := models.User{
		ID:           userID,
		DisplayName:  displayName,
		Nickname:     nickname,
		Password:     password,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return err
	}
	s.audit(ctx, userID, models.ActionRegister, fmt.Sprintf("Зарегистрирован с ником %s", nickname))
	return nil
}

// Get возвращает пользователя по ID.
func (s *Service) Get(ctx context.Context, userID int64) (*models.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// List возвращает всех пользователей.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

// Ban блокирует пользователя и уведомляет его.
func (s *Service) Ban(ctx context.Context, userID int64, reason string) error {
	if err := s.repo.SetBan(ctx, userID, true, reason); err != nil {
		return err
	}
	s.audit(ctx, userID, models.ActionBan, fmt.Sprintf("Забанен. Причина: %s", reason))
	s.publish(notifier.Event{
		UserID:  userID,
		Kind:    notifier.EventBanned,
		Message: reason,
	})
	return nil
}

// Unban снимает блокировку.
func (s *Service) Unban(ctx context.Context, userID int64) error {
	if err := s.repo.SetBan(ctx, userID, false, ""); err != nil {
		return err
	}
	s.audit(ctx, userID, models.ActionUnban, "Разбанен")
	s.publish(notifier.Event{
		UserID: userID,
		Kind:   notifier.EventUnbanned,
	})
	return nil
}

// GrantSubscription выдаёт подписку административно. Для конечных тарифов
// days может переопределять длительность из словаря тарифов, ноль означает
// «взять из словаря». Продление действующей подписки складывается с остатком.
func (s *Service) GrantSubscription(ctx context.Context, userID int64, subType string, days int) (models.SubscriptionInfo, error) {
	tierDays, ok := models.TierDays[subType]
	if !ok {
		return models.SubscriptionInfo{}, ErrUnknownTier
	}
	if days == 0 {
		days = tierDays
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return models.SubscriptionInfo{}, err
	}

	now := time.Now().UTC()
	newSub := ledger.Grant(user.Subscription, subType, days, now)
	if err := s.repo.UpdateSubscription(ctx, userID, newSub); err != nil {
		return models.SubscriptionInfo{}, err
	}
	s.audit(ctx, userID, models.ActionSubscriptionAdd, fmt.Sprintf("Добавлена подписка: %s", subType))
	s.publish(notifier.Event{
		UserID:  userID,
		Kind:    notifier.EventSubscription,
		Message: subType,
	})
	return ledger.Info(newSub, now), nil
}

// RemoveSubscription снимает подписку безусловно.
func (s *Service) RemoveSubscription(ctx context.Context, userID int64) error {
	if err := s.repo.UpdateSubscription(ctx, userID, ledger.Remove()); err != nil {
		return err
	}
	s.audit(ctx, userID, models.ActionSubscriptionRemove, "Подписка удалена")
	return nil
}

// ResetDevice снимает привязку устройства (административный сброс).
func (s *Service) ResetDevice(ctx context.Context, userID int64) error {
	return s.repo.ResetDevice(ctx, userID)
}

// Stats возвращает агрегированную статистику магазина.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.GetStats(ctx)
}

// AuditTrail возвращает последние записи журнала по пользователю.
func (s *Service) AuditTrail(ctx context.Context, userID int64, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListUserAudit(ctx, userID, limit)
}
