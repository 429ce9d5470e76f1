// Package sessions содержит бизнес-логику сессий лаунчера: вход по нику
// и паролю, проверку активной сессии и выход. Бан и состояние подписки
// перепроверяются при каждом обращении, поэтому сессия не переживает
// блокировку или истечение подписки, даже если сам токен ещё жив.
package sessions

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
	"github.com/ravensoft/license-server/internal/sessions"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// Типизированные ошибки аутентификации. Граница HTTP переводит их
// в структурированные ответы, тексты для пользователя выбирает она.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDeviceMismatch       = errors.New("device mismatch")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
)

// AccountBannedError несёт причину блокировки для показа пользователю.
type AccountBannedError struct {
	Reason string
}

func (e *AccountBannedError) Error() string {
	if e.Reason == "" {
		return "account banned"
	}
	return "account banned: " + e.Reason
}

// UserRepository определяет методы хранилища пользователей, нужные сервису.
type UserRepository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (*models.User, error)
	BindDevice(ctx context.Context, userID int64, deviceID string) error
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

// Service реализует аутентификацию лаунчера поверх хранилища сессий.
type Service struct {
	users UserRepository
	store sessions.Store
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт новый экземпляр Service с фиксированным TTL сессии.
func New(users UserRepository, store sessions.Store, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		users: users,
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

func truncateDevice(deviceID string) string {
	runes := []rune(deviceID)
	if len(runes) > 16 {
		return string(runes[:16]) + "..."
	}
	return deviceID
}

// Login проверяет учётные данные и выдаёт сессию с фиксированным TTL.
//
// Порядок проверок: учётные данные, бан, привязка устройства, подписка.
// Первое предъявленное устройство привязывается к аккаунту навсегда,
// до административного сброса.
func (s *Service) Login(ctx context.Context, nickname, password, deviceID string) (string, *models.UserSummary, error) {
	const op = "sessions.Login"

	user, err := s.users.GetUserByNickname(ctx, nickname)
	if errors.Is(err, repository.ErrUserNotFound) {
		metrics.LauncherLoginFailures.WithLabelValues("invalid_credentials").Inc()
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	// Точное сравнение строк — внешний контракт лаунчера.
	if user.Password != password {
		metrics.LauncherLoginFailures.WithLabelValues("invalid_credentials").Inc()
		return "", nil, ErrInvalidCredentials
	}
	if user.IsBanned {
		metrics.LauncherLoginFailures.WithLabelValues("banned").Inc()
		return "", nil, &AccountBannedError{Reason: user.BanReason}
	}
	if user.DeviceID != "" && user.DeviceID != deviceID {
		metrics.LauncherLoginFailures.WithLabelValues("device_mismatch").Inc()
		return "", nil, ErrDeviceMismatch
	}
	if user.DeviceID == "" && deviceID != "" {
		if err := s.users.BindDevice(ctx, user.ID, deviceID); err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	now := time.Now().UTC()
	if !ledger.IsActive(user.Subscription, now) {
		metrics.LauncherLoginFailures.WithLabelValues("no_subscription").Inc()
		return "", nil, ErrNoActiveSubscription
	}

	sessionToken, err := token.NewSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	session := models.Session{
		Token:     sessionToken,
		UserID:    user.ID,
		Nickname:  user.Nickname,
		DeviceID:  deviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, session); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.users.AppendAudit(ctx, models.AuditEntry{
		UserID:    user.ID,
		Action:    models.ActionLauncherLogin,
		Details:   "HWID: " + truncateDevice(deviceID),
		CreatedAt: now,
	})
	if err != nil {
		s.log.Warn("failed to append audit entry", sl.Err(err))
	}

	metrics.LauncherLogins.Inc()
	s.log.Info("launcher login", slog.Int64("user_id", user.ID))

	return sessionToken, &models.UserSummary{
		UserID:       user.ID,
		Nickname:     user.Nickname,
		Subscription: ledger.Info(user.Subscription, now),
	}, nil
}

// Verify проверяет сессию и заново сверяет состояние пользователя.
// Просроченный токен попутно выселяется из набора.
func (s *Service) Verify(ctx context.Context, sessionToken, deviceID string) (*models.UserSummary, error) {
	const op = "sessions.Verify"

	session, err := s.store.Get(ctx, sessionToken)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		if err := s.store.Delete(ctx, sessionToken); err != nil {
			s.log.Warn("failed to evict expired session", sl.Err(err))
		}
		return nil, ErrSessionExpired
	}
	if session.DeviceID != deviceID {
		return nil, ErrDeviceMismatch
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, &AccountBannedError{Reason: user.BanReason}
	}
	if !ledger.IsActive(user.Subscription, now) {
		return nil, ErrNoActiveSubscription
	}

	return &models.UserSummary{
		UserID:       user.ID,
		Nickname:     user.Nickname,
		Subscription: ledger.Info(user.Subscription, now),
	}, nil
}

// Logout идемпотентно убирает токен из активного набора.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	return s.store.Delete(ctx, sessionToken)
}

// Online возвращает число активных сессий, предварительно выселив просроченные.
func (s *Service) Online(ctx context.Context) (int, error) {
	if _, err := s.store.DeleteExpired(ctx, time.Now().UTC()); err != nil {
		return 0, err
	}
	return s.store.Count(ctx)
}

// Sweep периодически выселяет просроченные сессии, ограничивая рост памяти.
// Корректность от него не зависит: Verify проверяет срок при каждом вызове.
func (s *Service) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				s.log.Warn("session sweep failed", sl.Err(err))
				continue
			}
			if removed > 0 {
				s.log.Info("session sweep", slog.Int("removed", removed))
			}
		}
	}
}
