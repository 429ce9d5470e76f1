// Package sessions содержит хранилища активных сессий лаунчера.
// Набор активных сессий — разделяемое изменяемое состояние, поэтому обе
// реализации безопасны для конкурентных login/verify/logout и фоновой чистки.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/ravensoft/license-server/internal/models"
)

// ErrNotFound возвращается, когда токена нет в активном наборе.
var ErrNotFound = errors.New("session not found")

// Store описывает контракт хранилища сессий.
type Store interface {
	// Put кладёт сессию в активный набор.
	Put(ctx context.Context, s models.Session) error
	// Get возвращает сессию по токену или ErrNotFound.
	Get(ctx context.Context, token string) (*models.Session, error)
	// Delete убирает токен из набора. Отсутствующий токен — не ошибка.
	Delete(ctx context.Context, token string) error
	// Count возвращает размер активного набора.
	Count(ctx context.Context) (int, error)
	// DeleteExpired убирает сессии с истёкшим сроком и возвращает их число.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
