package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ravensoft/license-server/internal/models"
)

func TestRedisStore_Put_ExpiredSession(t *testing.T) {
	store := &RedisStore{}

	// Сессия с истёкшим сроком не должна молча "сохраняться" в никуда:
	// такой токен Verify никогда не найдёт.
	err := store.Put(context.Background(), models.Session{
		Token:     "deadbeef",
		UserID:    100,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})
	assert.Error(t, err)
}
