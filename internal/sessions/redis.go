package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ravensoft/license-server/internal/config"
	"github.com/ravensoft/license-server/internal/models"
)

const keyPrefix = "session:"

// RedisStore хранит сессии в Redis. TTL ключа совпадает со сроком жизни
// сессии, так что просроченные записи Redis выбрасывает сам.
type RedisStore struct {
	db *redis.Client
}

// NewRedisStore подключается к Redis и возвращает хранилище сессий.
func NewRedisStore(ctx context.Context, cfg config.RedisConnection) (*RedisStore, error) {
	const op = "sessions.NewRedisStore"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RedisStore{db: db}, nil
}

// Put сохраняет сессию с TTL до её истечения.
func (r *RedisStore) Put(ctx context.Context, s models.Session) error {
	const op = "sessions.RedisStore.Put"
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: session already expired at %s", op, s.ExpiresAt)
	}
	if err := r.db.Set(ctx, keyPrefix+s.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get возвращает сессию по токену.
func (r *RedisStore) Get(ctx context.Context, token string) (*models.Session, error) {
	const op = "sessions.RedisStore.Get"
	val, err := r.db.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var s models.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

// Delete убирает токен из набора.
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	const op = "sessions.RedisStore.Delete"
	if err := r.db.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Count возвращает число активных сессий.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	const op = "sessions.RedisStore.Count"
	var cursor uint64
	count := 0
	for {
		keys, next, err := r.db.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// DeleteExpired ничего не делает: просроченные ключи Redis удаляет по TTL.
func (r *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
