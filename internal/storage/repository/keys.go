package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ravensoft/license-server/internal/ledger"
	"github.com/ravensoft/license-server/internal/models"
)

const keyColumns = `key, key_type, days, created_at, created_by, used_by, used_at, is_used`

// CreateKey сохраняет выпущенный ключ. Коллизия по самому ключу
// возвращает ErrKeyExists — вызывающая сторона перегенерирует ключ.
func (s *Storage) CreateKey(ctx context.Context, key models.RedemptionKey) error {
	const op = "storage.CreateKey"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO keys (key, key_type, days, created_at, created_by)
			  VALUES ($1, $2, $3, $4, $5)`
	_, err := s.DB.ExecContext(ctx, query,
		key.Key, key.Type, key.Days, key.CreatedAt, key.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, ErrKeyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanKey(row interface{ Scan(...any) error }) (*models.RedemptionKey, error) {
	k := &models.RedemptionKey{}
	var usedBy sql.NullInt64
	var usedAt sql.NullTime
	if err := row.Scan(&k.Key, &k.Type, &k.Days, &k.CreatedAt, &k.CreatedBy,
		&usedBy, &usedAt, &k.IsUsed); err != nil {
		return nil, err
	}
	if usedBy.Valid {
		k.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		k.UsedAt = &usedAt.Time
	}
	return k, nil
}

// GetKey возвращает ключ по его значению.
func (s *Storage) GetKey(ctx context.Context, key string) (*models.RedemptionKey, error) {
	const op = "storage.GetKey"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + keyColumns + ` FROM keys WHERE key = $1`
	k, err := scanKey(s.DB.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return k, nil
}

// ListKeys возвращает все ключи, новые первыми.
func (s *Storage) ListKeys(ctx context.Context) ([]*models.RedemptionKey, error) {
	const op = "storage.ListKeys"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + keyColumns + ` FROM keys ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.RedemptionKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, k)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteUnusedKey удаляет ключ, если он ещё не активирован.
// Использованный ключ — часть истории активаций и не удаляется.
func (s *Storage) DeleteUnusedKey(ctx context.Context, key string) error {
	const op = "storage.DeleteUnusedKey"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM keys WHERE key = $1 AND NOT is_used`, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		var isUsed bool
		err = s.DB.QueryRowContext(ctx, `SELECT is_used FROM keys WHERE key = $1`, key).Scan(&isUsed)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrKeyNotFound)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w", op, ErrKeyAlreadyUsed)
	}
	return nil
}

// ActivateKey атомарно погашает ключ и продлевает подписку пользователя.
//
// Пометка ключа использованным, обновление подписки, activated_key и запись
// в журнал идут одной транзакцией: при сбое не остаётся погашенного ключа
// без выданной подписки. Повторное гашение отсекается условием NOT is_used —
// из гоняющихся вызовов побеждает ровно один, остальные получают
// ErrKeyAlreadyUsed.
func (s *Storage) ActivateKey(ctx context.Context, key string, userID int64, now time.Time) (*models.RedemptionKey, models.Subscription, error) {
	const op = "storage.ActivateKey"
	select {
	case <-ctx.Done():
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + keyColumns + ` FROM keys WHERE key = $1 FOR UPDATE`
	k, err := scanKey(tx.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrKeyNotFound)
	}
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if k.IsUsed {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrKeyAlreadyUsed)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE keys SET is_used = TRUE, used_by = $1, used_at = $2
		 WHERE key = $3 AND NOT is_used`, userID, now, key)
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrKeyAlreadyUsed)
	}

	var subType sql.NullString
	var subEnd sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT subscription_type, subscription_end FROM users WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&subType, &subEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	newSub := ledger.Grant(scanSubscription(subType, subEnd), k.Type, k.Days, now)
	newType, newEnd := subscriptionColumns(newSub)
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET subscription_type = $1, subscription_end = $2, activated_key = $3
		 WHERE user_id = $4`, newType, newEnd, key, userID)
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO logs (user_id, action, details, created_at) VALUES ($1, $2, $3, $4)`,
		userID, models.ActionKeyActivate, fmt.Sprintf("Активирован ключ: %s", key), now)
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	k.IsUsed = true
	k.UsedBy = &userID
	usedAt := now
	k.UsedAt = &usedAt
	return k, newSub, nil
}
