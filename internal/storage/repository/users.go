package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ravensoft/license-server/internal/models"
)

const userColumns = `user_id, display_name, nickname, password, registered_at,
			      subscription_end, subscription_type, is_banned, ban_reason,
			      total_paid, activated_key, device_id`

// CreateUser сохраняет нового пользователя. Повтор ника даёт ErrNicknameTaken.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, display_name, nickname, password, registered_at)
			  VALUES ($1, $2, $3, $4, $5)`
	_, err := s.DB.ExecContext(ctx, query,
		user.ID, user.DisplayName, user.Nickname, user.Password, user.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, ErrNicknameTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var subEnd sql.NullTime
	var subType, banReason, activatedKey, deviceID sql.NullString
	if err := row.Scan(&u.ID, &u.DisplayName, &u.Nickname, &u.Password, &u.RegisteredAt,
		&subEnd, &subType, &u.IsBanned, &banReason,
		&u.TotalPaid, &activatedKey, &deviceID); err != nil {
		return nil, err
	}
	u.Subscription = scanSubscription(subType, subEnd)
	u.BanReason = banReason.String
	u.ActivatedKey = activatedKey.String
	u.DeviceID = deviceID.String
	return u, nil
}

// GetUser возвращает пользователя по его ID.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	u, err := s.scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByNickname возвращает пользователя по игровому нику.
func (s *Storage) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	const op = "storage.GetUserByNickname"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE nickname = $1`
	u, err := s.scanUser(s.DB.QueryRowContext(ctx, query, nickname))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей в порядке регистрации.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY registered_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SetBan выставляет или снимает блокировку. При снятии причина обнуляется.
func (s *Storage) SetBan(ctx context.Context, userID int64, banned bool, reason string) error {
	const op = "storage.SetBan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var reasonCol *string
	if banned {
		reasonCol = &reason
	}
	query := `UPDATE users SET is_banned = $1, ban_reason = $2 WHERE user_id = $3`
	res, err := s.DB.ExecContext(ctx, query, banned, reasonCol, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// UpdateSubscription перезаписывает состояние подписки пользователя.
func (s *Storage) UpdateSubscription(ctx context.Context, userID int64, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	subType, subEnd := subscriptionColumns(sub)
	query := `UPDATE users SET subscription_type = $1, subscription_end = $2 WHERE user_id = $3`
	res, err := s.DB.ExecContext(ctx, query, subType, subEnd, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// BindDevice привязывает устройство к аккаунту, только если привязки ещё нет.
// Повторный вызов с другим устройством молча не меняет ничего — проверку
// совпадения делает вызывающая сторона до привязки.
func (s *Storage) BindDevice(ctx context.Context, userID int64, deviceID string) error {
	const op = "storage.BindDevice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET device_id = $1
			  WHERE user_id = $2 AND (device_id IS NULL OR device_id = '')`
	if _, err := s.DB.ExecContext(ctx, query, deviceID, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetDevice снимает привязку устройства (административный сброс).
func (s *Storage) ResetDevice(ctx context.Context, userID int64) error {
	const op = "storage.ResetDevice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET device_id = NULL WHERE user_id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// GetStats собирает агрегированную статистику магазина одним запросом на таблицу.
func (s *Storage) GetStats(ctx context.Context) (*models.Stats, error) {
	const op = "storage.GetStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	stats := &models.Stats{}
	usersQuery := `SELECT COUNT(*),
			      COUNT(*) FILTER (WHERE subscription_type = 'forever'
			          OR subscription_end > now()),
			      COUNT(*) FILTER (WHERE is_banned),
			      COUNT(*) FILTER (WHERE registered_at::DATE = CURRENT_DATE),
			      COALESCE(SUM(total_paid), 0)
			  FROM users`
	if err := s.DB.QueryRowContext(ctx, usersQuery).Scan(&stats.TotalUsers,
		&stats.WithSubscription, &stats.Banned, &stats.RegisteredToday,
		&stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats.WithoutSubscription = stats.TotalUsers - stats.WithSubscription

	keysQuery := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used) FROM keys`
	if err := s.DB.QueryRowContext(ctx, keysQuery).Scan(&stats.TotalKeys, &stats.UsedKeys); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats.UnusedKeys = stats.TotalKeys - stats.UsedKeys

	pendingQuery := `SELECT COUNT(*) FROM payments WHERE status = 'pending'`
	if err := s.DB.QueryRowContext(ctx, pendingQuery).Scan(&stats.PendingPayments); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
