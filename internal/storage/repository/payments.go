package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ravensoft/license-server/internal/ledger"
	"github.com/ravensoft/license-server/internal/models"
)

const paymentColumns = `id, user_id, amount, subscription_type, status,
			      created_at, confirmed_at, confirmed_by`

// CreatePayment сохраняет новую заявку на оплату в статусе pending.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentRequest) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (id, user_id, amount, subscription_type, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		p.ID, p.UserID, p.Amount, p.Type, p.Status, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanPayment(row interface{ Scan(...any) error }) (*models.PaymentRequest, error) {
	p := &models.PaymentRequest{}
	var confirmedAt sql.NullTime
	var confirmedBy sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Type, &p.Status,
		&p.CreatedAt, &confirmedAt, &confirmedBy); err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		p.ConfirmedAt = &confirmedAt.Time
	}
	if confirmedBy.Valid {
		p.ConfirmedBy = &confirmedBy.Int64
	}
	return p, nil
}

// GetPayment возвращает заявку по её ID.
func (s *Storage) GetPayment(ctx context.Context, id string) (*models.PaymentRequest, error) {
	const op = "storage.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPendingPayments возвращает неразрешённые заявки, новые первыми.
func (s *Storage) ListPendingPayments(ctx context.Context) ([]*models.PaymentRequest, error) {
	const op = "storage.ListPendingPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE status = 'pending' ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ConfirmPayment атомарно подтверждает заявку и применяет её эффекты:
// продление подписки, прирост total_paid и запись в журнал.
//
// Переход pending -> confirmed выполняется условным UPDATE, так что повторное
// или гоняющееся подтверждение получает ErrPaymentAlreadyResolved, а эффекты
// применяются ровно один раз.
func (s *Storage) ConfirmPayment(ctx context.Context, id string, operatorID int64, now time.Time) (*models.PaymentRequest, models.Subscription, error) {
	const op = "storage.ConfirmPayment"
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

	query := `UPDATE payments SET status = 'confirmed', confirmed_at = $1, confirmed_by = $2
			  WHERE id = $3 AND status = 'pending'
			  RETURNING ` + paymentColumns
	p, err := scanPayment(tx.QueryRowContext(ctx, query, now, operatorID, id))
	if errors.Is(err, sql.ErrNoRows) {
		// Либо заявки нет, либо она уже разрешена — различаем для вызывающего.
		var status string
		err = tx.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
		}
		if err != nil {
			return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
		}
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrPaymentAlreadyResolved)
	}
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	var subType sql.NullString
	var subEnd sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT subscription_type, subscription_end FROM users WHERE user_id = $1 FOR UPDATE`,
		p.UserID).Scan(&subType, &subEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	newSub := ledger.Grant(scanSubscription(subType, subEnd), p.Type, models.TierDays[p.Type], now)
	newType, newEnd := subscriptionColumns(newSub)
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET subscription_type = $1, subscription_end = $2,
		     total_paid = total_paid + $3
		 WHERE user_id = $4`, newType, newEnd, p.Amount, p.UserID)
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO logs (user_id, action, details, created_at) VALUES ($1, $2, $3, $4)`,
		p.UserID, models.ActionPaymentConfirm,
		fmt.Sprintf("Оплата подтверждена: %.2f₽", p.Amount), now)
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, newSub, nil
}

// RejectPayment переводит заявку в rejected без побочных эффектов.
// Отсутствующая или уже разрешённая заявка молча игнорируется.
func (s *Storage) RejectPayment(ctx context.Context, id string) error {
	const op = "storage.RejectPayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = 'rejected' WHERE id = $1 AND status = 'pending'`
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
