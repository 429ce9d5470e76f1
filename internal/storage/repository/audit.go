package repository

import (
	"context"
	"fmt"

	"github.com/ravensoft/license-server/internal/models"
)

// AppendAudit дописывает запись в журнал действий.
func (s *Storage) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	const op = "storage.AppendAudit"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO logs (user_id, action, details, created_at)
			  VALUES ($1, $2, $3, $4)`
	_, err := s.DB.ExecContext(ctx, query,
		entry.UserID, entry.Action, entry.Details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUserAudit возвращает последние записи журнала по пользователю.
func (s *Storage) ListUserAudit(ctx context.Context, userID int64, limit int) ([]*models.AuditEntry, error) {
	const op = "storage.ListUserAudit"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, action, details, created_at FROM logs
			  WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		if err = rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
