package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravensoft/license-server/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Storage{DB: db}, mock
}

func keyRow(key string, isUsed bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"key", "key_type", "days", "created_at", "created_by", "used_by", "used_at", "is_used",
	}).AddRow(key, models.Tier30Days, 30, time.Now().UTC(), int64(7), nil, nil, isUsed)
}

func TestStorage_ActivateKey_Success(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM keys WHERE key = \$1 FOR UPDATE`).
		WithArgs("RAVEN-AAAA").
		WillReturnRows(keyRow("RAVEN-AAAA", false))
	mock.ExpectExec(`UPDATE keys SET is_used = TRUE`).
		WithArgs(int64(42), now, "RAVEN-AAAA").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT subscription_type, subscription_end FROM users WHERE user_id = \$1 FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_type", "subscription_end"}).
			AddRow(nil, nil))
	mock.ExpectExec(`UPDATE users SET subscription_type`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "RAVEN-AAAA", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO logs`).
		WithArgs(int64(42), models.ActionKeyActivate, sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	k, newSub, err := storage.ActivateKey(context.Background(), "RAVEN-AAAA", 42, now)
	require.NoError(t, err)

	assert.True(t, k.IsUsed)
	require.NotNil(t, k.UsedBy)
	assert.Equal(t, int64(42), *k.UsedBy)
	assert.Equal(t, models.SubscriptionFinite, newSub.State)
	assert.WithinDuration(t, now.AddDate(0, 0, 30), newSub.End, time.Second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ActivateKey_AlreadyUsed(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM keys WHERE key = \$1 FOR UPDATE`).
		WithArgs("RAVEN-AAAA").
		WillReturnRows(keyRow("RAVEN-AAAA", true))
	mock.ExpectRollback()

	_, _, err := storage.ActivateKey(context.Background(), "RAVEN-AAAA", 42, time.Now().UTC())
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ActivateKey_LostRace(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now().UTC()

	// Между SELECT и UPDATE ключ погасил конкурирующий вызов.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM keys WHERE key = \$1 FOR UPDATE`).
		WithArgs("RAVEN-AAAA").
		WillReturnRows(keyRow("RAVEN-AAAA", false))
	mock.ExpectExec(`UPDATE keys SET is_used = TRUE`).
		WithArgs(int64(42), now, "RAVEN-AAAA").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := storage.ActivateKey(context.Background(), "RAVEN-AAAA", 42, now)
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ActivateKey_NotFound(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM keys WHERE key = \$1 FOR UPDATE`).
		WithArgs("RAVEN-GONE").
		WillReturnRows(sqlmock.NewRows([]string{
			"key", "key_type", "days", "created_at", "created_by", "used_by", "used_at", "is_used",
		}))
	mock.ExpectRollback()

	_, _, err := storage.ActivateKey(context.Background(), "RAVEN-GONE", 42, time.Now().UTC())
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_DeleteUnusedKey_UsedKey(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec(`DELETE FROM keys WHERE key = \$1 AND NOT is_used`).
		WithArgs("RAVEN-AAAA").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT is_used FROM keys WHERE key = \$1`).
		WithArgs("RAVEN-AAAA").
		WillReturnRows(sqlmock.NewRows([]string{"is_used"}).AddRow(true))

	err := storage.DeleteUnusedKey(context.Background(), "RAVEN-AAAA")
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
