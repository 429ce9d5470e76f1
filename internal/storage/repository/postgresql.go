// Package repository реализует хранилище лицензионного бэкенда на PostgreSQL:
// пользователи, ключи активации, платёжные заявки и журнал действий.
// Многошаговые мутации (активация ключа, подтверждение платежа) выполняются
// одной транзакцией, чтобы при гонке побеждал ровно один вызов.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ravensoft/license-server/internal/models"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки уровня хранилища. Сервисы и обработчики сопоставляют их
// со структурированными ответами, наружу тексты не уходят как есть.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrNicknameTaken          = errors.New("nickname already taken")
	ErrKeyNotFound            = errors.New("key not found")
	ErrKeyAlreadyUsed         = errors.New("key already used")
	ErrKeyExists              = errors.New("key already exists")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentAlreadyResolved = errors.New("payment already resolved")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// CheckDatabaseReady проверяет, что миграции применены и схема на месте.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table users missing or query error: %w", err)
	}
	return nil
}

// scanSubscription восстанавливает замкнутый вариант подписки из пары
// nullable-колонок. Тип без даты у конечного тарифа даёт Finite с нулевой
// датой — ledger трактует такое состояние как неактивное.
func scanSubscription(subType sql.NullString, subEnd sql.NullTime) models.Subscription {
	if !subType.Valid {
		return models.Subscription{State: models.SubscriptionNone}
	}
	if subType.String == models.TierForever {
		return models.Subscription{State: models.SubscriptionForever, Type: models.TierForever}
	}
	sub := models.Subscription{State: models.SubscriptionFinite, Type: subType.String}
	if subEnd.Valid {
		sub.End = subEnd.Time
	}
	return sub
}

// subscriptionColumns раскладывает подписку обратно в пару колонок.
func subscriptionColumns(sub models.Subscription) (subType *string, subEnd *time.Time) {
	switch sub.State {
	case models.SubscriptionForever:
		t := models.TierForever
		return &t, nil
	case models.SubscriptionFinite:
		t := sub.Type
		e := sub.End
		return &t, &e
	default:
		return nil, nil
	}
}
