package models

import "time"

// User представляет зарегистрированного пользователя магазина.
//
// Пароль хранится в открытом виде: проверка на стороне лаунчера — это
// точное сравнение строк, и это внешний контракт клиента. Хэширование
// здесь ломает совместимость с развёрнутым лаунчером.
type User struct {
	ID           int64        // Внешний идентификатор (id пользователя в мессенджере)
	DisplayName  string       // Имя из профиля мессенджера
	Nickname     string       // Выбранный игровой ник, 3-20 символов, уникальный
	Password     string       // Пароль для входа через лаунчер
	RegisteredAt time.Time    // Дата регистрации, выставляется один раз
	Subscription Subscription // Текущее состояние подписки
	IsBanned     bool         // Признак блокировки
	BanReason    string       // Причина блокировки, пустая если не забанен
	TotalPaid    float64      // Сумма подтверждённых оплат, только растёт
	ActivatedKey string       // Последний активированный ключ
	DeviceID     string       // Привязанное устройство (hwid), выставляется один раз
}

// Stats — агрегированная статистика магазина для панели оператора.
type Stats struct {
	TotalUsers          int     `json:"total_users"`
	WithSubscription    int     `json:"with_subscription"`
	WithoutSubscription int     `json:"without_subscription"`
	Banned              int     `json:"banned"`
	TotalKeys           int     `json:"total_keys"`
	UsedKeys            int     `json:"used_keys"`
	UnusedKeys          int     `json:"unused_keys"`
	TotalRevenue        float64 `json:"total_revenue"`
	PendingPayments     int     `json:"pending_payments"`
	RegisteredToday     int     `json:"registered_today"`
}
