package models

import "time"

// RedemptionKey — одноразовый ключ активации подписки, выпущенный оператором.
type RedemptionKey struct {
	Key       string     // Сам ключ, уникальный
	Type      string     // Тариф, который выдаёт ключ
	Days      int        // Длительность в днях, 0 для бессрочного
	CreatedAt time.Time  // Когда выпущен
	CreatedBy int64      // Кем выпущен (id оператора)
	UsedBy    *int64     // Кем активирован, nil пока не использован
	UsedAt    *time.Time // Когда активирован
	IsUsed    bool       // Признак использования, выставляется ровно один раз
}
