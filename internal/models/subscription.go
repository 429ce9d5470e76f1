// Package models содержит доменные структуры лицензионного бэкенда:
// пользователи, ключи активации, платежи, сессии лаунчера и журнал действий.
package models

import "time"

// SubscriptionState описывает замкнутый набор состояний подписки.
// Строковый сентинель "forever" из старой схемы данных сюда не протекает:
// бессрочная подписка — отдельное состояние, а не специальная дата.
type SubscriptionState int

const (
	// SubscriptionNone — подписки нет и не было либо она снята администратором.
	SubscriptionNone SubscriptionState = iota
	// SubscriptionFinite — подписка с датой окончания.
	SubscriptionFinite
	// SubscriptionForever — бессрочная подписка.
	SubscriptionForever
)

// Тарифы подписки. Значения совпадают с типами ключей активации
// и типами платежей — это один и тот же словарь.
const (
	Tier1Day    = "1_day"
	Tier14Days  = "14_days"
	Tier30Days  = "30_days"
	TierForever = "forever"
)

// TierDays задаёт длительность каждого тарифа в днях.
// Для бессрочного тарифа дни не имеют смысла и равны нулю.
var TierDays = map[string]int{
	Tier1Day:    1,
	Tier14Days:  14,
	Tier30Days:  30,
	TierForever: 0,
}

// Subscription представляет текущее состояние подписки пользователя.
type Subscription struct {
	State SubscriptionState // None, Finite или Forever
	Type  string            // Тариф последнего продления, пустой для None
	End   time.Time         // Дата окончания, значима только для Finite
}

// SubscriptionInfo — сводка по подписке для выдачи наружу
// (профиль в боте, ответы API лаунчера).
type SubscriptionInfo struct {
	Active   bool       `json:"active"`
	Type     string     `json:"type,omitempty"`
	DaysLeft int        `json:"days_left"` // -1 для бессрочной подписки
	End      *time.Time `json:"end_date,omitempty"`
}
