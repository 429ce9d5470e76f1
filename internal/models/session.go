package models

import "time"

// Session — сессия лаунчера, выданная после успешного входа.
// Токен непрозрачный, проверка банов и подписки выполняется заново
// на каждом обращении, а не только при выдаче.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Nickname  string    `json:"nickname"`
	DeviceID  string    `json:"device_id"`  // Копия hwid на момент выдачи
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"` // Фиксированный TTL от выдачи
}

// UserSummary — то, что лаунчер получает о пользователе
// в ответах login и verify_session.
type UserSummary struct {
	UserID       int64            `json:"user_id"`
	Nickname     string           `json:"nickname"`
	Subscription SubscriptionInfo `json:"subscription"`
}
