package models

import "time"

// Статусы платёжной заявки. Переходы только pending -> confirmed
// и pending -> rejected, терминальный статус не пересматривается.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentRejected  = "rejected"
)

// PaymentRequest — заявка на ручное подтверждение оплаты.
type PaymentRequest struct {
	ID          string     // uuid заявки
	UserID      int64      // Кто платил
	Amount      float64    // Сумма
	Type        string     // Оплаченный тариф
	Status      string     // pending / confirmed / rejected
	CreatedAt   time.Time  // Когда создана
	ConfirmedAt *time.Time // Когда разрешена, nil для pending
	ConfirmedBy *int64     // Кем разрешена (id оператора)
}
