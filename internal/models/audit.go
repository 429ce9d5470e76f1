package models

import "time"

// Действия, попадающие в журнал. Набор совпадает с тем,
// что пишет бот-магазин.
const (
	ActionRegister           = "REGISTER"
	ActionBan                = "BAN"
	ActionUnban              = "UNBAN"
	ActionSubscriptionAdd    = "SUBSCRIPTION_ADD"
	ActionSubscriptionRemove = "SUBSCRIPTION_REMOVE"
	ActionKeyActivate        = "KEY_ACTIVATE"
	ActionPaymentConfirm     = "PAYMENT_CONFIRM"
	ActionLauncherLogin      = "LAUNCHER_LOGIN"
)

// AuditEntry — запись журнала действий над пользователем.
// Журнал только дописывается, записи не меняются и не удаляются.
type AuditEntry struct {
	ID        int64     // Порядковый номер записи
	UserID    int64     // Над кем выполнено действие
	Action    string    // Одна из констант Action*
	Details   string    // Свободный текст
	CreatedAt time.Time // Когда записано
}
