// Package ledger содержит чистую логику вычисления состояния подписки:
// активна ли она на момент времени, сколько дней осталось и как считается
// новая дата окончания при продлении. Пакет не ходит в базу и не знает
// текущего времени — момент оценки всегда передаётся аргументом.
package ledger

import (
	"time"

	"github.com/ravensoft/license-server/internal/models"
)

// IsActive сообщает, действует ли подписка на момент now.
// Бессрочная подписка активна всегда, конечная — пока дата окончания
// в будущем. Нулевая дата окончания у конечной подписки трактуется как
// неактивная: повреждённое состояние никогда не открывает доступ.
func IsActive(sub models.Subscription, now time.Time) bool {
	switch sub.State {
	case models.SubscriptionForever:
		return true
	case models.SubscriptionFinite:
		return !sub.End.IsZero() && sub.End.After(now)
	default:
		return false
	}
}

// Info собирает сводку по подписке для выдачи наружу.
// Для бессрочной подписки days_left равен -1, для конечной — целое число
// полных дней до окончания, не меньше нуля.
func Info(sub models.Subscription, now time.Time) models.SubscriptionInfo {
	switch sub.State {
	case models.SubscriptionForever:
		return models.SubscriptionInfo{
			Active:   true,
			Type:     models.TierForever,
			DaysLeft: -1,
		}
	case models.SubscriptionFinite:
		if sub.End.IsZero() {
			return models.SubscriptionInfo{}
		}
		daysLeft := int(sub.End.Sub(now).Hours() / 24)
		if daysLeft < 0 {
			daysLeft = 0
		}
		end := sub.End
		return models.SubscriptionInfo{
			Active:   sub.End.After(now),
			Type:     sub.Type,
			DaysLeft: daysLeft,
			End:      &end,
		}
	default:
		return models.SubscriptionInfo{}
	}
}

// Grant вычисляет новое состояние подписки после выдачи тарифа subType
// длительностью days дней.
//
// Правило продления: бессрочный тариф даёт бессрочную подписку; конечный
// тариф прибавляет days к текущей дате окончания, если подписка ещё
// действует (остаток времени не сгорает), иначе отсчитывает days от now.
// Бессрочная или повреждённая текущая подписка при выдаче конечного
// тарифа начинается заново от now.
func Grant(current models.Subscription, subType string, days int, now time.Time) models.Subscription {
	if subType == models.TierForever {
		return models.Subscription{
			State: models.SubscriptionForever,
			Type:  models.TierForever,
		}
	}

	end := now.AddDate(0, 0, days)
	if current.State == models.SubscriptionFinite && !current.End.IsZero() && current.End.After(now) {
		end = current.End.AddDate(0, 0, days)
	}
	return models.Subscription{
		State: models.SubscriptionFinite,
		Type:  subType,
		End:   end,
	}
}

// Remove снимает подписку безусловно. Возврат неиспользованного
// остатка не предусмотрен.
func Remove() models.Subscription {
	return models.Subscription{State: models.SubscriptionNone}
}
