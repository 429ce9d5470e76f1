// Package metrics определяет счётчики Prometheus лицензионного бэкенда.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LauncherLogins считает успешные входы через лаунчер.
	LauncherLogins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "launcher_logins_total",
		Help: "Number of successful launcher logins.",
	})

	// LauncherLoginFailures считает отклонённые входы по причинам.
	LauncherLoginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "launcher_login_failures_total",
		Help: "Number of rejected launcher logins by reason.",
	}, []string{"reason"})

	// KeyActivations считает успешные активации ключей.
	KeyActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "key_activations_total",
		Help: "Number of successfully redeemed keys.",
	})

	// PaymentsConfirmed считает подтверждённые платежи.
	PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Number of manually confirmed payments.",
	})
)
