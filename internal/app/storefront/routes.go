// Package storefront предоставляет маршруты панели магазина.
package storefront

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ravensoft/license-server/internal/config"
	auditlist "github.com/ravensoft/license-server/internal/http/handlers/storefront/audit/list"
	keyactivate "github.com/ravensoft/license-server/internal/http/handlers/storefront/key/activate"
	keygenerate "github.com/ravensoft/license-server/internal/http/handlers/storefront/key/generate"
	keylist "github.com/ravensoft/license-server/internal/http/handlers/storefront/key/list"
	keyremove "github.com/ravensoft/license-server/internal/http/handlers/storefront/key/remove"
	operatorlogin "github.com/ravensoft/license-server/internal/http/handlers/storefront/operator/login"
	paymentconfirm "github.com/ravensoft/license-server/internal/http/handlers/storefront/payment/confirm"
	paymentcreate "github.com/ravensoft/license-server/internal/http/handlers/storefront/payment/create"
	paymentlist "github.com/ravensoft/license-server/internal/http/handlers/storefront/payment/list"
	paymentreject "github.com/ravensoft/license-server/internal/http/handlers/storefront/payment/reject"
	"github.com/ravensoft/license-server/internal/http/handlers/storefront/stats"
	subgrant "github.com/ravensoft/license-server/internal/http/handlers/storefront/subscription/grant"
	subremove "github.com/ravensoft/license-server/internal/http/handlers/storefront/subscription/remove"
	userban "github.com/ravensoft/license-server/internal/http/handlers/storefront/user/ban"
	userget "github.com/ravensoft/license-server/internal/http/handlers/storefront/user/get"
	userlist "github.com/ravensoft/license-server/internal/http/handlers/storefront/user/list"
	userregister "github.com/ravensoft/license-server/internal/http/handlers/storefront/user/register"
	userresetdevice "github.com/ravensoft/license-server/internal/http/handlers/storefront/user/resetdevice"
	userunban "github.com/ravensoft/license-server/internal/http/handlers/storefront/user/unban"
	"github.com/ravensoft/license-server/internal/http/middlewarectx"
	"github.com/ravensoft/license-server/internal/lib/jwt"
	keyservice "github.com/ravensoft/license-server/internal/services/keys"
	paymentservice "github.com/ravensoft/license-server/internal/services/payments"
	userservice "github.com/ravensoft/license-server/internal/services/users"
)

// RegisterRoutes регистрирует все маршруты панели магазина.
func RegisterRoutes(r chi.Router, logger *slog.Logger, users *userservice.Service, keys *keyservice.Service, payments *paymentservice.Service, jwtMaker jwt.Maker, operators []config.Operator) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытая конечная точка входа оператора
		r.Post("/operator/login", operatorlogin.New(logger, operators, jwtMaker).ServeHTTP)

		// Группа с JWT аутентификацией оператора
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.OperatorMiddleware(jwtMaker, logger))

			r.Post("/users", userregister.New(logger, users).ServeHTTP)
			r.Get("/users", userlist.New(logger, users).ServeHTTP)
			r.Get("/users/{id}", userget.New(logger, users).ServeHTTP)
			r.Get("/users/{id}/audit", auditlist.New(logger, users).ServeHTTP)
			r.Post("/users/ban", userban.New(logger, users).ServeHTTP)
			r.Post("/users/unban", userunban.New(logger, users).ServeHTTP)
			r.Post("/users/reset-device", userresetdevice.New(logger, users).ServeHTTP)

			r.Post("/subscriptions/grant", subgrant.New(logger, users).ServeHTTP)
			r.Post("/subscriptions/remove", subremove.New(logger, users).ServeHTTP)

			r.Post("/keys", keygenerate.New(logger, keys).ServeHTTP)
			r.Get("/keys", keylist.New(logger, keys).ServeHTTP)
			r.Delete("/keys", keyremove.New(logger, keys).ServeHTTP)
			r.Post("/keys/activate", keyactivate.New(logger, keys).ServeHTTP)

			r.Post("/payments", paymentcreate.New(logger, payments).ServeHTTP)
			r.Get("/payments/pending", paymentlist.New(logger, payments).ServeHTTP)
			r.Post("/payments/confirm", paymentconfirm.New(logger, payments).ServeHTTP)
			r.Post("/payments/reject", paymentreject.New(logger, payments).ServeHTTP)

			r.Get("/stats", stats.New(logger, users).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
