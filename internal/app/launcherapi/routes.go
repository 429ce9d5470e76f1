// Package launcherapi предоставляет маршруты API лаунчера.
package launcherapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ravensoft/license-server/internal/config"
	"github.com/ravensoft/license-server/internal/http/handlers/launcher/login"
	"github.com/ravensoft/license-server/internal/http/handlers/launcher/logout"
	"github.com/ravensoft/license-server/internal/http/handlers/launcher/online"
	"github.com/ravensoft/license-server/internal/http/handlers/launcher/verify"
	"github.com/ravensoft/license-server/internal/http/middlewarectx"
	"github.com/ravensoft/license-server/internal/lib/apikey"
	sessionservice "github.com/ravensoft/license-server/internal/services/sessions"
)

// RegisterRoutes регистрирует все маршруты API лаунчера.
// Всё, кроме /metrics, закрыто общим секретом и ограничено по частоте.
func RegisterRoutes(r chi.Router, logger *slog.Logger, service *sessionservice.Service, cfg config.Launcher) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewarectx.APIKeyMiddleware(apikey.Derive(cfg.APIPassphrase), logger))
		r.Use(middlewarectx.RateLimitMiddleware(rate.Limit(20), 40, logger))

		r.Post("/auth/login", login.New(logger, service).ServeHTTP)
		r.Post("/auth/verify_session", verify.New(logger, service).ServeHTTP)
		r.Post("/auth/logout", logout.New(logger, service).ServeHTTP)
		r.Get("/stats/online", online.New(logger, service).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
}
