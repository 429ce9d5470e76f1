// Package middlewarectx содержит HTTP middleware обоих сервисов:
// проверку общего секрета API лаунчера, проверку JWT оператора панели
// и ограничение частоты запросов.
package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/apikey"
)

// APIKeyMiddleware проверяет заголовок X-API-Key до любых обращений
// к хранилищу. Отсутствующий или неверный ключ отклоняется сразу.
func APIKeyMiddleware(expectedKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.APIKeyMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				log.Error("missing api key")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("API key required"))
				return
			}
			if !apikey.Verify(expectedKey, presented) {
				log.Error("invalid api key")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
