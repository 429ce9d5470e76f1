package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/jwt"
	"github.com/ravensoft/license-server/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// OperatorID — ключ для id оператора в контексте.
	OperatorID Key = "operator_id"
	// OperatorName — ключ для логина оператора в контексте.
	OperatorName Key = "operator_name"
)

// OperatorFromContext достаёт id оператора, положенный OperatorMiddleware.
func OperatorFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(OperatorID).(int64)
	return id, ok
}

// OperatorMiddleware проверяет JWT оператора в заголовке Authorization.
// Это единственная точка авторизации мутирующих операций панели: все
// обработчики за ним полагаются на оператора из контекста.
func OperatorMiddleware(jwtMaker jwt.Maker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.OperatorMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := jwtMaker.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), OperatorID, claims.OperatorID)
			ctx = context.WithValue(ctx, OperatorName, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
