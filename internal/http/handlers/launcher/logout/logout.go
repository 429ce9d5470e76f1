// Package logout реализует HTTP-обработчик выхода из сессии лаунчера.
package logout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/sl"
)

// Request — тело запроса на выход.
type Request struct {
	SessionToken string `json:"session_token"`
}

// Service описывает интерфейс бизнес-логики выхода.
type Service interface {
	Logout(ctx context.Context, sessionToken string) error
}

// Handler обрабатывает запросы на выход из сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP обрабатывает HTTP-запрос на выход. Выход идемпотентен:
// неизвестный токен не считается ошибкой.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.launcher.logout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.service.Logout(r.Context(), req.SessionToken); err != nil {
		log.Error("logout failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OK())
}
