// Package online реализует HTTP-обработчик счётчика активных сессий.
package online

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/sl"
)

// Service описывает интерфейс подсчёта активных сессий.
type Service interface {
	Online(ctx context.Context) (int, error)
}

// Handler обрабатывает запросы числа пользователей онлайн.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP возвращает текущее число активных сессий лаунчера.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.launcher.online"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	count, err := h.service.Online(r.Context())
	if err != nil {
		log.Error("failed to count sessions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"online": count,
	}))
}
