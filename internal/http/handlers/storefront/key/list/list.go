// Package list возвращает все выпущенные ключи.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/models"
)

// Service описывает интерфейс бизнес-логики списка ключей.
type Service interface {
	List(ctx context.Context) ([]*models.RedemptionKey, error)
}

// Handler обрабатывает запросы списка ключей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP обрабатывает HTTP-запрос списка ключей.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.key.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	items, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list keys", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"keys": items,
	}))
}
