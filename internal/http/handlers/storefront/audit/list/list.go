// Package list возвращает последние записи журнала действий по пользователю.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения журнала.
type Service interface {
	AuditTrail(ctx context.Context, userID int64, limit int) ([]*models.AuditEntry, error)
}

// Handler обрабатывает запросы журнала действий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP обрабатывает HTTP-запрос журнала пользователя.
// Необязательный query-параметр limit ограничивает выборку, по умолчанию 10.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.audit.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid limit"))
			return
		}
	}

	entries, err := h.service.AuditTrail(r.Context(), userID, limit)
	if err != nil {
		log.Error("failed to list audit entries", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entries": entries,
	}))
}
