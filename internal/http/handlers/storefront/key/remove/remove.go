// Package remove реализует удаление неиспользованного ключа.
// Использованные ключи не удаляются, они часть истории активаций.
package remove

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// Request — тело запроса на удаление ключа.
type Request struct {
	Key string `json:"key" validate:"required"`
}

// Service описывает интерфейс бизнес-логики удаления ключей.
type Service interface {
	Delete(ctx context.Context, key string) error
}

// Handler обрабатывает запросы на удаление ключей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на удаление ключа.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.key.remove"
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
	if err := h.validate.Struct(req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.Delete(r.Context(), req.Key); err != nil {
		switch {
		case errors.Is(err, repository.ErrKeyNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("key not found"))
		case errors.Is(err, repository.ErrKeyAlreadyUsed):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("key is already used"))
		default:
			log.Error("failed to delete key", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}
	render.JSON(w, r, response.OK())
}
