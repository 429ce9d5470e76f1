// Package activate реализует погашение одноразового ключа в пользу
// пользователя. Ключ гасится ровно один раз даже при гонке запросов.
package activate

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
	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// Request — тело запроса на активацию ключа.
type Request struct {
	UserID int64  `json:"user_id" validate:"required"`
	Key    string `json:"key" validate:"required"`
}

// Service описывает интерфейс бизнес-логики активации ключей.
type Service interface {
	Activate(ctx context.Context, key string, userID int64) (models.SubscriptionInfo, error)
}

// Handler обрабатывает запросы на активацию ключей.
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

// ServeHTTP обрабатывает HTTP-запрос на активацию ключа.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.key.activate"
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

	info, err := h.service.Activate(r.Context(), req.Key, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrKeyNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("key not found"))
		case errors.Is(err, repository.ErrKeyAlreadyUsed):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("key is already used"))
		case errors.Is(err, repository.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to activate key", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("key activated", slog.Int64("user_id", req.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": info,
	}))
}
