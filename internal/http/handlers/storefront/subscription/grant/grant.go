// Package grant реализует административную выдачу подписки.
package grant

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
	"github.com/ravensoft/license-server/internal/services/users"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// Request — тело запроса на выдачу подписки. Days переопределяет
// длительность из словаря тарифов, ноль означает «взять из словаря».
type Request struct {
	UserID int64  `json:"user_id" validate:"required"`
	Type   string `json:"type" validate:"required"`
	Days   int    `json:"days"`
}

// Service описывает интерфейс бизнес-логики выдачи подписки.
type Service interface {
	GrantSubscription(ctx context.Context, userID int64, subType string, days int) (models.SubscriptionInfo, error)
}

// Handler обрабатывает запросы на выдачу подписки.
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

// ServeHTTP обрабатывает HTTP-запрос на выдачу подписки.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.subscription.grant"
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

	info, err := h.service.GrantSubscription(r.Context(), req.UserID, req.Type, req.Days)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUnknownTier):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown subscription tier"))
		case errors.Is(err, repository.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to grant subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("subscription granted",
		slog.Int64("user_id", req.UserID), slog.String("type", req.Type))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": info,
	}))
}
