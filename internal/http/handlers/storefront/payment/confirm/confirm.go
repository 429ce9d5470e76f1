// Package confirm реализует подтверждение платёжной заявки оператором.
// Эффекты подтверждения применяются ровно один раз, повтор получает 409.
package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ravensoft/license-server/internal/http/middlewarectx"
	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/models"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// Request — тело запроса на подтверждение заявки.
type Request struct {
	PaymentID string `json:"payment_id" validate:"required,uuid"`
}

// Service описывает интерфейс бизнес-логики подтверждения.
type Service interface {
	Confirm(ctx context.Context, id string, operatorID int64) (*models.PaymentRequest, models.SubscriptionInfo, error)
}

// Handler обрабатывает запросы на подтверждение заявок.
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

// ServeHTTP обрабатывает HTTP-запрос на подтверждение заявки.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.payment.confirm"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	operatorID, ok := middlewarectx.OperatorFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("operator not authenticated"))
		return
	}

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

	p, info, err := h.service.Confirm(r.Context(), req.PaymentID, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, repository.ErrPaymentAlreadyResolved):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment is already resolved"))
		case errors.Is(err, repository.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to confirm payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("payment confirmed",
		slog.String("payment_id", req.PaymentID), slog.Int64("operator_id", operatorID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment":      p,
		"subscription": info,
	}))
}
