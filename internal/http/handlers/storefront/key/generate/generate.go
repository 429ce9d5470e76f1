// Package generate реализует выпуск одноразового ключа оператором.
package generate

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
	"github.com/ravensoft/license-server/internal/services/keys"
)

// Request — тело запроса на выпуск ключа.
type Request struct {
	Type string `json:"type" validate:"required"`
}

// Service описывает интерфейс бизнес-логики выпуска ключей.
type Service interface {
	Generate(ctx context.Context, keyType string, createdBy int64) (string, error)
}

// Handler обрабатывает запросы на выпуск ключей.
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

// ServeHTTP обрабатывает HTTP-запрос на выпуск ключа. Автор берётся
// из контекста, положенного OperatorMiddleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.key.generate"
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

	value, err := h.service.Generate(r.Context(), req.Type, operatorID)
	if err != nil {
		if errors.Is(err, keys.ErrUnknownTier) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown key tier"))
			return
		}
		log.Error("failed to generate key", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"key": value,
	}))
}
