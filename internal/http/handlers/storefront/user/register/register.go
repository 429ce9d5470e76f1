// Package register реализует регистрацию пользователя магазина.
package register

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

// Request — тело запроса на регистрацию.
type Request struct {
	UserID      int64  `json:"user_id" validate:"required"`
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname" validate:"required,min=3,max=20"`
	Password    string `json:"password" validate:"required,min=4"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, userID int64, displayName, nickname, password string) error
}

// Handler обрабатывает запросы на регистрацию.
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

// ServeHTTP обрабатывает HTTP-запрос на регистрацию пользователя.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.user.register"
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

	err := h.service.Register(r.Context(), req.UserID, req.DisplayName, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrNicknameTaken) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("nickname is already taken"))
			return
		}
		log.Error("failed to register user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("user registered", slog.Int64("user_id", req.UserID))
	render.JSON(w, r, response.OK())
}
