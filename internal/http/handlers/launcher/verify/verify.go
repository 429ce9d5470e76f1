// Package verify реализует HTTP-обработчик проверки сессии лаунчера.
//
// Помимо срока жизни токена заново проверяются бан и подписка, поэтому
// сессия не переживает блокировку аккаунта.
package verify

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
	sessionsvc "github.com/ravensoft/license-server/internal/services/sessions"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// Request — тело запроса на проверку сессии.
type Request struct {
	SessionToken string `json:"session_token" validate:"required"`
	DeviceID     string `json:"hwid"`
}

// Service описывает интерфейс бизнес-логики проверки сессии.
type Service interface {
	Verify(ctx context.Context, sessionToken, deviceID string) (*models.UserSummary, error)
}

// Handler обрабатывает запросы на проверку сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на проверку сессии.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.launcher.verify"
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

	summary, err := h.service.Verify(r.Context(), req.SessionToken, req.DeviceID)
	if err != nil {
		var banned *sessionsvc.AccountBannedError
		switch {
		case errors.Is(err, sessionsvc.ErrSessionNotFound):
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("сессия не найдена"))
		case errors.Is(err, sessionsvc.ErrSessionExpired):
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("сессия истекла"))
		case errors.Is(err, sessionsvc.ErrDeviceMismatch):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("HWID не совпадает"))
		case errors.Is(err, repository.ErrUserNotFound):
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("пользователь не найден"))
		case errors.As(err, &banned):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("аккаунт заблокирован"))
		case errors.Is(err, sessionsvc.ErrNoActiveSubscription):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("подписка истекла"))
		default:
			log.Error("verify failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": summary,
	}))
}
