// Package login реализует HTTP-обработчик входа лаунчера.
//
// Handler принимает ник, пароль и идентификатор устройства, вызывает
// бизнес-логику сессий и возвращает сессионный токен со сводкой о
// пользователе либо типизированную ошибку аутентификации.
package login

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
)

// Request — тело запроса на вход.
type Request struct {
	Nickname string `json:"nickname" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"hwid"`
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, nickname, password, deviceID string) (string, *models.UserSummary, error)
}

// Handler обрабатывает запросы на вход через лаунчер.
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

// ServeHTTP обрабатывает HTTP-запрос на вход.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.launcher.login"
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
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	token, summary, err := h.service.Login(r.Context(), req.Nickname, req.Password, req.DeviceID)
	if err != nil {
		var banned *sessionsvc.AccountBannedError
		switch {
		case errors.Is(err, sessionsvc.ErrInvalidCredentials):
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid nickname or password"))
		case errors.As(err, &banned):
			w.WriteHeader(http.StatusForbidden)
			reason := banned.Reason
			if reason == "" {
				reason = "причина не указана"
			}
			render.JSON(w, r, response.Error("аккаунт заблокирован: "+reason))
		case errors.Is(err, sessionsvc.ErrDeviceMismatch):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("аккаунт привязан к другому устройству"))
		case errors.Is(err, sessionsvc.ErrNoActiveSubscription):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("нет активной подписки"))
		default:
			log.Error("login failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("launcher login ok", slog.Int64("user_id", summary.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"session_token": token,
		"user":          summary,
	}))
}
