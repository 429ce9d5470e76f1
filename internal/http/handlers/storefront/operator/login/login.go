// Package login реализует вход оператора панели: проверка пары
// логин/пароль по списку из конфига и выпуск JWT.
package login

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"golang.org/x/crypto/bcrypt"

	"github.com/ravensoft/license-server/internal/config"
	"github.com/ravensoft/license-server/internal/http/response"
	"github.com/ravensoft/license-server/internal/lib/jwt"
	"github.com/ravensoft/license-server/internal/lib/sl"
)

// Request — тело запроса на вход оператора.
type Request struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Handler обрабатывает вход операторов.
type Handler struct {
	log       *slog.Logger
	operators []config.Operator
	jwtMaker  jwt.Maker
	validate  *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, operators []config.Operator, jwtMaker jwt.Maker) *Handler {
	return &Handler{
		log:       log,
		operators: operators,
		jwtMaker:  jwtMaker,
		validate:  validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на вход оператора.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.storefront.operator.login"
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

	var found *config.Operator
	for i := range h.operators {
		if h.operators[i].Username == req.Username {
			found = &h.operators[i]
			break
		}
	}
	if found == nil ||
		bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(req.Password)) != nil {
		log.Warn("operator login rejected", slog.String("username", req.Username))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid username or password"))
		return
	}

	token, err := h.jwtMaker.GenerateToken(found.ID, found.Username)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("operator logged in", slog.String("username", found.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
	}))
}
