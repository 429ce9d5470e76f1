package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ravensoft/license-server/internal/models"
	sessionsvc "github.com/ravensoft/license-server/internal/services/sessions"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Login(ctx context.Context, nickname, password, deviceID string) (string, *models.UserSummary, error) {
	args := m.Called(ctx, nickname, password, deviceID)
	summary, _ := args.Get(1).(*models.UserSummary)
	return args.String(0), summary, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	summary := &models.UserSummary{
		UserID:   42,
		Nickname: "player1",
		Subscription: models.SubscriptionInfo{
			Active:   true,
			Type:     models.Tier30Days,
			DaysLeft: 30,
		},
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockToken      string
		mockSummary    *models.UserSummary
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:           "valid login",
			requestBody:    Request{Nickname: "player1", Password: "secret", DeviceID: "hwid-abc"},
			mockToken:      "sessiontoken",
			mockSummary:    summary,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name:           "validation error - missing password",
			requestBody:    Request{Nickname: "player1"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
			wantError:      "field Password is a required field",
		},
		{
			name:           "invalid credentials",
			requestBody:    Request{Nickname: "player1", Password: "wrong", DeviceID: "hwid-abc"},
			mockErr:        sessionsvc.ErrInvalidCredentials,
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
			wantError:      "invalid nickname or password",
		},
		{
			name:           "banned account",
			requestBody:    Request{Nickname: "player1", Password: "secret", DeviceID: "hwid-abc"},
			mockErr:        &sessionsvc.AccountBannedError{Reason: "cheating"},
			wantStatusCode: http.StatusForbidden,
			wantStatus:     "Error",
			wantError:      "аккаунт заблокирован: cheating",
		},
		{
			name:           "device mismatch",
			requestBody:    Request{Nickname: "player1", Password: "secret", DeviceID: "hwid-other"},
			mockErr:        sessionsvc.ErrDeviceMismatch,
			wantStatusCode: http.StatusForbidden,
			wantStatus:     "Error",
			wantError:      "аккаунт привязан к другому устройству",
		},
		{
			name:           "no active subscription",
			requestBody:    Request{Nickname: "player1", Password: "secret", DeviceID: "hwid-abc"},
			mockErr:        sessionsvc.ErrNoActiveSubscription,
			wantStatusCode: http.StatusForbidden,
			wantStatus:     "Error",
			wantError:      "нет активной подписки",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if tt.mockToken != "" || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				serviceMock.On("Login", mock.Anything, req.Nickname, req.Password, req.DeviceID).
					Return(tt.mockToken, tt.mockSummary, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, "sessiontoken", data["session_token"])
				user, ok := data["user"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, "player1", user["nickname"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
