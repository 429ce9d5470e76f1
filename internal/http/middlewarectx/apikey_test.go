package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ravensoft/license-server/internal/lib/apikey"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAPIKeyMiddleware(t *testing.T) {
	expected := apikey.Derive("launcher passphrase")

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handler := APIKeyMiddleware(expected, newNoopLogger())(next)

	tests := []struct {
		name           string
		key            string
		wantStatusCode int
	}{
		{
			name:           "valid key",
			key:            expected,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing key",
			key:            "",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "wrong key",
			key:            apikey.Derive("wrong passphrase"),
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatusCode, rec.Code)
		})
	}
}

func TestOperatorMiddleware_MissingHeader(t *testing.T) {
	handler := OperatorMiddleware(nil, newNoopLogger())(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/keys", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
