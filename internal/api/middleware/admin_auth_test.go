package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret, role string, expiresAt time.Time) string {
	t.Helper()

	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdminAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := GetAdminSubject(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "ops@example.com", sub)
		w.WriteHeader(http.StatusOK)
	})
	h := AdminAuth(testSecret, discardLogger())(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "valid admin token",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, AdminRole, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
		},
		{
			name:       "lowercase scheme",
			header:     "bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, AdminRole, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", AdminRole, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, AdminRole, time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "HS512 rejected",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, AdminRole, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-admin role",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, "viewer", time.Now().Add(time.Hour)),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "garbage token",
			header:     "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/overview", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestAdminAuth_EmptySecretDisablesCheck(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	AdminAuth("", discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/cache", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
