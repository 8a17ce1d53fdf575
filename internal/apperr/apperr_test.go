package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMapToStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{Unauthenticated("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{Provider("x"), http.StatusUnauthorized},
		{ProviderUnavailable("x"), http.StatusBadGateway},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{NotFound("x"), http.StatusNotFound},
		{RateLimited(), http.StatusTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestErrorsIsMatchesSentinelCopies(t *testing.T) {
	sentinel := Unauthenticated("Invalid credentials")
	wrapped := fmt.Errorf("login: %w", sentinel.WithCause(errors.New("bcrypt mismatch")))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, Unauthenticated("Token expired"))
	assert.Nil(t, sentinel.Cause, "WithCause must not mutate the sentinel")
	assert.True(t, IsKind(wrapped, KindUnauthenticated))
}

func TestAs_UntypedErrorBecomesInternal(t *testing.T) {
	e := As(errors.New("db down"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, InternalMessage, e.Message)
}

func TestWrite_Envelope(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	t.Run("validation carries field errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		Write(rec, req, Validation("Validation failed", FieldError{Field: "email", Message: "email is required"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "Validation failed", body.Message)
		assert.Equal(t, "2024-03-01T12:00:00Z", body.Timestamp)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "email", body.Errors[0].Field)
	})

	t.Run("internal cause is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		Write(rec, req, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")

		var raw map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		assert.Equal(t, InternalMessage, raw["message"])
		assert.Nil(t, raw["errors"])
	})
}
