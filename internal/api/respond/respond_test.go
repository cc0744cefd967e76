package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteFailureCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "host/abc-000001"))
	rec := httptest.NewRecorder()

	WriteFailure(rec, req, http.StatusInternalServerError, "CLEAR_FAILED", "Could not clear notifications", errors.New("badge store offline"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "CLEAR_FAILED", body.Error.Code)
	assert.Equal(t, "badge store offline", body.Error.Detail)
	assert.Equal(t, "host/abc-000001", body.Error.RequestID)
}

func TestWriteFailureTimeout(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()

	err := fmt.Errorf("badge count: %w", context.DeadlineExceeded)
	WriteFailure(rec, req, http.StatusInternalServerError, "BADGE_UNAVAILABLE", "Could not read badge count", err)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "TIMEOUT", body.Error.Code)
	assert.Empty(t, body.Error.RequestID)
}

func TestWriteBusy(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/poll", nil)
	rec := httptest.NewRecorder()
	WriteBusy(rec, req, "POLL_IN_PROGRESS", "A poll cycle is already running", 1500*time.Millisecond)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "POLL_IN_PROGRESS", decodeError(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	WriteBusy(rec, req, "POLL_IN_PROGRESS", "busy", 0)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestWriteJSONPrivateCache(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, []byte(`{}`), `"e1"`, 30*time.Second, true)

	assert.Equal(t, "private, max-age=30, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `"e1"`, rec.Header().Get("ETag"))
}
