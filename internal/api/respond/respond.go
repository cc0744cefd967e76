// Package respond provides shared JSON response utilities for API handlers.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the standard error shape for all API errors. RequestID
// echoes the X-Request-Id the router assigned, so a failure can be matched
// to the notifier's log line.
type ErrorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Detail    string `json:"detail,omitempty"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// WriteJSON writes raw JSON bytes with ETag and cache headers. Responses
// carry a parent's data, so caches are told to keep them private.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")
	setCacheHeaders(w, ttl, cacheHit)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified sends a 304 with the matching ETag.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteError sends a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, code, message, "", "")
}

// WriteFailure reports err as the detail of a request failure. A request
// that ran out of time is reported as 504 TIMEOUT whatever status the caller
// chose, since retrying is then reasonable.
func WriteFailure(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			status, code = http.StatusGatewayTimeout, "TIMEOUT"
		}
	}
	writeError(w, status, code, message, detail, middleware.GetReqID(r.Context()))
}

// WriteBusy sends 409 with a Retry-After hint, for work that is already
// running.
func WriteBusy(w http.ResponseWriter, r *http.Request, code, message string, retryAfter time.Duration) {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusConflict, code, message, "", middleware.GetReqID(r.Context()))
}

func writeError(w http.ResponseWriter, status int, code, message, detail, requestID string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Detail = detail
	resp.Error.RequestID = requestID
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteJSONObject marshals a Go value to JSON and writes it uncached.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func setCacheHeaders(w http.ResponseWriter, ttl time.Duration, cacheHit bool) {
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d, must-revalidate", int(ttl.Seconds())))
}
