package handler

import (
	"encoding/json"
	"net/http"

	"github.com/childtrack/parent-notifier/internal/api/respond"
	"github.com/childtrack/parent-notifier/internal/cache"
	"github.com/childtrack/parent-notifier/internal/listener"
)

// NavigationResponse is where notification taps have led.
type NavigationResponse struct {
	Current *listener.Visit  `json:"current"`
	History []listener.Visit `json:"history"`
}

// GetStatus returns the service status.
// @Summary Notifier status
// @Description Permission, listener and scheduler state.
// @Tags status
// @Produce json
// @Success 200 {object} notifications.Status
// @Router /status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.service.Status())
}

// GetState returns the persisted fingerprints and notified lists.
// @Summary Check-state
// @Description Per-category fingerprint and notified item IDs.
// @Tags status
// @Produce json
// @Success 200 {array} checkstate.CategoryState
// @Router /state [get]
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(h.service.State(r.Context()))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Could not encode state")
		return
	}
	etag := cache.ComputeETag(data)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLState, false)
}

// GetNavigation returns the current route and tap history.
// @Summary Navigation
// @Tags status
// @Produce json
// @Success 200 {object} NavigationResponse
// @Router /navigation [get]
func (h *Handler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	resp := NavigationResponse{History: h.recorder.History()}
	if cur, ok := h.recorder.Current(); ok {
		resp.Current = &cur
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}

// Poll runs a poll cycle immediately.
// @Summary Poll now
// @Description Runs one poll cycle unless one is already running.
// @Tags status
// @Produce json
// @Success 200 {object} notifications.CycleResult
// @Failure 409 {object} respond.ErrorResponse
// @Router /poll [post]
func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	res, ran := h.service.PollNow(r.Context())
	if !ran {
		respond.WriteBusy(w, r, "POLL_IN_PROGRESS", "A poll cycle is already running", h.service.PollInterval())
		return
	}
	h.cache.Invalidate("inbox:")
	respond.WriteJSONObject(w, http.StatusOK, res)
}
