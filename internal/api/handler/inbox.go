package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/childtrack/parent-notifier/internal/api/respond"
	"github.com/childtrack/parent-notifier/internal/cache"
	"github.com/childtrack/parent-notifier/internal/listener"
	"github.com/childtrack/parent-notifier/internal/localnotify"
	"github.com/childtrack/parent-notifier/internal/platform"
)

// InboxResponse is the delivered-notification list.
type InboxResponse struct {
	Notifications []platform.Notification `json:"notifications"`
	Badge         int                     `json:"badge"`
	Revision      uint64                  `json:"revision"`
}

// TapResponse reports where a tapped notification leads.
type TapResponse struct {
	Notification platform.Notification `json:"notification"`
	Route        string                `json:"route"`
	Params       map[string]string     `json:"params,omitempty"`
}

// GetNotifications returns delivered notifications, newest first.
// @Summary List delivered notifications
// @Description Returns the inbox of delivered notifications and the badge count. Supports If-None-Match.
// @Tags notifications
// @Produce json
// @Success 200 {object} InboxResponse
// @Success 304 "Not Modified"
// @Router /notifications [get]
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	revision := h.center.Revision()
	cacheKey := fmt.Sprintf("inbox:%d", revision)
	ttl := cache.TTLInbox

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	badge, err := h.service.BadgeCount(r.Context())
	if err != nil {
		respond.WriteFailure(w, r, http.StatusInternalServerError, "BADGE_UNAVAILABLE", "Could not read badge count", err)
		return
	}
	list := h.center.List()
	if list == nil {
		list = []platform.Notification{}
	}
	data, err := json.Marshal(InboxResponse{Notifications: list, Badge: badge, Revision: revision})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Could not encode inbox")
		return
	}

	h.cache.Invalidate("inbox:")
	etag := h.cache.Set(cacheKey, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// TapNotification simulates tapping a delivered notification.
// @Summary Tap a notification
// @Description Fires the tapped listeners for a delivered notification and reports the resulting route.
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} TapResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /notifications/{id}/tap [post]
func (h *Handler) TapNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.center.Tap(id)
	if errors.Is(err, localnotify.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "No notification "+id)
		return
	}
	if err != nil {
		respond.WriteFailure(w, r, http.StatusInternalServerError, "TAP_FAILED", "Could not tap notification", err)
		return
	}
	route, params := listener.Route(n.Message.Data)
	respond.WriteJSONObject(w, http.StatusOK, TapResponse{Notification: n, Route: route, Params: params})
}

// ClearNotifications dismisses every delivered notification and resets the badge.
// @Summary Clear notifications
// @Tags notifications
// @Success 204 "No Content"
// @Failure 500 {object} respond.ErrorResponse
// @Router /notifications [delete]
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAllNotifications(r.Context()); err != nil {
		respond.WriteFailure(w, r, http.StatusInternalServerError, "CLEAR_FAILED", "Could not clear notifications", err)
		return
	}
	h.cache.Invalidate("inbox:")
	w.WriteHeader(http.StatusNoContent)
}
