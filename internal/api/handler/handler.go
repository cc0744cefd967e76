// Package handler provides HTTP handlers for the notifier's local API: the
// delivered-notification inbox, tap routing, service status and persisted
// check-state.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/childtrack/parent-notifier/internal/api/respond"
	"github.com/childtrack/parent-notifier/internal/cache"
	"github.com/childtrack/parent-notifier/internal/config"
	"github.com/childtrack/parent-notifier/internal/kvstore"
	"github.com/childtrack/parent-notifier/internal/listener"
	"github.com/childtrack/parent-notifier/internal/localnotify"
	"github.com/childtrack/parent-notifier/internal/notifications"
)

// Version is reported by the root endpoint; set at build time.
var Version = "dev"

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	service  *notifications.Service
	center   *localnotify.Center
	recorder *listener.RouteRecorder
	store    kvstore.Store
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// Deps are the handler dependencies.
type Deps struct {
	Service  *notifications.Service
	Center   *localnotify.Center
	Recorder *listener.RouteRecorder
	Store    kvstore.Store
	Cache    *cache.Cache
	Config   *config.Config
	Logger   *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Cache == nil {
		d.Cache = cache.New(false)
	}
	return &Handler{
		service:  d.Service,
		center:   d.Center,
		recorder: d.Recorder,
		store:    d.Store,
		cache:    d.Cache,
		cfg:      d.Config,
		logger:   d.Logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns the service name, version and docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":    "ChildTrack Parent Notifier",
		"version": Version,
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies the persistent store.
// @Summary Store health check
// @Description Pings the configured key-value store.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	driver := ""
	if h.cfg != nil {
		driver = h.cfg.StoreDriver
	}
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Store health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"store":     driver,
			"error":     "Store connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"store":     driver,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns response cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
