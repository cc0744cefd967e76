package listener

import (
	"maps"
	"sync"
	"time"
)

const defaultHistory = 20

// Visit is one navigation recorded by a RouteRecorder.
type Visit struct {
	Route  string            `json:"route"`
	Params map[string]string `json:"params,omitempty"`
	At     time.Time         `json:"at"`
}

// RouteRecorder is a Navigator that remembers where taps led.
type RouteRecorder struct {
	mu      sync.RWMutex
	history []Visit
	limit   int
	now     func() time.Time
}

// NewRouteRecorder keeps the last limit visits (20 when limit <= 0).
func NewRouteRecorder(limit int) *RouteRecorder {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &RouteRecorder{limit: limit, now: time.Now}
}

func (r *RouteRecorder) Navigate(route string, params map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, Visit{Route: route, Params: maps.Clone(params), At: r.now()})
	if over := len(r.history) - r.limit; over > 0 {
		r.history = append([]Visit(nil), r.history[over:]...)
	}
}

// Current returns the latest visit, if any.
func (r *RouteRecorder) Current() (Visit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.history) == 0 {
		return Visit{}, false
	}
	return r.history[len(r.history)-1], true
}

// History returns visits, oldest first.
func (r *RouteRecorder) History() []Visit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Visit(nil), r.history...)
}
