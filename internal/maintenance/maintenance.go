// Package maintenance runs periodic background tasks as Go tickers: inbox
// retention and persistent-store health.
package maintenance

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PruneInterval  time.Duration // Drop delivered notifications past retention
	InboxRetention time.Duration
	HealthInterval time.Duration // Ping the persistent store
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		PruneInterval:  30 * time.Minute,
		InboxRetention: 72 * time.Hour,
		HealthInterval: 5 * time.Minute,
	}
}

// Pruner drops inbox entries older than a retention period.
type Pruner interface {
	Prune(olderThan time.Duration) int
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Invalidator forgets cached responses under a key prefix.
type Invalidator interface {
	Invalidate(prefix string) int
}

// Targets are what the tasks act on. Nil targets disable their task.
type Targets struct {
	Inbox Pruner
	Cache Invalidator
	Store Pinger
}

// Runner executes the maintenance tasks.
type Runner struct {
	targets Targets
	cfg     Config
	logger  *slog.Logger

	storeHealthy atomic.Bool
}

// NewRunner creates a Runner. The store starts out assumed healthy.
func NewRunner(targets Targets, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{targets: targets, cfg: cfg, logger: logger}
	r.storeHealthy.Store(true)
	return r
}

// StoreHealthy reports the result of the last store check.
func (r *Runner) StoreHealthy() bool { return r.storeHealthy.Load() }

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("Maintenance tickers started",
		"prune", r.cfg.PruneInterval,
		"retention", r.cfg.InboxRetention,
		"health", r.cfg.HealthInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if r.cfg.PruneInterval > 0 && r.targets.Inbox != nil {
		t := time.NewTicker(r.cfg.PruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { r.PruneInbox() })
	}

	if r.cfg.HealthInterval > 0 && r.targets.Store != nil {
		t := time.NewTicker(r.cfg.HealthInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { r.CheckStore(ctx) })
	}

	<-ctx.Done()
	r.logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// PruneInbox removes delivered notifications past retention and drops the
// cached inbox when anything was removed.
func (r *Runner) PruneInbox() int {
	if r.targets.Inbox == nil || r.cfg.InboxRetention <= 0 {
		return 0
	}
	n := r.targets.Inbox.Prune(r.cfg.InboxRetention)
	if n > 0 {
		if r.targets.Cache != nil {
			r.targets.Cache.Invalidate("inbox:")
		}
		r.logger.Info("Pruned delivered notifications", "count", n, "retention", r.cfg.InboxRetention)
	}
	return n
}

// CheckStore pings the store and logs health transitions.
func (r *Runner) CheckStore(ctx context.Context) error {
	if r.targets.Store == nil {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.targets.Store.Ping(pingCtx)
	was := r.storeHealthy.Swap(err == nil)
	switch {
	case err != nil && was:
		r.logger.Error("Persistent store unreachable", "error", err)
	case err == nil && !was:
		r.logger.Info("Persistent store recovered")
	}
	return err
}
