package notifications

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler drives poll cycles: one immediately on Start, then one per
// interval until Stop. A tick that arrives while a cycle is still running is
// skipped.
type Scheduler struct {
	detector *Detector
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inFlight atomic.Bool
	cycles   sync.WaitGroup

	statsMu   sync.Mutex
	completed uint64
	skipped   uint64
	lastAt    time.Time
	last      CycleResult
}

// NewScheduler creates an idle Scheduler. interval <= 0 means
// DefaultPollInterval.
func NewScheduler(detector *Detector, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{detector: detector, interval: interval, logger: logger}
}

// Start enters the polling state. It is a no-op when already polling.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Debug("Polling already started")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)
}

// Stop cancels the timer and returns to idle. Cycles already running finish
// on their own. Safe to call when idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Polling reports whether the scheduler is started.
func (s *Scheduler) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Interval is the time between cycles.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Wait blocks until cycles started by the timer have finished. Call after
// Stop.
func (s *Scheduler) Wait() { s.cycles.Wait() }

// RunOnce runs a cycle now, unless one is already running. ran is false when
// it was skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (res CycleResult, ran bool) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.noteSkipped()
		return CycleResult{}, false
	}
	res = func() CycleResult {
		defer s.inFlight.Store(false)
		return s.detector.Poll(ctx)
	}()

	s.statsMu.Lock()
	s.completed++
	s.lastAt = time.Now()
	s.last = res
	s.statsMu.Unlock()
	return res, true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.logger.Info("Polling started", "interval", s.interval)

	// Cycles outlive Stop, so they must not inherit the timer's cancellation.
	cycleCtx := context.WithoutCancel(ctx)
	s.spawn(cycleCtx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.spawn(cycleCtx)
		case <-ctx.Done():
			s.logger.Info("Polling stopped")
			return
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context) {
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		if _, ran := s.RunOnce(ctx); !ran {
			s.logger.Debug("Previous poll cycle still running, skipping tick")
		}
	}()
}

func (s *Scheduler) noteSkipped() {
	s.statsMu.Lock()
	s.skipped++
	s.statsMu.Unlock()
}

// SchedulerStats describes the scheduler for status reporting.
type SchedulerStats struct {
	Polling         bool         `json:"polling"`
	Interval        string       `json:"interval"`
	CyclesCompleted uint64       `json:"cycles_completed"`
	CyclesSkipped   uint64       `json:"cycles_skipped"`
	LastCycleAt     *time.Time   `json:"last_cycle_at,omitempty"`
	LastCycle       *CycleResult `json:"last_cycle,omitempty"`
	InFlight        bool         `json:"in_flight"`
}

// Stats returns a point-in-time copy of the scheduler's counters.
func (s *Scheduler) Stats() SchedulerStats {
	st := SchedulerStats{
		Polling:  s.Polling(),
		Interval: s.interval.String(),
		InFlight: s.inFlight.Load(),
	}
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st.CyclesCompleted, st.CyclesSkipped = s.completed, s.skipped
	if !s.lastAt.IsZero() {
		at, last := s.lastAt, s.last
		st.LastCycleAt, st.LastCycle = &at, &last
	}
	return st
}
