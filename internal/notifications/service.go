package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/listener"
	"github.com/childtrack/parent-notifier/internal/platform"
)

// Service is the notifier's public surface. It is built once by the
// composition root and owns the scheduler and listener subscriptions.
type Service struct {
	presenter platform.Presenter
	state     *checkstate.Store
	scheduler *Scheduler
	listeners *listener.Manager
	logger    *slog.Logger

	mu         sync.Mutex
	permission platform.Permission
}

// ServiceOptions wires a Service.
type ServiceOptions struct {
	Presenter platform.Presenter
	Fetcher   Fetcher
	Parents   ParentSource
	State     *checkstate.Store
	Interval  time.Duration
	Now       func() time.Time
	Location  *time.Location
	Logger    *slog.Logger
}

// NewService builds the detector, dispatcher, scheduler and listener manager.
func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := NewDispatcher(opts.Presenter, opts.State, logger)
	detector := NewDetector(DetectorOptions{
		Fetcher:    opts.Fetcher,
		Parents:    opts.Parents,
		State:      opts.State,
		Dispatcher: dispatcher,
		Now:        opts.Now,
		Location:   opts.Location,
		Logger:     logger,
	})
	return &Service{
		presenter:  opts.Presenter,
		state:      opts.State,
		scheduler:  NewScheduler(detector, opts.Interval, logger),
		listeners:  listener.NewManager(opts.Presenter, logger),
		logger:     logger,
		permission: platform.PermissionUndetermined,
	}
}

// Initialize requests permission, configures the channels and starts
// polling. It returns false, without polling, when permission is denied.
func (s *Service) Initialize(ctx context.Context) bool {
	perm, err := s.presenter.RequestPermission(ctx)
	if err != nil {
		s.logger.Error("Permission request failed", "error", err)
		perm = platform.PermissionDenied
	}
	s.mu.Lock()
	s.permission = perm
	s.mu.Unlock()

	if perm != platform.PermissionGranted {
		s.logger.Warn("Notification permission not granted, polling disabled", "permission", perm)
		return false
	}

	for _, ch := range platform.DefaultChannels {
		if err := s.presenter.ConfigureChannel(ctx, ch); err != nil {
			s.logger.Error("Failed to configure channel", "channel", ch.ID, "error", err)
			return false
		}
	}

	s.scheduler.Start(ctx)
	s.logger.Info("Notifications initialized")
	return true
}

// StopPolling stops the timer. In-flight cycles are not aborted.
func (s *Service) StopPolling() {
	s.scheduler.Stop()
}

// Wait blocks until timer-started cycles have finished.
func (s *Service) Wait() {
	s.scheduler.Wait()
}

// SetupListeners subscribes to received and tapped notifications; taps
// navigate through nav.
func (s *Service) SetupListeners(nav listener.Navigator) {
	s.listeners.Setup(nav)
}

// RemoveListeners unsubscribes both streams and stops polling.
func (s *Service) RemoveListeners() {
	s.listeners.Remove()
	s.scheduler.Stop()
}

// PollNow runs a cycle immediately unless one is running.
func (s *Service) PollNow(ctx context.Context) (CycleResult, bool) {
	return s.scheduler.RunOnce(ctx)
}

// PollInterval is the scheduler's tick interval.
func (s *Service) PollInterval() time.Duration {
	return s.scheduler.Interval()
}

// PermissionStatus is the last permission answer.
func (s *Service) PermissionStatus() platform.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

func (s *Service) BadgeCount(ctx context.Context) (int, error) {
	n, err := s.presenter.BadgeCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("badge count: %w", err)
	}
	return n, nil
}

func (s *Service) SetBadgeCount(ctx context.Context, n int) error {
	if err := s.presenter.SetBadgeCount(ctx, n); err != nil {
		return fmt.Errorf("set badge count: %w", err)
	}
	return nil
}

// ClearAllNotifications dismisses delivered notifications and resets the
// badge.
func (s *Service) ClearAllNotifications(ctx context.Context) error {
	if err := s.presenter.DismissAll(ctx); err != nil {
		return fmt.Errorf("dismiss notifications: %w", err)
	}
	return s.SetBadgeCount(ctx, 0)
}

// State returns the persisted check-state of every category.
func (s *Service) State(ctx context.Context) []checkstate.CategoryState {
	return s.state.Snapshot(ctx)
}

// Status describes the service for the local API.
type Status struct {
	Permission      platform.Permission `json:"permission"`
	ListenersActive bool                `json:"listeners_active"`
	Scheduler       SchedulerStats      `json:"scheduler"`
}

func (s *Service) Status() Status {
	return Status{
		Permission:      s.PermissionStatus(),
		ListenersActive: s.listeners.Active(),
		Scheduler:       s.scheduler.Stats(),
	}
}
