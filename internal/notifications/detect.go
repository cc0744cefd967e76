package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/session"
)

// Detector runs the three category checks for one poll cycle.
type Detector struct {
	fetcher    Fetcher
	parents    ParentSource
	state      *checkstate.Store
	dispatcher *Dispatcher
	now        func() time.Time
	loc        *time.Location
	logger     *slog.Logger
}

// DetectorOptions configures a Detector. Now and Location default to the host
// clock and zone.
type DetectorOptions struct {
	Fetcher    Fetcher
	Parents    ParentSource
	State      *checkstate.Store
	Dispatcher *Dispatcher
	Now        func() time.Time
	Location   *time.Location
	Logger     *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(opts DetectorOptions) *Detector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Detector{
		fetcher:    opts.Fetcher,
		parents:    opts.Parents,
		state:      opts.State,
		dispatcher: opts.Dispatcher,
		now:        opts.Now,
		loc:        opts.Location,
		logger:     opts.Logger,
	}
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	Skipped string              `json:"skipped,omitempty"`
	Errors  map[Category]string `json:"errors,omitempty"`
	Sent    int                 `json:"sent"`
}

// Poll runs one cycle: resolve the student, then check every category
// concurrently. A failing category never affects the others.
func (d *Detector) Poll(ctx context.Context) CycleResult {
	parent, err := d.parents.Parent(ctx)
	if errors.Is(err, session.ErrNoSession) {
		d.logger.Info("No parent session, skipping poll")
		return CycleResult{Skipped: "no session"}
	}
	if err != nil {
		d.logger.Warn("Failed to load parent session, skipping poll", "error", err)
		return CycleResult{Skipped: "session unreadable"}
	}
	st := parent.Student()
	if !st.Identified() {
		d.logger.Info("Parent has no student on file, skipping poll")
		return CycleResult{Skipped: "no student"}
	}

	checks := map[Category]func(context.Context, Student) (bool, error){
		Attendance: d.checkAttendance,
		Events:     d.checkEvents,
		Guardians:  d.checkGuardians,
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res CycleResult
	)
	for category, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sent, err := d.safeCheck(ctx, category, check, st)
			mu.Lock()
			defer mu.Unlock()
			if sent {
				res.Sent++
			}
			if err != nil {
				d.logger.Warn("Category check failed", "category", category, "error", err)
				if res.Errors == nil {
					res.Errors = make(map[Category]string)
				}
				res.Errors[category] = err.Error()
			}
		}()
	}
	wg.Wait()
	return res
}

func (d *Detector) safeCheck(ctx context.Context, c Category, check func(context.Context, Student) (bool, error), st Student) (sent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s check panicked: %v", c, r)
		}
	}()
	return check(ctx, st)
}

// previous reads a category's fingerprint. Unreadable state counts as never
// polled.
func (d *Detector) previous(ctx context.Context, c Category) (string, bool) {
	fp, ok, err := d.state.Fingerprint(ctx, c)
	if err != nil {
		d.logger.Warn("Fingerprint unreadable, treating as first check", "category", c, "error", err)
		return "", false
	}
	return fp, ok
}

// advance persists fp when it differs from the stored value. changed is false
// when nothing moved.
func (d *Detector) advance(ctx context.Context, c Category, fp string) (known, changed bool, err error) {
	prev, known := d.previous(ctx, c)
	if known && prev == fp {
		return true, false, nil
	}
	if err := d.state.SetFingerprint(ctx, c, fp); err != nil {
		return known, false, fmt.Errorf("save %s fingerprint: %w", c, err)
	}
	return known, true, nil
}

// --------------------------------------------------------------------------
// Category checks
// --------------------------------------------------------------------------

func (d *Detector) checkAttendance(ctx context.Context, st Student) (bool, error) {
	records, err := d.fetcher.FetchAttendance(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch attendance: %w", err)
	}

	today := FilterAttendance(records, st, d.now().In(d.loc))
	if len(today) == 0 {
		return false, nil
	}
	latest := newestAttendance(today, d.loc)

	known, changed, err := d.advance(ctx, Attendance, AttendanceFingerprint(latest))
	if err != nil || !changed {
		return false, err
	}
	if !known {
		d.logger.Info("First attendance check, not notifying", "record", latest.ID)
		return false, nil
	}
	return d.dispatcher.Dispatch(ctx, AttendanceCandidate(latest, st.Name))
}

func (d *Detector) checkEvents(ctx context.Context, st Student) (bool, error) {
	events, err := d.fetcher.FetchEvents(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch events: %w", err)
	}

	now := d.now().In(d.loc)
	upcoming := FilterEvents(events, st, now)
	if len(upcoming) == 0 {
		_, _, err := d.advance(ctx, Events, "")
		return false, err
	}
	newest := newestEvent(upcoming, d.loc)

	known, changed, err := d.advance(ctx, Events, EventFingerprint(newest))
	if err != nil || !changed {
		return false, err
	}
	if !known && !recentlyCreated(newest, now) {
		d.logger.Info("First events check, newest event is not recent", "event", newest.ID)
		return false, nil
	}
	return d.dispatcher.Dispatch(ctx, EventCandidate(newest, d.loc))
}

func (d *Detector) checkGuardians(ctx context.Context, st Student) (bool, error) {
	requests, err := d.fetcher.FetchGuardianRequests(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch guardian requests: %w", err)
	}

	pending := FilterGuardians(requests, st)
	known, changed, err := d.advance(ctx, Guardians, GuardianFingerprint(pending))
	if err != nil || !changed {
		return false, err
	}
	if !known {
		d.logger.Info("First guardian check, not notifying", "pending", len(pending))
		return false, nil
	}
	if len(pending) == 0 {
		return false, nil
	}
	return d.dispatcher.Dispatch(ctx, GuardianCandidate(newestGuardian(pending, d.loc)))
}
