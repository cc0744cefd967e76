package notifications

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/kvstore"
	"github.com/childtrack/parent-notifier/internal/localnotify"
	"github.com/childtrack/parent-notifier/internal/platform"
	"github.com/childtrack/parent-notifier/internal/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeFetcher serves whatever collections the test sets.
type fakeFetcher struct {
	mu         sync.Mutex
	attendance []AttendanceRecord
	events     []Event
	guardians  []GuardianRequest
	errs       map[Category]error
	block      chan struct{}
	panicOn    Category
}

func (f *fakeFetcher) set(fn func(f *fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFetcher) wait(c Category) error {
	f.mu.Lock()
	block, err, panicOn := f.block, f.errs[c], f.panicOn
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if panicOn == c {
		panic("boom")
	}
	return err
}

func (f *fakeFetcher) FetchAttendance(context.Context) ([]AttendanceRecord, error) {
	if err := f.wait(Attendance); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AttendanceRecord(nil), f.attendance...), nil
}

func (f *fakeFetcher) FetchEvents(context.Context) ([]Event, error) {
	if err := f.wait(Events); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...), nil
}

func (f *fakeFetcher) FetchGuardianRequests(context.Context) ([]GuardianRequest, error) {
	if err := f.wait(Guardians); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GuardianRequest(nil), f.guardians...), nil
}

type harness struct {
	kv       *kvstore.Memory
	fetch    *fakeFetcher
	center   *localnotify.Center
	state    *checkstate.Store
	sessions *session.Store
	detector *Detector
	now      time.Time
}

const testParent = `{"id":1,"student_lrn":"123","student_name":"Ana Cruz","student_section":"A","teacher_name":"Ms. Reyes"}`

func newHarness(t *testing.T, parent string) *harness {
	t.Helper()
	ctx := context.Background()
	kv := kvstore.NewMemory()

	h := &harness{
		kv:       kv,
		fetch:    &fakeFetcher{},
		center:   localnotify.New(localnotify.Options{Logger: discard}),
		state:    checkstate.New(kv, "test"),
		sessions: session.New(kv),
		now:      testNow,
	}
	if parent != "" {
		_, err := h.sessions.SaveRaw(ctx, json.RawMessage(parent))
		require.NoError(t, err)
	}
	_, err := h.center.RequestPermission(ctx)
	require.NoError(t, err)
	for _, ch := range platform.DefaultChannels {
		require.NoError(t, h.center.ConfigureChannel(ctx, ch))
	}

	h.detector = NewDetector(DetectorOptions{
		Fetcher:    h.fetch,
		Parents:    h.sessions,
		State:      h.state,
		Dispatcher: NewDispatcher(h.center, h.state, discard),
		Now:        func() time.Time { return h.now },
		Location:   time.UTC,
		Logger:     discard,
	})
	return h
}

func (h *harness) poll() CycleResult {
	return h.detector.Poll(context.Background())
}

func (h *harness) titles() []string {
	var out []string
	for _, n := range h.center.List() {
		out = append(out, n.Message.Title)
	}
	return out
}
