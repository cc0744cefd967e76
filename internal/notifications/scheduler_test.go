package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsImmediatelyAndOnInterval(t *testing.T) {
	h := newHarness(t, testParent)
	s := NewScheduler(h.detector, 20*time.Millisecond, discard)

	assert.False(t, s.Polling())
	s.Start(context.Background())
	s.Start(context.Background())
	assert.True(t, s.Polling())

	require.Eventually(t, func() bool { return s.Stats().CyclesCompleted >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	s.Wait()
	assert.False(t, s.Polling())

	done := s.Stats().CyclesCompleted
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, done, s.Stats().CyclesCompleted, "no cycles after stop")
}

func TestSchedulerStartRunsFirstCycleWithoutWaiting(t *testing.T) {
	h := newHarness(t, testParent)
	s := NewScheduler(h.detector, time.Hour, discard)
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Stats().CyclesCompleted == 1 }, time.Second, 5*time.Millisecond)
	st := s.Stats()
	require.NotNil(t, st.LastCycleAt)
	assert.Equal(t, "1h0m0s", st.Interval)
}

func TestSchedulerSkipsOverlappingCycles(t *testing.T) {
	h := newHarness(t, testParent)
	block := make(chan struct{})
	h.fetch.set(func(f *fakeFetcher) { f.block = block })
	s := NewScheduler(h.detector, 10*time.Millisecond, discard)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return s.Stats().InFlight }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return s.Stats().CyclesSkipped >= 2 }, time.Second, 5*time.Millisecond)

	_, ran := s.RunOnce(context.Background())
	assert.False(t, ran)

	s.Stop()
	assert.True(t, s.Stats().InFlight, "stop does not abort the running cycle")

	h.fetch.set(func(f *fakeFetcher) { f.block = nil })
	close(block)
	s.Wait()
	assert.False(t, s.Stats().InFlight)
	assert.GreaterOrEqual(t, s.Stats().CyclesCompleted, uint64(1))
}

func TestSchedulerRestart(t *testing.T) {
	h := newHarness(t, testParent)
	s := NewScheduler(h.detector, time.Hour, discard)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return s.Stats().CyclesCompleted == 1 }, time.Second, time.Millisecond)
	s.Stop()
	s.Wait()

	s.Start(context.Background())
	defer s.Stop()
	require.Eventually(t, func() bool { return s.Stats().CyclesCompleted == 2 }, time.Second, time.Millisecond)
}

func TestNewSchedulerDefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultPollInterval, NewScheduler(nil, 0, nil).Interval())
}
