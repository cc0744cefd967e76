package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceColdStartThenPickup(t *testing.T) {
	h := newHarness(t, `{"id":1,"student_lrn":"123","student_name":"Ana Cruz"}`)
	h.fetch.set(func(f *fakeFetcher) {
		f.attendance = []AttendanceRecord{
			{ID: "4", StudentLRN: "123", Status: "Drop-off", Date: "2026-10-18", CreatedAt: "2026-10-18T07:30:00Z"},
		}
	})

	res := h.poll()
	assert.Empty(t, res.Errors)
	assert.Empty(t, h.center.List(), "first poll is silent")
	fp, ok, err := h.state.Fingerprint(context.Background(), Attendance)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4-dropoff", fp)

	h.fetch.set(func(f *fakeFetcher) {
		f.attendance = append(f.attendance, AttendanceRecord{
			ID: "5", StudentLRN: "123", Status: "Pick-up", Date: "2026-10-18", CreatedAt: "2026-10-18T08:45:00Z",
		})
	})
	res = h.poll()
	assert.Equal(t, 1, res.Sent)

	list := h.center.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Child Picked Up", list[0].Message.Title)
	assert.Equal(t, "Ana Cruz has been picked up", list[0].Message.Body)
	assert.Equal(t, "attendance", list[0].Message.Channel)

	h.poll()
	assert.Len(t, h.center.List(), 1, "unchanged fingerprint sends nothing")
}

func TestAttendanceWithoutRecordsKeepsState(t *testing.T) {
	h := newHarness(t, testParent)
	ctx := context.Background()

	h.poll()
	_, ok, err := h.state.Fingerprint(ctx, Attendance)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.state.SetFingerprint(ctx, Attendance, "4-present"))
	h.poll()
	fp, _, _ := h.state.Fingerprint(ctx, Attendance)
	assert.Equal(t, "4-present", fp, "yesterday's fingerprint survives an empty day")
}

func TestAttendanceStatusChangeOnSameRecordIsDeduped(t *testing.T) {
	h := newHarness(t, testParent)
	h.fetch.set(func(f *fakeFetcher) {
		f.attendance = []AttendanceRecord{{ID: "7", StudentLRN: "123", Status: "present", Date: "2026-10-18"}}
	})
	h.poll()

	h.fetch.set(func(f *fakeFetcher) { f.attendance[0].Status = "late" })
	h.poll()
	require.Equal(t, []string{"Late Arrival"}, h.titles())

	h.fetch.set(func(f *fakeFetcher) { f.attendance[0].Status = "absent" })
	h.poll()
	assert.Equal(t, []string{"Late Arrival"}, h.titles(), "record 7 was already notified")
}

func TestEventsColdStartRecency(t *testing.T) {
	t.Run("created now", func(t *testing.T) {
		h := newHarness(t, testParent)
		h.fetch.set(func(f *fakeFetcher) {
			f.events = []Event{{ID: "1", Title: "Fair", ScheduledAt: "2026-10-19T09:00:00Z", CreatedAt: testNow.Format(time.RFC3339)}}
		})
		h.poll()
		require.Len(t, h.center.List(), 1)
		assert.Equal(t, "Fair - Oct 19, 2026", h.center.List()[0].Message.Body)
	})

	t.Run("created 30 days ago", func(t *testing.T) {
		h := newHarness(t, testParent)
		h.fetch.set(func(f *fakeFetcher) {
			f.events = []Event{{ID: "1", Title: "Fair", ScheduledAt: "2026-10-19T09:00:00Z", CreatedAt: testNow.AddDate(0, 0, -30).Format(time.RFC3339)}}
		})
		h.poll()
		assert.Empty(t, h.center.List())
	})

	t.Run("missing created_at", func(t *testing.T) {
		h := newHarness(t, testParent)
		h.fetch.set(func(f *fakeFetcher) {
			f.events = []Event{{ID: "1", Title: "Fair", ScheduledAt: "2026-10-19T09:00:00Z"}}
		})
		h.poll()
		assert.Empty(t, h.center.List())
	})
}

func TestEventsFingerprintClearing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testParent)
	event := Event{ID: "3", Title: "Recital", ScheduledAt: "2026-10-20T09:00:00Z", CreatedAt: "2026-09-01T00:00:00Z"}

	h.fetch.set(func(f *fakeFetcher) { f.events = []Event{event} })
	h.poll()
	assert.Empty(t, h.center.List())

	h.fetch.set(func(f *fakeFetcher) { f.events = nil })
	h.poll()
	fp, ok, err := h.state.Fingerprint(ctx, Events)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", fp)

	h.fetch.set(func(f *fakeFetcher) { f.events = []Event{event} })
	h.poll()
	assert.Equal(t, []string{"New Event"}, h.titles())
}

func TestEventsReappearingAfterNotifyStaysDeduplicated(t *testing.T) {
	h := newHarness(t, testParent)
	event := Event{ID: "3", Title: "Recital", ScheduledAt: "2026-10-20T09:00:00Z", CreatedAt: testNow.Format(time.RFC3339)}

	h.fetch.set(func(f *fakeFetcher) { f.events = []Event{event} })
	h.poll()
	require.Equal(t, []string{"New Event"}, h.titles())

	h.fetch.set(func(f *fakeFetcher) { f.events = nil })
	h.poll()

	h.fetch.set(func(f *fakeFetcher) { f.events = []Event{event} })
	h.poll()
	assert.Equal(t, []string{"New Event"}, h.titles(), "event id already notified")

	fp, _, err := h.state.Fingerprint(context.Background(), Events)
	require.NoError(t, err)
	assert.Equal(t, EventFingerprint(event), fp)
}

func TestEventsColdStartWithNothingUpcomingRecordsEmpty(t *testing.T) {
	h := newHarness(t, testParent)
	h.poll()
	fp, ok, err := h.state.Fingerprint(context.Background(), Events)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", fp)
}

func TestEventsNotifiesNewestCreated(t *testing.T) {
	h := newHarness(t, testParent)
	h.fetch.set(func(f *fakeFetcher) {
		f.events = []Event{{ID: "1", Title: "Old", ScheduledAt: "2026-10-19T09:00:00Z", CreatedAt: "2026-10-01T00:00:00Z"}}
	})
	h.poll()

	h.fetch.set(func(f *fakeFetcher) {
		f.events = append(f.events,
			Event{ID: "2", Title: "Trip", ScheduledAt: "2026-10-22T09:00:00Z", CreatedAt: "2026-10-18T08:59:00Z", Section: "A"},
			Event{ID: "3", Title: "Other class", ScheduledAt: "2026-10-22T09:00:00Z", CreatedAt: "2026-10-18T09:00:00Z", Section: "B"},
		)
	})
	h.poll()
	list := h.center.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Trip - Oct 22, 2026", list[0].Message.Body)
	assert.Equal(t, "2", list[0].Message.Data["event_id"])
}

func TestGuardians(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testParent)
	first := GuardianRequest{ID: "10", Name: "Lola", StudentLRN: "123", Status: "pending", CreatedAt: "2026-10-18T07:00:00Z"}
	second := GuardianRequest{ID: "11", Name: "Tito", StudentLRN: "123", Status: "unregistered", CreatedAt: "2026-10-18T08:00:00Z"}

	h.fetch.set(func(f *fakeFetcher) { f.guardians = []GuardianRequest{first} })
	h.poll()
	assert.Empty(t, h.center.List(), "first poll is silent")

	h.fetch.set(func(f *fakeFetcher) { f.guardians = []GuardianRequest{first, second} })
	h.poll()
	require.Len(t, h.center.List(), 1)
	assert.Equal(t, "Tito is requesting to be added as a guardian", h.center.List()[0].Message.Body)
	fp, _, _ := h.state.Fingerprint(ctx, Guardians)
	assert.Equal(t, "10,11", fp)

	// Lola was approved; Tito is still the newest and was already announced.
	h.fetch.set(func(f *fakeFetcher) { f.guardians = []GuardianRequest{second} })
	h.poll()
	assert.Len(t, h.center.List(), 1)

	h.fetch.set(func(f *fakeFetcher) { f.guardians = nil })
	h.poll()
	assert.Len(t, h.center.List(), 1)
	fp, ok, _ := h.state.Fingerprint(ctx, Guardians)
	assert.True(t, ok)
	assert.Equal(t, "", fp)
}

func TestCategoryFailureIsIsolated(t *testing.T) {
	h := newHarness(t, testParent)
	require.NoError(t, h.state.SetFingerprint(context.Background(), Attendance, "1-present"))
	h.fetch.set(func(f *fakeFetcher) {
		f.errs = map[Category]error{Events: errors.New("connection refused")}
		f.attendance = []AttendanceRecord{{ID: "2", StudentLRN: "123", Status: "absent", Date: "2026-10-18"}}
		f.panicOn = Guardians
	})

	res := h.poll()
	assert.Equal(t, 1, res.Sent)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[Events], "connection refused")
	assert.Contains(t, res.Errors[Guardians], "panicked")
	assert.Equal(t, []string{"Absence Recorded"}, h.titles())
}

func TestPollSkipsWithoutStudent(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		h := newHarness(t, "")
		assert.Equal(t, "no session", h.poll().Skipped)
	})

	t.Run("no student", func(t *testing.T) {
		h := newHarness(t, testParent)
		require.NoError(t, h.kv.Set(context.Background(), "parent", `{"id":1,"name":"Parent only"}`))
		assert.Equal(t, "no student", h.poll().Skipped)
	})
}
