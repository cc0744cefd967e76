package checkstate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/childtrack/parent-notifier/internal/kvstore"
)

type brokenKV struct{ *kvstore.Memory }

func (*brokenKV) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }

func TestFingerprintAbsentVersusEmpty(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemory(), "")

	fp, ok, err := s.Fingerprint(ctx, Events)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", fp)

	require.NoError(t, s.SetFingerprint(ctx, Events, ""))
	fp, ok, err = s.Fingerprint(ctx, Events)
	require.NoError(t, err)
	assert.True(t, ok, "an explicitly cleared fingerprint is still a known state")
	assert.Equal(t, "", fp)

	require.NoError(t, s.SetFingerprint(ctx, Events, "event-9-2026-10-18T08:00:00Z"))
	fp, _, _ = s.Fingerprint(ctx, Events)
	assert.Equal(t, "event-9-2026-10-18T08:00:00Z", fp)
}

func TestCategoriesUseDisjointKeys(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := New(kv, "np")

	require.NoError(t, s.SetFingerprint(ctx, Attendance, "5-pickup"))
	require.NoError(t, s.MarkNotified(ctx, Guardians, "12"))

	_, ok, _ := s.Fingerprint(ctx, Guardians)
	assert.False(t, ok)
	ids, _ := s.Notified(ctx, Attendance)
	assert.Empty(t, ids)

	raw, err := kv.Get(ctx, "np:v1:fingerprint:attendance")
	require.NoError(t, err)
	assert.Contains(t, raw, `"version":1`)
	_, err = kv.Get(ctx, "np:v1:notified:guardians")
	assert.NoError(t, err)
}

func TestUnsupportedRecord(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := New(kv, "")

	require.NoError(t, kv.Set(ctx, "notifier:v1:fingerprint:attendance", `{"version":7,"fingerprint":"x"}`))
	_, ok, err := s.Fingerprint(ctx, Attendance)
	assert.ErrorIs(t, err, ErrSchemaVersion)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "notifier:v1:notified:attendance", `not json`))
	_, err = s.Notified(ctx, Attendance)
	assert.ErrorIs(t, err, ErrSchemaVersion)

	// a corrupt list is replaced rather than blocking dispatch bookkeeping
	require.NoError(t, s.MarkNotified(ctx, Attendance, "1"))
	ids, err := s.Notified(ctx, Attendance)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestStorageFailureSurfaces(t *testing.T) {
	s := New(&brokenKV{kvstore.NewMemory()}, "")
	_, ok, err := s.Fingerprint(context.Background(), Attendance)
	assert.Error(t, err)
	assert.False(t, ok)

	_, err = s.IsNotified(context.Background(), Attendance, "1")
	assert.Error(t, err)
}

func TestMarkNotifiedDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemory(), "")

	require.NoError(t, s.MarkNotified(ctx, Events, "3"))
	require.NoError(t, s.MarkNotified(ctx, Events, "4"))
	require.NoError(t, s.MarkNotified(ctx, Events, "3"))

	ids, err := s.Notified(ctx, Events)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, ids)

	seen, err := s.IsNotified(ctx, Events, "4")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestNotifiedCapKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemory(), "")

	for i := 1; i <= 250; i++ {
		require.NoError(t, s.MarkNotified(ctx, Attendance, fmt.Sprint(i)))
		ids, err := s.Notified(ctx, Attendance)
		require.NoError(t, err)
		require.LessOrEqual(t, len(ids), DefaultNotifiedLimit)
	}

	ids, err := s.Notified(ctx, Attendance)
	require.NoError(t, err)
	require.Len(t, ids, 200)
	assert.Equal(t, "51", ids[0])
	assert.Equal(t, "250", ids[199])
}

func TestMarkNotifiedReadmitsEvictedID(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemory(), "", WithNotifiedLimit(1))

	for _, id := range []string{"5", "0", "2", "1", "3", "4", "5"} {
		require.NoError(t, s.MarkNotified(ctx, Attendance, id))
	}
	ids, err := s.Notified(ctx, Attendance)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, ids)
}

func TestNotifiedListProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("list is bounded, unique and re-admits evicted ids", prop.ForAll(
		func(ids []int, limit int) bool {
			ctx := context.Background()
			s := New(kvstore.NewMemory(), "", WithNotifiedLimit(limit))

			// model is the bounded list as it should be after each mark
			var model []string
			for _, n := range ids {
				id := fmt.Sprint(n)
				if err := s.MarkNotified(ctx, Guardians, id); err != nil {
					return false
				}
				if !slices.Contains(model, id) {
					model = append(model, id)
					if len(model) > limit {
						model = model[len(model)-limit:]
					}
				}
			}

			got, err := s.Notified(ctx, Guardians)
			if err != nil || len(got) > limit {
				return false
			}
			unique := map[string]bool{}
			for _, id := range got {
				if unique[id] {
					return false
				}
				unique[id] = true
			}
			return slices.Equal(got, model)
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSnapshotAndReset(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemory(), "")

	require.NoError(t, s.SetFingerprint(ctx, Guardians, "1,2"))
	require.NoError(t, s.MarkNotified(ctx, Guardians, "2"))

	snap := s.Snapshot(ctx)
	require.Len(t, snap, 3)
	assert.Equal(t, Attendance, snap[0].Category)
	assert.False(t, snap[0].Polled)
	assert.True(t, snap[2].Polled)
	assert.Equal(t, "1,2", snap[2].Fingerprint)
	assert.Equal(t, []string{"2"}, snap[2].Notified)

	require.NoError(t, s.Reset(ctx, Guardians))
	_, ok, err := s.Fingerprint(ctx, Guardians)
	require.NoError(t, err)
	assert.False(t, ok)
	ids, _ := s.Notified(ctx, Guardians)
	assert.Empty(t, ids)
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("homework").Valid())
}

func TestCopyToLeavesSourceUntouched(t *testing.T) {
	ctx := context.Background()
	src := New(kvstore.NewMemory(), "np")
	require.NoError(t, src.SetFingerprint(ctx, Events, ""))
	require.NoError(t, src.SetFingerprint(ctx, Guardians, "1,2"))
	require.NoError(t, src.MarkNotified(ctx, Guardians, "2"))
	require.NoError(t, src.MarkNotified(ctx, Guardians, "1"))

	dst := New(kvstore.NewMemory(), "scratch")
	require.NoError(t, src.CopyTo(ctx, dst))

	snap := dst.Snapshot(ctx)
	assert.False(t, snap[0].Polled)
	assert.True(t, snap[1].Polled)
	assert.Equal(t, "", snap[1].Fingerprint)
	assert.Equal(t, "1,2", snap[2].Fingerprint)
	assert.Equal(t, []string{"2", "1"}, snap[2].Notified)

	require.NoError(t, dst.MarkNotified(ctx, Guardians, "9"))
	require.NoError(t, dst.SetFingerprint(ctx, Guardians, "1,2,9"))
	fp, _, err := src.Fingerprint(ctx, Guardians)
	require.NoError(t, err)
	assert.Equal(t, "1,2", fp)
	ids, err := src.Notified(ctx, Guardians)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids)
}

func TestCopyToSkipsUnsupportedRecords(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, "notifier:v1:fingerprint:attendance", `{"version":7}`))
	src := New(kv, "")

	dst := New(kvstore.NewMemory(), "")
	require.NoError(t, src.CopyTo(ctx, dst))
	_, ok, err := dst.Fingerprint(ctx, Attendance)
	require.NoError(t, err)
	assert.False(t, ok)
}
