package listener

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/childtrack/parent-notifier/internal/localnotify"
	"github.com/childtrack/parent-notifier/internal/platform"
)

func newCenter(t *testing.T) *localnotify.Center {
	t.Helper()
	c := localnotify.New(localnotify.Options{})
	_, err := c.RequestPermission(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.ConfigureChannel(context.Background(), platform.DefaultChannels[0]))
	return c
}

func TestRoute(t *testing.T) {
	tests := []struct {
		data   map[string]string
		route  string
		params map[string]string
	}{
		{map[string]string{"type": "attendance"}, RouteAttendance, nil},
		{map[string]string{"type": "pickup"}, RouteAttendance, nil},
		{map[string]string{"type": "event", "event_id": "9"}, RouteEvent, map[string]string{"id": "9"}},
		{map[string]string{"type": "event"}, RouteEvent, nil},
		{map[string]string{"type": "guardian"}, RouteUnregistered, nil},
		{map[string]string{"type": "unregistered"}, RouteUnregistered, nil},
		{map[string]string{"type": "homework"}, RouteNotifications, nil},
		{nil, RouteNotifications, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.data), func(t *testing.T) {
			route, params := Route(tt.data)
			assert.Equal(t, tt.route, route)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestTapNavigates(t *testing.T) {
	ctx := context.Background()
	c := newCenter(t)
	rec := NewRouteRecorder(0)
	m := NewManager(c, nil)
	m.Setup(rec)

	id, err := c.ScheduleImmediate(ctx, platform.Message{Title: "New Event", Data: map[string]string{"type": "event", "event_id": "4"}})
	require.NoError(t, err)
	_, err = c.Tap(id)
	require.NoError(t, err)

	cur, ok := rec.Current()
	require.True(t, ok)
	assert.Equal(t, RouteEvent, cur.Route)
	assert.Equal(t, "4", cur.Params["id"])
}

func TestReceivedSetsBadge(t *testing.T) {
	ctx := context.Background()
	c := newCenter(t)
	m := NewManager(c, nil)
	m.Setup(nil)

	_, err := c.ScheduleImmediate(ctx, platform.Message{Title: "x", Data: map[string]string{"badge": "3"}})
	require.NoError(t, err)
	n, _ := c.BadgeCount(ctx)
	assert.Equal(t, 3, n)

	_, err = c.ScheduleImmediate(ctx, platform.Message{Title: "y", Data: map[string]string{"badge": "lots"}})
	require.NoError(t, err)
	n, _ = c.BadgeCount(ctx)
	assert.Equal(t, 3, n)
}

func TestRemoveUnsubscribes(t *testing.T) {
	ctx := context.Background()
	c := newCenter(t)
	rec := NewRouteRecorder(0)
	m := NewManager(c, nil)

	m.Setup(rec)
	assert.True(t, m.Active())
	m.Remove()
	m.Remove()
	assert.False(t, m.Active())

	id, err := c.ScheduleImmediate(ctx, platform.Message{Title: "x", Data: map[string]string{"type": "attendance", "badge": "7"}})
	require.NoError(t, err)
	_, err = c.Tap(id)
	require.NoError(t, err)

	assert.Empty(t, rec.History())
	n, _ := c.BadgeCount(ctx)
	assert.Equal(t, 0, n)
}

func TestSetupTwiceKeepsOneSubscription(t *testing.T) {
	ctx := context.Background()
	c := newCenter(t)
	rec := NewRouteRecorder(0)
	m := NewManager(c, nil)
	m.Setup(rec)
	m.Setup(rec)

	id, _ := c.ScheduleImmediate(ctx, platform.Message{Title: "x", Data: map[string]string{"type": "guardian"}})
	_, err := c.Tap(id)
	require.NoError(t, err)
	assert.Len(t, rec.History(), 1)
}

func TestRecorderHistoryBounded(t *testing.T) {
	rec := NewRouteRecorder(2)
	rec.Navigate("a", nil)
	rec.Navigate("b", nil)
	rec.Navigate("c", map[string]string{"id": "1"})

	h := rec.History()
	require.Len(t, h, 2)
	assert.Equal(t, "b", h[0].Route)
	assert.Equal(t, "c", h[1].Route)
}
