// Package localnotify is an in-process notification center implementing
// platform.Presenter. Delivered notifications land in a bounded inbox that the
// local API serves; a tap on an inbox entry is routed to tapped listeners.
package localnotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/childtrack/parent-notifier/internal/platform"
)

// ErrNotFound is returned by Tap for an unknown notification ID.
var ErrNotFound = errors.New("localnotify: notification not found")

const defaultInboxSize = 500

type subscription struct {
	id string
}

func (s subscription) ID() string { return s.id }

// Options configures a Center.
type Options struct {
	// Permission is what RequestPermission answers; denied disables delivery.
	Permission platform.Permission
	InboxSize  int
	Now        func() time.Time
	Logger     *slog.Logger
}

// Center holds delivered notifications, channels, badge and listeners.
type Center struct {
	mu         sync.RWMutex
	answer     platform.Permission
	permission platform.Permission
	channels   map[string]platform.Channel
	inbox      []platform.Notification
	inboxSize  int
	badge      int
	revision   uint64
	received   map[string]platform.Handler
	tapped     map[string]platform.Handler
	now        func() time.Time
	logger     *slog.Logger
}

var _ platform.Presenter = (*Center)(nil)

// New creates a Center.
func New(opts Options) *Center {
	if opts.Permission == "" {
		opts.Permission = platform.PermissionGranted
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = defaultInboxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Center{
		answer:     opts.Permission,
		permission: platform.PermissionUndetermined,
		channels:   make(map[string]platform.Channel),
		inboxSize:  opts.InboxSize,
		received:   make(map[string]platform.Handler),
		tapped:     make(map[string]platform.Handler),
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

func (c *Center) RequestPermission(context.Context) (platform.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permission = c.answer
	return c.permission, nil
}

func (c *Center) ConfigureChannel(_ context.Context, ch platform.Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("channel id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[ch.ID] = ch
	return nil
}

// ScheduleImmediate delivers msg now and notifies received listeners.
func (c *Center) ScheduleImmediate(_ context.Context, msg platform.Message) (string, error) {
	c.mu.Lock()
	if c.permission != platform.PermissionGranted {
		c.mu.Unlock()
		return "", platform.ErrPermissionDenied
	}
	if _, ok := c.channels[msg.Channel]; !ok {
		c.logger.Warn("unknown channel, using default", "channel", msg.Channel)
		msg.Channel = platform.ChannelDefault
	}
	n := platform.Notification{
		ID:          uuid.NewString(),
		Message:     msg,
		DeliveredAt: c.now(),
	}
	c.inbox = append(c.inbox, n)
	if over := len(c.inbox) - c.inboxSize; over > 0 {
		c.inbox = append([]platform.Notification(nil), c.inbox[over:]...)
	}
	c.revision++
	handlers := snapshot(c.received)
	c.mu.Unlock()

	c.logger.Info("Notification delivered", "id", n.ID, "title", msg.Title, "channel", msg.Channel)
	for _, h := range handlers {
		h(n)
	}
	return n.ID, nil
}

func (c *Center) AddReceivedListener(h platform.Handler) platform.Subscription {
	return c.add(c.received, h)
}

func (c *Center) AddTappedListener(h platform.Handler) platform.Subscription {
	return c.add(c.tapped, h)
}

func (c *Center) add(m map[string]platform.Handler, h platform.Handler) platform.Subscription {
	sub := subscription{id: uuid.NewString()}
	c.mu.Lock()
	m[sub.id] = h
	c.mu.Unlock()
	return sub
}

func (c *Center) RemoveSubscription(sub platform.Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.received, sub.ID())
	delete(c.tapped, sub.ID())
}

func (c *Center) BadgeCount(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.badge, nil
}

func (c *Center) SetBadgeCount(_ context.Context, n int) error {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.badge != n {
		c.badge = n
		c.revision++
	}
	return nil
}

func (c *Center) DismissAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = nil
	c.revision++
	return nil
}

// --------------------------------------------------------------------------
// Inbox
// --------------------------------------------------------------------------

// Tap simulates the user tapping a delivered notification.
func (c *Center) Tap(id string) (platform.Notification, error) {
	c.mu.RLock()
	var (
		n     platform.Notification
		found bool
	)
	for _, v := range c.inbox {
		if v.ID == id {
			n, found = v, true
			break
		}
	}
	handlers := snapshot(c.tapped)
	c.mu.RUnlock()

	if !found {
		return platform.Notification{}, ErrNotFound
	}
	for _, h := range handlers {
		h(n)
	}
	return n, nil
}

// List returns delivered notifications, newest first.
func (c *Center) List() []platform.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]platform.Notification, len(c.inbox))
	for i, n := range c.inbox {
		out[len(c.inbox)-1-i] = n
	}
	return out
}

// Revision changes whenever the inbox or badge changes.
func (c *Center) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Permission returns the last permission answer.
func (c *Center) Permission() platform.Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.permission
}

// Prune drops notifications delivered more than olderThan ago.
func (c *Center) Prune(olderThan time.Duration) int {
	cutoff := c.now().Add(-olderThan)
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.inbox[:0]
	for _, n := range c.inbox {
		if n.DeliveredAt.After(cutoff) {
			kept = append(kept, n)
		}
	}
	removed := len(c.inbox) - len(kept)
	c.inbox = kept
	if removed > 0 {
		c.revision++
	}
	return removed
}

// snapshot copies handlers so they run without the lock held.
func snapshot(m map[string]platform.Handler) []platform.Handler {
	out := make([]platform.Handler, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	return out
}
