// Package platform defines the local-notification presentation capability the
// notifier drives: permission, channels, immediate delivery, badge count, and
// the received/tapped event streams.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied is returned when notifications may not be shown.
var ErrPermissionDenied = errors.New("platform: notification permission denied")

// Permission is the outcome of a permission request.
type Permission string

const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// Importance of a channel, highest first.
type Importance int

const (
	ImportanceMax Importance = iota
	ImportanceHigh
	ImportanceDefault
)

// Channel groups notifications for presentation settings.
type Channel struct {
	ID         string
	Name       string
	Importance Importance
	Color      string
}

// Channel identifiers.
const (
	ChannelDefault    = "default"
	ChannelAttendance = "attendance"
	ChannelEvents     = "events"
	ChannelGuardians  = "guardians"
)

// DefaultChannels are configured at initialization.
var DefaultChannels = []Channel{
	{ID: ChannelDefault, Name: "Default", Importance: ImportanceMax, Color: "#3498db"},
	{ID: ChannelAttendance, Name: "Attendance Notifications", Importance: ImportanceHigh, Color: "#27ae60"},
	{ID: ChannelEvents, Name: "Event Notifications", Importance: ImportanceHigh, Color: "#3498db"},
	{ID: ChannelGuardians, Name: "Guardian Notifications", Importance: ImportanceHigh, Color: "#e74c3c"},
}

// Message is what gets shown. Data is the structured payload used for tap
// routing.
type Message struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
	Channel string            `json:"channel"`
}

// Notification is a delivered message.
type Notification struct {
	ID          string    `json:"id"`
	Message     Message   `json:"message"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Handler receives notification events.
type Handler func(Notification)

// Subscription is the handle returned by a listener registration; it is
// released through RemoveSubscription.
type Subscription interface {
	ID() string
}

// Presenter is the platform's local-notification mechanism.
type Presenter interface {
	RequestPermission(ctx context.Context) (Permission, error)
	ConfigureChannel(ctx context.Context, ch Channel) error
	ScheduleImmediate(ctx context.Context, msg Message) (string, error)

	AddReceivedListener(h Handler) Subscription
	AddTappedListener(h Handler) Subscription
	RemoveSubscription(sub Subscription)

	BadgeCount(ctx context.Context) (int, error)
	SetBadgeCount(ctx context.Context, n int) error
	DismissAll(ctx context.Context) error
}
