// Package listener owns the platform notification subscriptions. Received
// notifications drive badge bookkeeping; tapped notifications are routed to
// an app screen through a Navigator.
package listener

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/childtrack/parent-notifier/internal/platform"
)

// Routes a tapped notification can lead to.
const (
	RouteAttendance    = "attendance"
	RouteEvent         = "event"
	RouteUnregistered  = "unregistered"
	RouteNotifications = "notification"
)

// Navigator moves the app to a screen.
type Navigator interface {
	Navigate(route string, params map[string]string)
}

// Manager holds the received and tapped subscriptions between Setup and
// Remove.
type Manager struct {
	presenter platform.Presenter
	logger    *slog.Logger

	mu       sync.Mutex
	received platform.Subscription
	tapped   platform.Subscription
}

// NewManager creates a Manager for presenter.
func NewManager(presenter platform.Presenter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{presenter: presenter, logger: logger}
}

// Setup subscribes to both streams. Calling it again replaces the previous
// subscriptions.
func (m *Manager) Setup(nav Navigator) {
	m.Remove()

	received := m.presenter.AddReceivedListener(m.onReceived)
	tapped := m.presenter.AddTappedListener(func(n platform.Notification) {
		m.onTapped(nav, n)
	})

	m.mu.Lock()
	m.received, m.tapped = received, tapped
	m.mu.Unlock()
	m.logger.Info("Notification listeners set up")
}

// Remove releases both subscriptions. Safe to call more than once.
func (m *Manager) Remove() {
	m.mu.Lock()
	received, tapped := m.received, m.tapped
	m.received, m.tapped = nil, nil
	m.mu.Unlock()

	if received == nil && tapped == nil {
		return
	}
	m.presenter.RemoveSubscription(received)
	m.presenter.RemoveSubscription(tapped)
	m.logger.Info("Notification listeners removed")
}

// Active reports whether listeners are currently subscribed.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received != nil
}

func (m *Manager) onReceived(n platform.Notification) {
	m.logger.Debug("Notification received", "id", n.ID, "title", n.Message.Title)

	raw, ok := n.Message.Data["badge"]
	if !ok {
		return
	}
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		m.logger.Warn("Ignoring invalid badge payload", "badge", raw)
		return
	}
	if err := m.presenter.SetBadgeCount(context.Background(), count); err != nil {
		m.logger.Warn("Failed to set badge count", "error", err)
	}
}

func (m *Manager) onTapped(nav Navigator, n platform.Notification) {
	route, params := Route(n.Message.Data)
	m.logger.Info("Notification tapped", "id", n.ID, "route", route)
	if nav != nil {
		nav.Navigate(route, params)
	}
}

// Route maps a notification payload to a screen and its parameters.
func Route(data map[string]string) (string, map[string]string) {
	switch strings.ToLower(data["type"]) {
	case "attendance", "pickup":
		return RouteAttendance, nil
	case "event":
		if id := data["event_id"]; id != "" {
			return RouteEvent, map[string]string{"id": id}
		}
		return RouteEvent, nil
	case "guardian", "unregistered":
		return RouteUnregistered, nil
	default:
		return RouteNotifications, nil
	}
}
