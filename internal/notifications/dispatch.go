package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/platform"
)

// Dispatcher presents candidates at most once per category and item ID.
type Dispatcher struct {
	presenter platform.Presenter
	state     *checkstate.Store
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil presenter makes Dispatch a no-op,
// which lets a poll run without anything to show notifications on.
func NewDispatcher(presenter platform.Presenter, state *checkstate.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{presenter: presenter, state: state, logger: logger}
}

// Dispatch presents c unless its item was already notified. The item is
// recorded only after the presenter accepted it. sent reports whether a
// notification was shown.
func (d *Dispatcher) Dispatch(ctx context.Context, c Candidate) (sent bool, err error) {
	if d == nil || d.presenter == nil {
		return false, nil
	}

	if c.ItemID != "" {
		seen, err := d.state.IsNotified(ctx, c.Category, c.ItemID)
		if err != nil {
			d.logger.Warn("Notified-set read failed, treating as new",
				"category", c.Category, "id", c.ItemID, "error", err)
		}
		if seen {
			d.logger.Debug("Already notified, skipping", "category", c.Category, "id", c.ItemID)
			return false, nil
		}
	}

	id, err := d.presenter.ScheduleImmediate(ctx, c.Message)
	if err != nil {
		return false, fmt.Errorf("present %s %s: %w", c.Category, c.ItemID, err)
	}
	d.logger.Info("Notification sent",
		"category", c.Category, "item", c.ItemID, "notification", id, "title", c.Message.Title)

	if c.ItemID == "" {
		return true, nil
	}
	if err := d.state.MarkNotified(ctx, c.Category, c.ItemID); err != nil {
		return true, fmt.Errorf("record notified %s %s: %w", c.Category, c.ItemID, err)
	}
	return true, nil
}
