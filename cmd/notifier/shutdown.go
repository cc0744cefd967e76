package main

import (
	"context"
	"io"
	"log/slog"
)

// closeWhenIdle waits for in-flight poll cycles and then closes the store.
// If ctx expires first the store is left open, since a cycle may still be
// writing to it; process exit releases it. It reports whether the store was
// closed.
func closeWhenIdle(ctx context.Context, wait func(), store io.Closer, logger *slog.Logger) bool {
	idle := make(chan struct{})
	go func() {
		wait()
		close(idle)
	}()

	select {
	case <-idle:
	case <-ctx.Done():
		logger.Warn("Poll cycle still running at shutdown, leaving store open")
		return false
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close store", "error", err)
	}
	return true
}
