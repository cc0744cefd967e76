package main

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingCloser struct{ closed atomic.Int32 }

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestCloseWhenIdleClosesAfterCycles(t *testing.T) {
	store := &countingCloser{}
	var finished atomic.Bool
	wait := func() {
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.True(t, closeWhenIdle(ctx, wait, store, discard))
	assert.True(t, finished.Load())
	assert.Equal(t, int32(1), store.closed.Load())
}

func TestCloseWhenIdleLeavesStoreOpenOnTimeout(t *testing.T) {
	store := &countingCloser{}
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.False(t, closeWhenIdle(ctx, func() { <-release }, store, discard))
	assert.Equal(t, int32(0), store.closed.Load())
}
