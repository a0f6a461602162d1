package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
)

func TestWatchLoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join("scenarios", "cart.yaml")

	t.Run("reruns on write and create of the file", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		events := make(chan fsnotify.Event)
		errs := make(chan error)

		runs := 0
		done := make(chan error)
		go func() {
			done <- watchLoop(ctx, events, errs, path, func() { runs++ }, logger)
		}()

		events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
		events <- fsnotify.Event{Name: filepath.Join("scenarios", "other.yaml"), Op: fsnotify.Write}
		events <- fsnotify.Event{Name: path, Op: fsnotify.Chmod}
		errs <- errors.New("overflow")
		events <- fsnotify.Event{Name: "./" + path, Op: fsnotify.Create}

		cancel()
		assert.NoError(t, <-done)
		assert.Equal(t, 2, runs)
	})

	t.Run("stops when the events close", func(t *testing.T) {
		events := make(chan fsnotify.Event)
		close(events)

		err := watchLoop(context.Background(), events, nil, path, func() { t.Fatal("unexpected run") }, logger)
		assert.NoError(t, err)
	})
}
