package internal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler is a minimal slog.Handler that keeps every record.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler       { return h }

func (h *recordingHandler) messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var msgs []string
	for _, r := range h.records {
		if r.Level == level {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

func TestFlow(t *testing.T) {
	t.Run("run opens and drains a transaction", func(t *testing.T) {
		log := []string{}
		f := NewFlow(nil, FlowOptions{})

		assert.False(t, f.IsRunning())

		f.Run(func() {
			assert.True(t, f.IsRunning())
			f.Push("", &probe{name: "a", log: &log}, "x")
			log = append(log, "queued")
		})

		assert.False(t, f.IsRunning())
		assert.Equal(t, []string{"queued", "a.x"}, log)
	})

	t.Run("uses the default phases", func(t *testing.T) {
		f := NewFlow(nil, FlowOptions{})
		assert.Equal(t, DefaultPhases, f.Phases())
	})

	t.Run("push outside a transaction is fatal", func(t *testing.T) {
		log := []string{}
		f := NewFlow(nil, FlowOptions{})

		defer func() {
			err, ok := recover().(error)
			require.True(t, ok)
			assert.True(t, IsNoTransaction(err))
		}()

		f.PushOnce("", &probe{name: "a", log: &log}, "x")
	})

	t.Run("stop without a transaction does nothing", func(t *testing.T) {
		f := NewFlow(nil, FlowOptions{})
		assert.NotPanics(t, f.Stop)
	})

	t.Run("nested runs suspend and restore the outer transaction", func(t *testing.T) {
		log := []string{}
		f := NewFlow(nil, FlowOptions{})

		f.Run(func() {
			outer := f.Active()
			f.Push("", &probe{name: "outer", log: &log}, "x")

			f.Run(func() {
				assert.NotSame(t, outer, f.Active())
				assert.Equal(t, 2, f.Depth())
				f.Push("", &probe{name: "inner", log: &log}, "x")
			})

			assert.Same(t, outer, f.Active())
			log = append(log, "inner done")
		})

		assert.Equal(t, []string{"inner.x", "inner done", "outer.x"}, log)
		assert.Equal(t, 0, f.Depth())
	})

	t.Run("start and stop hooks", func(t *testing.T) {
		log := []string{}
		f := NewFlow([]string{"model", "view"}, FlowOptions{
			Start: func(qs *QueueSet) { log = append(log, "start") },
			Stop:  func(qs *QueueSet) { log = append(log, "stop") },
		})

		f.Run(func() {
			f.Push("view", &probe{name: "a", log: &log}, "x")
		})

		assert.Equal(t, []string{"start", "a.x", "stop"}, log)
	})

	t.Run("pushes are dropped while paused", func(t *testing.T) {
		log := []string{}
		f := NewFlow(nil, FlowOptions{})
		a := &probe{name: "a", log: &log}

		f.Run(func() {
			f.Pause()
			assert.True(t, f.IsPaused())
			f.Push("", a, "dropped")

			f.Pause()
			f.Resume()
			f.PushOnce("", a, "dropped")

			f.Resume()
			assert.False(t, f.IsPaused())
			f.Push("", a, "kept")
		})

		assert.Equal(t, []string{"a.kept"}, log)
	})

	t.Run("push outside a transaction is fatal while paused", func(t *testing.T) {
		log := []string{}
		f := NewFlow(nil, FlowOptions{})
		f.Pause()

		defer func() {
			err, ok := recover().(error)
			require.True(t, ok)
			assert.True(t, IsNoTransaction(err))
		}()

		f.Push("", &probe{name: "a", log: &log}, "x")
	})

	t.Run("a panic while paused restores the pause depth", func(t *testing.T) {
		log := []string{}
		var errs []error
		f := NewFlow(nil, FlowOptions{Err: func(err error) { errs = append(errs, err) }})

		f.Run(func() {
			f.Pause()
			panic("boom")
		})

		assert.False(t, f.IsPaused())
		require.Len(t, errs, 1)
		assert.EqualError(t, errs[0], "boom")

		f.Run(func() { f.Push("", &probe{name: "a", log: &log}, "x") })
		assert.Equal(t, []string{"a.x"}, log)
	})

	t.Run("errors raised while paused are logged", func(t *testing.T) {
		h := &recordingHandler{}
		f := NewFlow(nil, FlowOptions{Logger: slog.New(h)})

		delivered := 0
		f.Errors().OnFunc(func(*Event) { delivered++ })

		f.Pause()
		f.Run(func() { panic("boom") })
		f.Resume()

		assert.Equal(t, 0, delivered)
		assert.Equal(t, []string{"unhandled error"}, h.messages(slog.LevelError))
	})

	t.Run("errors go to the error hook", func(t *testing.T) {
		log := []string{}
		var errs []error

		f := NewFlow(nil, FlowOptions{
			Err: func(err error) { errs = append(errs, err) },
		})

		f.Run(func() {
			f.Push("", &probe{name: "a", log: &log, fn: func(string, []any) { panic("listener") }}, "x")
			f.Push("", &probe{name: "b", log: &log}, "x")
			panic(errors.New("body"))
		})

		assert.Equal(t, []string{"a.x", "b.x"}, log)
		require.Len(t, errs, 2)
		assert.EqualError(t, errs[0], "body")

		var ae *QueueError
		require.True(t, errors.As(errs[1], &ae))
		assert.EqualError(t, ae.Cause, "listener")
	})

	t.Run("queue error hook takes precedence", func(t *testing.T) {
		log := []string{}
		var queues []string

		f := NewFlow(nil, FlowOptions{
			Err: func(err error) { t.Fatalf("unexpected flow error: %v", err) },
			Queue: QueueOptions{
				Err: func(q *ActionQueue, err error) { queues = append(queues, q.Name()) },
			},
		})

		f.Run(func() {
			f.Push("view", &probe{name: "a", log: &log, fn: func(string, []any) { panic("boom") }}, "x")
		})

		assert.Equal(t, []string{"view"}, queues)
	})

	t.Run("errors go to the error stream", func(t *testing.T) {
		log := []string{}
		f := NewFlow(nil, FlowOptions{})

		f.Errors().OnFunc(func(ev *Event) {
			log = append(log, ev.Action+": "+ev.Err().Error())
		})

		f.Run(func() {
			f.Push("", &probe{name: "a", log: &log, fn: func(string, []any) { panic("boom") }}, "x")
		})

		assert.Equal(t, []string{"a.x", "error: reflow: model.x: boom"}, log)
	})

	t.Run("unhandled errors are logged and swallowed", func(t *testing.T) {
		log := []string{}
		h := &recordingHandler{}
		f := NewFlow(nil, FlowOptions{Logger: slog.New(h)})

		assert.NotPanics(t, func() {
			f.Run(func() {
				f.Push("", &probe{name: "a", log: &log, fn: func(string, []any) { panic("boom") }}, "x")
				f.Push("", &probe{name: "b", log: &log}, "x")
			})
		})

		assert.Equal(t, []string{"a.x", "b.x"}, log)
		assert.Equal(t, []string{"unhandled error"}, h.messages(slog.LevelError))
		assert.Equal(t, []string{"transaction start", "transaction stop"}, h.messages(slog.LevelDebug))
	})

	t.Run("a failing error listener does not loop", func(t *testing.T) {
		h := &recordingHandler{}
		f := NewFlow(nil, FlowOptions{Logger: slog.New(h)})

		calls := 0
		f.Errors().OnFunc(func(ev *Event) {
			calls++
			panic("again")
		})

		log := []string{}
		f.Run(func() {
			f.Push("", &probe{name: "a", log: &log, fn: func(string, []any) { panic("boom") }}, "x")
		})

		assert.Equal(t, 1, calls)
		assert.Equal(t, []string{"unhandled error"}, h.messages(slog.LevelError))
	})

	t.Run("fatal errors propagate out of run", func(t *testing.T) {
		f := NewFlow(nil, FlowOptions{
			Err: func(err error) { t.Fatalf("unexpected flow error: %v", err) },
		})

		assert.Panics(t, func() {
			f.Run(func() {
				panic(fatal(CodeDestroyed, "n", "gone"))
			})
		})
		assert.False(t, f.IsRunning())
	})
}
