package internal

import (
	"log/slog"

	"github.com/google/uuid"
)

// DefaultPhases are used when a Flow is built without phase names.
var DefaultPhases = []string{"model", "view"}

type FlowOptions struct {
	// Start and Stop are called with the queue set of every transaction.
	// Stop runs after the queue set has been drained.
	Start func(qs *QueueSet)
	Stop  func(qs *QueueSet)

	// Err receives recoverable errors. Without it they go to the error stream.
	Err func(err error)

	// Queue hooks are installed on every queue. A nil Queue.Err forwards to Err.
	Queue QueueOptions

	Logger *slog.Logger
}

// Flow is the transaction manager: it owns the active queue set and the
// stack of queue sets suspended by nested transactions.
type Flow struct {
	phases []string
	opts   FlowOptions
	logger *slog.Logger

	active    *QueueSet
	suspended []*QueueSet
	txs       []string // transaction ids, innermost last

	// each Pause increases the depth by 1
	// while depth > 0, pushes are dropped
	paused int

	errs      *Node
	reporting bool
}

func NewFlow(phases []string, opts FlowOptions) *Flow {
	if len(phases) == 0 {
		phases = DefaultPhases
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		phases: append([]string(nil), phases...),
		opts:   opts,
		logger: logger,
	}
}

func (f *Flow) Phases() []string { return f.phases }

func (f *Flow) Logger() *slog.Logger { return f.logger }

func (f *Flow) IsRunning() bool { return f.active != nil }

func (f *Flow) IsPaused() bool { return f.paused > 0 }

// Depth returns the number of open transactions, nested ones included.
func (f *Flow) Depth() int {
	if f.active == nil {
		return 0
	}
	return len(f.suspended) + 1
}

// Active returns the queue set of the innermost transaction, or nil.
func (f *Flow) Active() *QueueSet { return f.active }

// Start opens a transaction, suspending the current one if any.
func (f *Flow) Start() {
	if f.active != nil {
		f.suspended = append(f.suspended, f.active)
	}

	f.active = NewQueueSet(f.phases, f.queueOptions())

	id := uuid.Must(uuid.NewV7()).String()
	f.txs = append(f.txs, id)

	f.logger.Debug("transaction start",
		slog.String("tx", id),
		slog.Int("depth", f.Depth()),
	)

	if f.opts.Start != nil {
		f.opts.Start(f.active)
	}
}

// Stop drains the active transaction and restores the suspended one.
// It does nothing when no transaction is open.
func (f *Flow) Stop() {
	qs := f.active
	if qs == nil {
		return
	}

	id := f.txs[len(f.txs)-1]
	defer func() {
		f.txs = f.txs[:len(f.txs)-1]

		if n := len(f.suspended); n > 0 {
			f.active = f.suspended[n-1]
			f.suspended[n-1] = nil
			f.suspended = f.suspended[:n-1]
		} else {
			f.active = nil
		}
	}()

	ran := qs.Go("")

	if f.opts.Stop != nil {
		f.opts.Stop(qs)
	}

	f.logger.Debug("transaction stop",
		slog.String("tx", id),
		slog.Int("depth", f.Depth()),
		slog.Int("actions", ran),
	)
}

// Run executes fn inside its own transaction. Panics raised by fn are routed
// to the error handler, except fatal ones which propagate.
func (f *Flow) Run(fn func()) {
	f.Start()
	defer f.Stop()

	f.call(fn)
}

// within runs fn in the current transaction, or in a new one if none is open.
func (f *Flow) within(fn func()) {
	if f.active == nil {
		f.Run(fn)
		return
	}
	fn()
}

func (f *Flow) call(fn func()) {
	paused := f.paused
	defer func() {
		if r := recover(); r != nil {
			// a panic between Pause and Resume must not leave the flow paused
			f.paused = paused

			err := asError(r)
			if IsFatal(err) {
				panic(r)
			}

			f.handleError(err)
		}
	}()

	fn()
}

func (f *Flow) Pause() { f.paused++ }

func (f *Flow) Resume() {
	if f.paused > 0 {
		f.paused--
	}
}

// Push appends an action to a phase of the active transaction.
func (f *Flow) Push(queue string, recv Receiver, op string, args ...any) {
	qs := f.mustBeRunning(op)
	if f.paused > 0 {
		return
	}
	qs.Push(queue, recv, op, args...)
}

// PushOnce inserts or promotes an action in a phase of the active transaction.
func (f *Flow) PushOnce(queue string, recv Receiver, op string, args ...any) {
	qs := f.mustBeRunning(op)
	if f.paused > 0 {
		return
	}
	qs.PushOnce(queue, recv, op, args...)
}

func (f *Flow) mustBeRunning(op string) *QueueSet {
	if f.active == nil {
		panic(fatal(CodeNoTransaction, "", "push of %q outside of a transaction", op))
	}
	return f.active
}

// Errors returns the error stream, creating it on first use.
func (f *Flow) Errors() *Node {
	if f.errs == nil {
		f.errs = NewNode(f, "errors")
		f.errs.defaults = []string{ActionError}
	}
	return f.errs
}

func (f *Flow) queueOptions() QueueOptions {
	opts := f.opts.Queue
	if opts.Err == nil {
		opts.Err = func(q *ActionQueue, err error) { f.handleError(err) }
	}
	return opts
}

func (f *Flow) handleError(err error) {
	if f.opts.Err != nil {
		f.opts.Err(err)
		return
	}

	f.report(err)
}

// report sends err to the error stream, or logs it when nobody listens.
func (f *Flow) report(err error) {
	// pushes are dropped while paused, the stream would never see it
	if f.reporting || f.paused > 0 || f.errs == nil || !f.errs.HasListeners(ActionError) || f.fromErrorStream(err) {
		f.logger.Error("unhandled error", slog.Any("error", err))
		return
	}

	f.reporting = true
	defer func() { f.reporting = false }()

	f.errs.Update(f, err, ActionError)
}

// fromErrorStream reports whether err was raised by a listener of the error stream itself.
func (f *Flow) fromErrorStream(err error) bool {
	ae, ok := err.(*QueueError)
	if !ok {
		return false
	}

	l, ok := ae.receiver.(Listener)
	return ok && f.errs.has(ActionError, l)
}
