package internal

// Receiver is anything an ActionQueue can invoke by operation name.
// Receivers are compared with ==, so implementations must be pointers.
type Receiver interface {
	Invoke(op string, args []any)
}

// Action is one pending (receiver, operation, arguments) invocation.
type Action struct {
	Receiver Receiver
	Op       string
	Args     []any

	// Priority is the tier the action runs in. It starts at 1 and is only
	// ever raised by PushOnce.
	Priority int

	done bool
}

// QueueOptions are the hooks bracketing a queue run.
type QueueOptions struct {
	// Before and After bracket every non-empty run.
	Before func(q *ActionQueue)
	After  func(q *ActionQueue)

	// Err receives panics raised by an action. Without it a panic aborts the run.
	Err func(q *ActionQueue, err error)
}

// ActionQueue is the ordered, priority-tiered store of one phase.
type ActionQueue struct {
	name    string
	opts    QueueOptions
	actions []*Action

	running bool
}

func NewActionQueue(name string, opts QueueOptions) *ActionQueue {
	return &ActionQueue{
		name:    name,
		opts:    opts,
		actions: make([]*Action, 0, 16),
	}
}

func (q *ActionQueue) Name() string { return q.name }

// Len returns the number of actions that have not run yet.
func (q *ActionQueue) Len() int {
	n := 0
	for _, a := range q.actions {
		if !a.done {
			n++
		}
	}
	return n
}

func (q *ActionQueue) Empty() bool { return q.Len() == 0 }

// Pending returns a snapshot of the actions that have not run yet, in order.
func (q *ActionQueue) Pending() []Action {
	pending := make([]Action, 0, len(q.actions))
	for _, a := range q.actions {
		if !a.done {
			pending = append(pending, *a)
		}
	}
	return pending
}

// Push appends an action at priority 1.
func (q *ActionQueue) Push(recv Receiver, op string, args ...any) {
	q.actions = append(q.actions, &Action{
		Receiver: recv,
		Op:       op,
		Args:     args,
		Priority: 1,
	})
}

// PushOnce inserts or promotes. A pending action with the same receiver and
// operation gets the new args and moves up one tier, otherwise it's a Push.
func (q *ActionQueue) PushOnce(recv Receiver, op string, args ...any) {
	for _, a := range q.actions {
		if a.done || a.Receiver != recv || a.Op != op {
			continue
		}

		a.Args = args
		a.Priority++
		return
	}

	q.Push(recv, op, args...)
}

// Go runs the queue in ascending priority tiers and returns how many actions ran.
// Actions pushed while running are left for the next pass; with once set only
// a single pass is made, otherwise passes repeat until the queue is empty.
func (q *ActionQueue) Go(once bool) int {
	if q.running || q.Empty() {
		return 0
	}

	q.running = true
	defer func() {
		q.compact()
		q.running = false
	}()

	if q.opts.Before != nil {
		q.opts.Before(q)
	}

	ran := 0
	for {
		ran += q.pass()
		if once || q.Empty() {
			break
		}
	}

	if q.opts.After != nil {
		q.opts.After(q)
	}

	return ran
}

// pass runs the actions present when it starts, tier by tier.
func (q *ActionQueue) pass() int {
	bound := len(q.actions)
	ran := 0

	for tier := 1; ; tier++ {
		higher := false

		// q.actions may grow while iterating, only the first bound entries belong to this pass
		for i := 0; i < bound; i++ {
			a := q.actions[i]

			switch {
			case a.done:
			case a.Priority == tier:
				a.done = true
				q.invoke(a)
				ran++
			case a.Priority > tier:
				higher = true
			}
		}

		if !higher {
			break
		}
	}

	q.compact()
	return ran
}

func (q *ActionQueue) invoke(a *Action) {
	if q.opts.Err == nil {
		a.Receiver.Invoke(a.Op, a.Args)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			err := asError(r)
			if IsFatal(err) {
				panic(r)
			}

			q.opts.Err(q, &QueueError{Queue: q.name, Op: a.Op, Cause: err, receiver: a.Receiver})
		}
	}()

	a.Receiver.Invoke(a.Op, a.Args)
}

// compact drops actions that already ran.
func (q *ActionQueue) compact() {
	kept := q.actions[:0]
	for _, a := range q.actions {
		if !a.done {
			kept = append(kept, a)
		}
	}

	for i := len(kept); i < len(q.actions); i++ {
		q.actions[i] = nil
	}

	q.actions = kept
}
