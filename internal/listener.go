package internal

const (
	opCall          = "call"
	opFinalizeClose = "finalizeClose"
)

// Listener receives the events of a node. The set of implementations is
// closed: *Callback, *Binding and *Node (which covers Properties).
type Listener interface {
	Receiver

	// queue is the phase the listener prefers, "" for no preference.
	queue() string

	// done reports whether the listener is gone and should be dropped.
	done() bool

	// owner is the property the listener recomputes, if any.
	owner() *Property
}

// Callback is a plain function listener.
type Callback struct {
	fn        func(*Event)
	queueName string

	once     bool
	disposed bool
}

func NewCallback(fn func(*Event)) *Callback {
	return &Callback{fn: fn}
}

// In makes the callback run in the given phase.
func (c *Callback) In(queue string) *Callback {
	c.queueName = queue
	return c
}

// Dispose drops the callback from every node it listens to.
func (c *Callback) Dispose() { c.disposed = true }

func (c *Callback) Invoke(op string, args []any) {
	if op != opCall {
		panic(fatal(CodeAbstract, "", "callback has no operation %q", op))
	}

	if c.once {
		c.disposed = true
	}

	c.fn(args[0].(*Event))
}

func (c *Callback) queue() string    { return c.queueName }
func (c *Callback) done() bool       { return c.disposed }
func (c *Callback) owner() *Property { return nil }

// Binding is a listener bound to the property it recomputes. Nodes
// dispatching to a binding also dispatch the property's own listeners in the
// same pass, so dependents are queued before the recompute runs.
type Binding struct {
	prop *Property
	fn   func(*Event)
}

func (b *Binding) Invoke(op string, args []any) {
	if op != opCall {
		panic(fatal(CodeAbstract, b.prop.name, "binding has no operation %q", op))
	}

	b.fn(args[0].(*Event))
}

func (b *Binding) queue() string    { return b.prop.queueName }
func (b *Binding) done() bool       { return b.prop.state >= StateClosed }
func (b *Binding) owner() *Property { return b.prop }
