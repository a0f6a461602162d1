package internal

import (
	"slices"
)

type State int

const (
	StateInit State = iota
	StateReady
	StateClosed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Node is the observable/observer unit: it keeps listeners per action and
// defers their invocation into the running transaction of its flow.
type Node struct {
	flow *Flow
	name string

	state        State
	initializing bool
	dispatching  bool

	listeners map[string][]Listener

	// actions used when none are given to On, Off and Update
	defaults []string

	transforms []Transform

	// receives every event the node emits
	parent Listener

	// phase the node receives in, and its listeners run in when they have no preference
	queueName string

	// overridden by properties and objects
	setup     func()
	makeEvent func(action string, source, data any) *Event
	receive   func(ev *Event)
	teardown  func()
}

func NewNode(flow *Flow, name string) *Node {
	n := newNode(flow, name)
	n.Init()
	return n
}

// newNode builds a node in the init state.
func newNode(flow *Flow, name string) *Node {
	n := &Node{
		flow:     flow,
		name:     name,
		state:    StateInit,
		defaults: []string{ActionChange},
		listeners: map[string][]Listener{
			ActionChange: nil,
			ActionError:  nil,
			ActionClose:  nil,
		},
	}
	n.makeEvent = n.defaultEvent
	n.receive = n.defaultReceive
	return n
}

func (n *Node) Name() string { return n.name }

func (n *Node) State() State { return n.state }

func (n *Node) Flow() *Flow { return n.flow }

// Init runs the node's setup and makes it ready. It does nothing unless the node is in init.
func (n *Node) Init() {
	if n.state != StateInit || n.initializing {
		return
	}

	n.initializing = true
	defer func() { n.initializing = false }()

	if n.setup != nil {
		n.setup()
	}

	if n.state == StateInit {
		n.state = StateReady
	}
}

// SetQueue sets the phase the node receives wired events in and its listeners run in by default.
func (n *Node) SetQueue(queue string) *Node {
	n.queueName = queue
	return n
}

func (n *Node) Queue() string { return n.queueName }

// SetParent makes p receive every event the node emits.
func (n *Node) SetParent(p Listener) *Node {
	n.parent = p
	return n
}

func (n *Node) Parent() Listener { return n.parent }

// On registers l for the given actions, the node's defaults if none.
func (n *Node) On(l Listener, actions ...string) Listener {
	if n.state == StateDestroyed {
		return l
	}

	for _, action := range n.actionsOrDefault(actions) {
		if !slices.Contains(n.listeners[action], l) {
			n.listeners[action] = append(n.listeners[action], l)
		}
	}
	return l
}

// OnFunc registers a callback and returns it, to be passed to Off later.
func (n *Node) OnFunc(fn func(*Event), actions ...string) *Callback {
	c := NewCallback(fn)
	n.On(c, actions...)
	return c
}

// Once registers a callback that is dropped after its first call.
func (n *Node) Once(fn func(*Event), actions ...string) *Callback {
	c := NewCallback(fn)
	c.once = true
	n.On(c, actions...)
	return c
}

// Off removes l from the given actions, the defaults if none.
// A nil listener removes every listener of those actions, and Off(nil) with
// no actions clears the whole registry.
func (n *Node) Off(l Listener, actions ...string) {
	if n.state == StateDestroyed {
		return
	}

	if l == nil && len(actions) == 0 {
		for action := range n.listeners {
			n.listeners[action] = nil
		}
		return
	}

	for _, action := range n.actionsOrDefault(actions) {
		if l == nil {
			n.listeners[action] = nil
			continue
		}

		n.listeners[action] = slices.DeleteFunc(n.listeners[action], func(x Listener) bool {
			return x == l
		})
	}
}

// Listeners returns the live listeners of an action.
func (n *Node) Listeners(action string) []Listener {
	live := make([]Listener, 0, len(n.listeners[action]))
	for _, l := range n.listeners[action] {
		if !l.done() {
			live = append(live, l)
		}
	}
	return live
}

func (n *Node) HasListeners(action string) bool {
	return len(n.Listeners(action)) > 0
}

func (n *Node) has(action string, l Listener) bool {
	return slices.Contains(n.listeners[action], l)
}

// Into subscribes the node to each source.
func (n *Node) Into(sources ...*Node) *Node {
	for _, src := range sources {
		src.On(n, ActionChange, ActionError)
	}
	return n
}

// Out subscribes dst to the node.
func (n *Node) Out(dst *Node) *Node {
	n.On(dst, ActionChange, ActionError)
	return n
}

// Update produces a change. It opens a transaction when none is running,
// panics on a destroyed node and does nothing on a closed one.
func (n *Node) Update(source, data any, actions ...string) {
	switch n.state {
	case StateDestroyed:
		panic(fatal(CodeDestroyed, n.name, "update of a destroyed node"))
	case StateClosed:
		return
	}

	if !n.flow.IsRunning() {
		n.flow.Run(func() { n.Update(source, data, actions...) })
		return
	}

	n.dispatch(source, data, n.actionsOrDefault(actions))
}

func (n *Node) dispatch(source, data any, actions []string) {
	listeners := n.resolve(actions)
	closing := slices.Contains(actions, ActionClose)

	if len(listeners) == 0 && n.parent == nil && !closing {
		return
	}

	n.dispatching = true
	defer func() { n.dispatching = false }()

	ev := n.makeEvent(actions[0], source, data)

	for _, l := range listeners {
		n.deferTo(ev, l)

		if p := l.owner(); p != nil && !p.dispatching && p.state < StateClosed {
			p.dispatch(source, nil, p.defaults)
		}
	}

	if n.parent != nil {
		n.deferTo(ev, n.parent)
	}

	if closing {
		n.flow.PushOnce(n.queueName, n, opFinalizeClose)
	}
}

// resolve returns the union of the listeners of actions, dropping dead ones.
func (n *Node) resolve(actions []string) []Listener {
	var resolved []Listener

	for _, action := range actions {
		registered := n.listeners[action]
		if len(registered) == 0 {
			continue
		}

		live := registered[:0]
		for _, l := range registered {
			if l.done() {
				continue
			}
			live = append(live, l)

			if !slices.Contains(resolved, l) {
				resolved = append(resolved, l)
			}
		}
		clear(registered[len(live):])
		n.listeners[action] = live
	}

	return resolved
}

// deferTo queues one invocation of l in the phase l prefers, else the
// node's phase, else the flow's first phase.
func (n *Node) deferTo(ev *Event, l Listener) {
	queue := l.queue()
	if queue == "" {
		queue = n.queueName
	}

	n.flow.PushOnce(queue, l, opCall, ev)
}

func (n *Node) Invoke(op string, args []any) {
	switch op {
	case opCall:
		ev := args[0].(*Event)

		// events bubbling up from a child are re-emitted as our own
		if ev.Target != nil && ev.Target != n && ev.Target.parent == Listener(n) {
			if ev.Action != ActionClose {
				n.Update(ev, nil)
			}
			return
		}

		n.receive(ev)
	case opFinalizeClose:
		n.finalizeClose()
	default:
		panic(fatal(CodeAbstract, n.name, "node has no operation %q", op))
	}
}

func (n *Node) defaultEvent(action string, source, data any) *Event {
	return &Event{Action: action, Source: source, Target: n, Value: data}
}

// defaultReceive feeds an upstream event through the pipeline.
func (n *Node) defaultReceive(ev *Event) {
	switch ev.Action {
	case ActionClose:
		return
	case ActionError:
		n.Update(ev.Source, ev.Value, ActionError)
		return
	}

	v := n.apply(ev.Value)
	switch v {
	case BadValue:
		return
	case CloseSignal:
		n.Close()
		return
	}

	n.Update(ev, v)
}

// Close dispatches the close action; listeners are removed once it has been delivered.
func (n *Node) Close() {
	if n.state >= StateClosed {
		return
	}

	if !n.flow.IsRunning() {
		n.flow.Run(n.Close)
		return
	}

	n.dispatch(n, nil, []string{ActionClose})
	n.state = StateClosed
}

func (n *Node) finalizeClose() {
	if n.state == StateDestroyed {
		return
	}

	for action := range n.listeners {
		n.listeners[action] = nil
	}
	n.parent = nil
}

// Destroy releases the node. Any later update panics.
func (n *Node) Destroy() {
	if n.state == StateDestroyed {
		return
	}
	n.state = StateDestroyed

	if n.teardown != nil {
		n.teardown()
	}

	n.listeners = nil
	n.parent = nil
	n.transforms = nil
}

func (n *Node) actionsOrDefault(actions []string) []string {
	if len(actions) == 0 {
		return n.defaults
	}
	return actions
}

func (n *Node) queue() string    { return n.queueName }
func (n *Node) done() bool       { return n.state >= StateClosed }
func (n *Node) owner() *Property { return nil }
