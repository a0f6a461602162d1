package reflow

import "github.com/AnatoleLucet/reflow/internal"

type (
	Runtime        = internal.Runtime
	RuntimeOptions = internal.RuntimeOptions
	Flow           = internal.Flow
	FlowOptions    = internal.FlowOptions
	QueueSet       = internal.QueueSet
	ActionQueue    = internal.ActionQueue
	QueueOptions   = internal.QueueOptions
	Action         = internal.Action
	Receiver       = internal.Receiver

	Node      = internal.Node
	Event     = internal.Event
	Listener  = internal.Listener
	Callback  = internal.Callback
	Transform = internal.Transform
	State     = internal.State

	Object      = internal.Object
	Property    = internal.Property
	ComputeFunc = internal.ComputeFunc
	Kind        = internal.Kind

	RuntimeError = internal.RuntimeError
	QueueError   = internal.QueueError
	ErrorCode    = internal.ErrorCode
)

const (
	ChangeAction = internal.ActionChange
	ErrorAction  = internal.ActionError
	CloseAction  = internal.ActionClose

	StateInit      = internal.StateInit
	StateReady     = internal.StateReady
	StateClosed    = internal.StateClosed
	StateDestroyed = internal.StateDestroyed

	KindNil      = internal.KindNil
	KindSimple   = internal.KindSimple
	KindComputed = internal.KindComputed
	KindObject   = internal.KindObject
	KindArray    = internal.KindArray
)

var (
	// BadValue returned by a transform drops the update.
	BadValue = internal.BadValue

	// CloseSignal returned by a transform closes the node.
	CloseSignal = internal.CloseSignal
)

// Version of the module, checked against the requires field of scenario files.
const Version = "0.1.0"

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// NewRuntime creates a runtime with its own flow and evaluation context.
func NewRuntime(opts RuntimeOptions) *Runtime {
	return internal.NewRuntime(opts)
}

// Default returns the runtime of the calling goroutine.
func Default() *Runtime {
	return internal.GetRuntime()
}

// SetDefault replaces the runtime of the calling goroutine.
func SetDefault(r *Runtime) {
	internal.SetRuntime(r)
}

// NewFlow creates a standalone transaction manager over the given phases.
func NewFlow(phases []string, opts FlowOptions) *Flow {
	return internal.NewFlow(phases, opts)
}

// NewNode creates a ready node on the default runtime.
func NewNode(name string) *Node {
	return internal.GetRuntime().NewNode(name)
}

// NewObject creates a reactive record on the default runtime.
// Function values (func(*Object) any) become computed slots.
func NewObject(fields map[string]any) *Object {
	return internal.GetRuntime().NewObject(fields)
}

func NewCallback(fn func(*Event)) *Callback {
	return internal.NewCallback(fn)
}

// Run executes fn in a single transaction: updates are queued and settled once fn returns.
func Run(fn func()) {
	internal.GetRuntime().Run(fn)
}

// Pause drops every push until the matching Resume.
func Pause() { internal.GetRuntime().Flow().Pause() }

func Resume() { internal.GetRuntime().Flow().Resume() }

// Errors returns the error stream of the default runtime.
func Errors() *Node {
	return internal.GetRuntime().Flow().Errors()
}

// Untrack runs the given function without tracking any reactive dependencies.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untrack(func() { result = fn() })
	return result
}

func IsFatal(err error) bool         { return internal.IsFatal(err) }
func IsDestroyed(err error) bool     { return internal.IsDestroyed(err) }
func IsNoTransaction(err error) bool { return internal.IsNoTransaction(err) }
func IsAbstract(err error) bool      { return internal.IsAbstract(err) }

const slot = "value"

type Value[T any] struct {
	obj *internal.Object
}

// NewValue creates your tipical read/write value.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		internal.GetRuntime().NewObject(map[string]any{slot: initial}),
	}
}

// Read the current value, tracking the dependency if within a computed evaluation.
func (v *Value[T]) Read() T {
	return as[T](v.obj.Get(slot))
}

// Write a new value, notifying any dependents.
func (v *Value[T]) Write(x T) {
	v.obj.Set(slot, x)
}

// Property returns the property currently backing the value.
func (v *Value[T]) Property() *Property {
	return v.obj.Prop(slot)
}

// On calls fn with each new value.
func (v *Value[T]) On(fn func(T)) *Callback {
	return v.Property().OnFunc(func(ev *Event) {
		fn(as[T](ev.Value))
	})
}

type Computed[T any] struct {
	obj *internal.Object
}

// NewComputed creates a value derived from other values. It is evaluated on first read.
func NewComputed[T any](compute func() T) *Computed[T] {
	return &Computed[T]{
		internal.GetRuntime().NewObject(map[string]any{
			slot: internal.ComputeFunc(func(*internal.Object) any { return compute() }),
		}),
	}
}

// Read the current value, tracking the dependency if within a computed evaluation.
func (c *Computed[T]) Read() T {
	return as[T](c.obj.Get(slot))
}

func (c *Computed[T]) Property() *Property {
	return c.obj.Prop(slot)
}

type Effect struct {
	obj *internal.Object
}

// NewEffect runs fn now, then again in the last phase whenever a value it read changes.
func NewEffect(fn func()) *Effect {
	r := internal.GetRuntime()
	phases := r.Flow().Phases()

	obj := r.NewObject(map[string]any{
		slot: internal.ComputeFunc(func(*internal.Object) any {
			fn()
			return nil
		}),
	})

	p := obj.Prop(slot)
	p.SetQueue(phases[len(phases)-1])
	r.Untrack(func() { p.Get() })

	return &Effect{obj}
}

// Dispose stops the effect.
func (e *Effect) Dispose() {
	e.obj.Destroy()
}
