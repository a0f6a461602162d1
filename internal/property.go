package internal

import (
	"reflect"
)

// Kind is the variant of a Property, derived from the shape of its value.
type Kind int

const (
	KindNil Kind = iota
	KindSimple
	KindComputed
	KindObject
	KindArray

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindSimple:
		return "simple"
	case KindComputed:
		return "computed"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// ComputeFunc derives a computed slot from the other slots of its object.
type ComputeFunc func(o *Object) any

// Property is a node mirroring one slot of an Object.
type Property struct {
	*Node

	obj  *Object
	slot string
	kind Kind

	value any
	prev  any

	// computed only
	fn      ComputeFunc
	binding *Binding

	// change event dispatched ahead of the recompute, patched once it ran
	pending *Event
}

func (p *Property) Object() *Object { return p.obj }

func (p *Property) Slot() string { return p.slot }

func (p *Property) Kind() Kind { return p.kind }

// Peek returns the current value without initializing or tracking.
func (p *Property) Peek() any { return p.value }

func (p *Property) Previous() any { return p.prev }

// Get initializes the property if needed, registers it as a dependency of
// the evaluation context and returns its value.
func (p *Property) Get() any {
	p.Init()
	p.obj.rt.tracker.Track(p)
	return p.value
}

// Set writes the slot. Equal values are ignored; a value of another shape
// re-types the slot.
func (p *Property) Set(v any) {
	switch p.state {
	case StateDestroyed:
		panic(fatal(CodeDestroyed, p.name, "write to a destroyed property"))
	case StateClosed:
		return
	}

	if p.kind == KindComputed {
		p.setComputed(v)
		return
	}

	if same(p.value, v) {
		return
	}

	next := p.apply(v)
	switch next {
	case BadValue:
		return
	case CloseSignal:
		p.Close()
		return
	}

	if kindOf(next) != p.kind {
		p.retype(next)
		return
	}

	p.prev = p.value
	p.store(next)
	p.Update(p, nil)
}

// Len returns the length of an array slot, 0 for other kinds.
func (p *Property) Len() int {
	if p.kind != KindArray {
		return 0
	}
	return reflect.ValueOf(p.Get()).Len()
}

// Index returns element i of an array slot.
func (p *Property) Index(i int) any {
	if p.kind != KindArray {
		return nil
	}
	return reflect.ValueOf(p.Get()).Index(i).Interface()
}

func (p *Property) store(v any) {
	if p.kind == KindObject {
		p.adopt(v)
		return
	}
	p.value = v
}

// adopt makes v the child object of the slot.
func (p *Property) adopt(v any) {
	if old, ok := p.value.(*Object); ok && old.node.parent == Listener(p.Node) {
		old.node.parent = nil
	}

	var child *Object
	switch v := v.(type) {
	case *Object:
		child = v
	case map[string]any:
		child = p.obj.rt.newObject(p.name, v)
	}

	child.node.SetParent(p.Node)
	p.value = child
}

func (p *Property) event(action string, source, data any) *Event {
	ev := &Event{Action: action, Source: source, Target: p.Node, Value: p.value, Old: p.prev}
	switch {
	case action == ActionError:
		ev.Value = data
	case action == ActionChange && p.kind == KindComputed:
		p.pending = ev
	}
	return ev
}

// receiveEvent makes a property usable as a downstream of Into.
func (p *Property) receiveEvent(ev *Event) {
	switch ev.Action {
	case ActionClose:
		return
	case ActionError:
		p.Update(ev.Source, ev.Value, ActionError)
		return
	}

	p.Set(ev.Value)
}

func (p *Property) release() {
	if child, ok := p.value.(*Object); ok && child.node.parent == Listener(p.Node) {
		child.node.parent = nil
	}
}

func kindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNil
	case ComputeFunc, func(*Object) any:
		return KindComputed
	case *Object, map[string]any:
		if o, ok := v.(*Object); ok && o == nil {
			return KindNil
		}
		return KindObject
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Chan:
		if rv.IsNil() {
			return KindNil
		}
	case reflect.Slice:
		if rv.IsNil() {
			return KindNil
		}
		return KindArray
	case reflect.Array:
		return KindArray
	}

	return KindSimple
}

func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}

	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
