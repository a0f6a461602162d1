package internal

import (
	"slices"
	"sort"
)

// Object is a record of named slots, each mirrored by a lazily provisioned
// Property. Its node is the parent of every property and re-emits their changes.
type Object struct {
	rt   *Runtime
	node *Node
	name string

	// slot values not provisioned yet
	fields map[string]any
	props  map[string]*Property
	keys   []string
}

// NewObject builds an object over fields. Slots are provisioned on first access.
func (r *Runtime) NewObject(fields map[string]any) *Object {
	return r.newObject("object", fields)
}

func (r *Runtime) newObject(name string, fields map[string]any) *Object {
	o := &Object{
		rt:     r,
		name:   name,
		fields: make(map[string]any, len(fields)),
		props:  make(map[string]*Property, len(fields)),
		keys:   make([]string, 0, len(fields)),
	}

	for k, v := range fields {
		o.fields[k] = v
		o.keys = append(o.keys, k)
	}
	sort.Strings(o.keys)

	o.node = NewNode(r.flow, name)
	o.node.makeEvent = o.event

	return o
}

func (o *Object) Runtime() *Runtime { return o.rt }

func (o *Object) Node() *Node { return o.node }

func (o *Object) Keys() []string { return slices.Clone(o.keys) }

func (o *Object) Has(slot string) bool {
	return slices.Contains(o.keys, slot)
}

// Provisioned reports whether the slot already has a Property.
func (o *Object) Provisioned(slot string) bool {
	_, ok := o.props[slot]
	return ok
}

// Prop returns the property of a slot, provisioning it (in the init state) if needed.
func (o *Object) Prop(slot string) *Property {
	if p, ok := o.props[slot]; ok {
		return p
	}

	v, ok := o.fields[slot]
	if ok {
		delete(o.fields, slot)
	} else {
		o.keys = append(o.keys, slot)
	}

	p := provision(o, slot, v)
	o.props[slot] = p
	return p
}

// Get reads a slot, tracking it as a dependency of the evaluation context.
func (o *Object) Get(slot string) any {
	return o.Prop(slot).Get()
}

func (o *Object) Set(slot string, v any) {
	o.Prop(slot).Set(v)
}

// Values reads every slot without tracking.
func (o *Object) Values() map[string]any {
	values := make(map[string]any, len(o.keys))
	o.rt.tracker.RunUntracked(func() {
		for _, k := range o.keys {
			v := o.Get(k)
			if child, ok := v.(*Object); ok {
				v = child.Values()
			}
			values[k] = v
		}
	})
	return values
}

// Destroy tears down every provisioned property and the object's node.
func (o *Object) Destroy() {
	for _, k := range o.keys {
		if p, ok := o.props[k]; ok {
			if child, ok := p.value.(*Object); ok {
				child.Destroy()
			}
			p.Destroy()
		}
	}
	o.node.Destroy()
}

func (o *Object) event(action string, source, data any) *Event {
	ev := &Event{Action: action, Source: source, Target: o.node, Value: o}
	if action == ActionError {
		ev.Value = data
	}
	return ev
}
