package internal

// provisioners builds the variant of a freshly created property, by kind.
var provisioners [kindCount]func(p *Property, v any)

func init() {
	provisioners = [kindCount]func(p *Property, v any){
		KindNil: func(p *Property, v any) {
			p.value = nil
		},
		KindSimple: func(p *Property, v any) {
			p.value = v
		},
		KindComputed: func(p *Property, v any) {
			p.fn, _ = asCompute(v)
			p.binding = &Binding{prop: p, fn: p.recompute}
			p.setup = p.initComputed
		},
		KindObject: func(p *Property, v any) {
			p.adopt(v)
		},
		KindArray: func(p *Property, v any) {
			p.value = v
		},
	}
}

// provision creates the property of the right kind for slot, in the init state.
func provision(o *Object, slot string, v any) *Property {
	p := &Property{
		Node: newNode(o.rt.flow, o.name+"."+slot),
		obj:  o,
		slot: slot,
		kind: kindOf(v),
	}

	p.parent = o.node
	p.makeEvent = p.event
	p.receive = p.receiveEvent
	p.teardown = p.release

	provisioners[p.kind](p, v)
	return p
}

// retype destroys p and provisions a property for v in its place. The change
// listeners and the phase of p carry over to the new property.
func (p *Property) retype(v any) *Property {
	o := p.obj

	carried := p.Listeners(ActionChange)
	queue := p.queueName
	ready := p.state == StateReady

	p.Destroy()

	next := provision(o, p.slot, v)
	next.queueName = queue
	for _, l := range carried {
		next.On(l, ActionChange)
	}

	if o.props[p.slot] == p {
		o.props[p.slot] = next
	}

	if ready {
		next.Init()
	}

	return next
}
