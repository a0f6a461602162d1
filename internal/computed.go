package internal

func asCompute(v any) (ComputeFunc, bool) {
	switch fn := v.(type) {
	case ComputeFunc:
		return fn, fn != nil
	case func(*Object) any:
		return fn, fn != nil
	}
	return nil, false
}

// initComputed evaluates the function once in its own transaction, with the
// binding as evaluation context so every slot it reads subscribes the binding.
func (p *Property) initComputed() {
	p.flow.Run(func() {
		p.evaluate()
	})
}

// recompute is the binding's callback, run when a dependency changed.
func (p *Property) recompute(*Event) {
	if p.state >= StateClosed {
		return
	}

	p.prev = p.value
	defer func() {
		if ev := p.pending; ev != nil {
			ev.Value, ev.Old = p.value, p.prev
			p.pending = nil
		}
	}()

	p.evaluate()
}

func (p *Property) evaluate() {
	p.obj.rt.tracker.RunWith(p.binding, func() {
		p.value = p.fn(p.obj)
	})
}

// setComputed swaps the function of a computed slot, or re-types the slot
// when v is not a function.
func (p *Property) setComputed(v any) {
	fn, ok := asCompute(v)
	if !ok {
		p.retype(v)
		return
	}

	p.fn = fn
	if p.state != StateReady {
		return
	}

	p.flow.within(func() {
		p.recompute(nil)
		p.Update(p, nil)
		p.pending = nil
	})
}
