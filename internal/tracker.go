package internal

// Tracker holds the evaluation context: the binding that every property read
// registers as a change listener.
type Tracker struct {
	tracking bool

	current *Binding
}

func NewTracker() *Tracker {
	return &Tracker{
		tracking: true,
	}
}

// RunWith evaluates fn with b as the evaluation context, restoring the previous one after.
func (t *Tracker) RunWith(b *Binding, fn func()) {
	prev, prevTracking := t.current, t.tracking
	t.current, t.tracking = b, true
	defer func() { t.current, t.tracking = prev, prevTracking }()

	fn()
}

func (t *Tracker) RunUntracked(fn func()) {
	prev := t.tracking
	t.tracking = false
	defer func() { t.tracking = prev }()

	fn()
}

// Current returns the active evaluation context, nil when not tracking.
func (t *Tracker) Current() *Binding {
	if !t.tracking {
		return nil
	}
	return t.current
}

// Track registers the evaluation context as a change listener of p.
func (t *Tracker) Track(p *Property) {
	b := t.Current()
	if b == nil || b.prop == p {
		return
	}

	if !p.has(ActionChange, b) {
		p.On(b, ActionChange)
	}
}
