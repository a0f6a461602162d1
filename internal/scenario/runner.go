package scenario

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/AnatoleLucet/reflow"
)

// Entry is one line of a scenario trace. Values are rendered when recorded.
type Entry struct {
	Step  int    `json:"step"`
	Phase string `json:"phase"`
	Field string `json:"field,omitempty"`
	Value string `json:"value"`
	Old   string `json:"old,omitempty"`

	Initial bool `json:"initial,omitempty"`
}

func (e Entry) String() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("step %d [%s] %s", e.Step, e.Phase, e.Value)
	case e.Initial:
		return fmt.Sprintf("step %d [%s] %s = %s", e.Step, e.Phase, e.Field, e.Value)
	}
	return fmt.Sprintf("step %d [%s] %s: %s -> %s", e.Step, e.Phase, e.Field, e.Old, e.Value)
}

// Result is the trace of a run plus the final field values.
type Result struct {
	Scenario string            `json:"scenario"`
	Trace    []Entry           `json:"trace"`
	Final    map[string]string `json:"final"`
}

// Text renders the result one entry per line, the final values last.
func (r *Result) Text() []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "scenario %s\n", r.Scenario)
	for _, e := range r.Trace {
		fmt.Fprintln(&b, e.String())
	}

	keys := make([]string, 0, len(r.Final))
	for k := range r.Final {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + r.Final[k]
	}
	fmt.Fprintf(&b, "final %s\n", strings.Join(pairs, " "))

	return b.Bytes()
}

// Errors returns the error entries of the trace.
func (r *Result) Errors() []Entry {
	var errs []Entry
	for _, e := range r.Trace {
		if e.Phase == phaseError {
			errs = append(errs, e)
		}
	}
	return errs
}

const phaseError = "error"

// Runner executes scenarios, each on a fresh runtime.
type Runner struct {
	// Phases used when the scenario declares none.
	Phases []string

	Logger *slog.Logger

	// Version is checked against the scenario's requires constraint.
	Version string
}

// Run builds the scenario's object, registers its watches and runs every step.
// Errors raised by computed fields are part of the trace, not returned.
func (r *Runner) Run(s *Scenario) (*Result, error) {
	version := r.Version
	if version == "" {
		version = reflow.Version
	}
	if err := s.Check(version); err != nil {
		return nil, err
	}

	phases := s.Phases
	if len(phases) == 0 {
		phases = r.Phases
	}

	rt := reflow.NewRuntime(reflow.RuntimeOptions{Phases: phases, Logger: r.Logger})
	phases = rt.Flow().Phases()

	for _, w := range s.Watch {
		if w.Phase != "" && !slices.Contains(phases, w.Phase) {
			return nil, fmt.Errorf("watch %q: unknown phase %q", w.Field, w.Phase)
		}
	}

	fields := make(map[string]any, len(s.Fields)+len(s.Computed))
	for k, v := range s.Fields {
		fields[k] = v
	}
	for name, c := range s.Computed {
		fields[name] = compute(name, c)
	}

	obj := rt.NewObject(fields)
	res := &Result{Scenario: s.Name}
	step := 0

	rt.Flow().Errors().OnFunc(func(ev *reflow.Event) {
		res.Trace = append(res.Trace, Entry{Step: step, Phase: phaseError, Value: ev.Err().Error()})
	})

	var err error
	rt.Untrack(func() {
		computed := make([]string, 0, len(s.Computed))
		for name := range s.Computed {
			computed = append(computed, name)
		}
		slices.Sort(computed)

		for _, name := range computed {
			obj.Get(name)
		}

		for _, w := range s.Watch {
			if err = watch(obj, w, phases, res, &step); err != nil {
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}

	for i, st := range s.Steps {
		step = i + 1

		rt.Run(func() {
			paths := make([]string, 0, len(st.Set))
			for path := range st.Set {
				paths = append(paths, path)
			}
			slices.Sort(paths)

			for _, path := range paths {
				var p *reflow.Property
				if p, err = prop(obj, path); err != nil {
					return
				}
				p.Set(st.Set[path])
			}

			for _, path := range st.Close {
				var p *reflow.Property
				if p, err = prop(obj, path); err != nil {
					return
				}
				p.Close()
			}
		})
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	res.Final = make(map[string]string, len(fields))
	for k, v := range obj.Values() {
		res.Final[k] = render(v)
	}

	rt.Flow().Logger().Debug("scenario done",
		slog.String("scenario", s.Name),
		slog.Int("steps", len(s.Steps)),
		slog.Int("entries", len(res.Trace)),
	)

	return res, nil
}

// watch records the current value of w.Field, then every change in w.Phase.
func watch(obj *reflow.Object, w Watch, phases []string, res *Result, step *int) error {
	p, err := prop(obj, w.Field)
	if err != nil {
		return fmt.Errorf("watch %q: %w", w.Field, err)
	}

	phase := w.Phase
	if phase == "" {
		phase = phases[0]
	}

	res.Trace = append(res.Trace, Entry{
		Step:    *step,
		Phase:   phase,
		Field:   w.Field,
		Value:   render(p.Get()),
		Initial: true,
	})

	p.On(reflow.NewCallback(func(ev *reflow.Event) {
		res.Trace = append(res.Trace, Entry{
			Step:  *step,
			Phase: phase,
			Field: w.Field,
			Value: render(ev.Value),
			Old:   render(ev.Old),
		})
	}).In(phase), reflow.ChangeAction)

	return nil
}

// compute builds the function of a computed field. Every dependency is
// read on each evaluation so all of them stay tracked.
func compute(name string, c Compute) reflow.ComputeFunc {
	op := ops[c.Op]

	return func(o *reflow.Object) any {
		values := make([]any, len(c.Of))
		for i, path := range c.Of {
			v, err := lookup(o, path)
			if err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			values[i] = v
		}

		v, err := op(values)
		if err != nil {
			panic(fmt.Errorf("%s: %s: %w", name, c.Op, err))
		}
		return v
	}
}

// lookup reads a dotted path, tracking every slot on the way.
func lookup(o *reflow.Object, path string) (any, error) {
	segments := strings.Split(path, ".")

	for _, seg := range segments[:len(segments)-1] {
		child, ok := o.Get(seg).(*reflow.Object)
		if !ok {
			return nil, fmt.Errorf("%q is not an object", seg)
		}
		o = child
	}

	return o.Get(segments[len(segments)-1]), nil
}

// prop returns the property at a dotted path without tracking.
func prop(o *reflow.Object, path string) (*reflow.Property, error) {
	segments := strings.Split(path, ".")

	for _, seg := range segments[:len(segments)-1] {
		child, ok := o.Prop(seg).Peek().(*reflow.Object)
		if !ok {
			return nil, fmt.Errorf("%q is not an object", seg)
		}
		o = child
	}

	last := segments[len(segments)-1]
	if !o.Has(last) {
		return nil, fmt.Errorf("unknown field %q", last)
	}
	return o.Prop(last), nil
}

func render(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case *reflow.Object:
		return fmt.Sprint(v.Values())
	}
	return fmt.Sprint(v)
}
