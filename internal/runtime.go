package internal

import (
	"log/slog"
)

type RuntimeOptions struct {
	Phases []string
	Flow   FlowOptions
	Logger *slog.Logger
}

// Runtime bundles a Flow with the evaluation context of the properties built on it.
type Runtime struct {
	flow    *Flow
	tracker *Tracker
}

func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.Flow.Logger == nil {
		opts.Flow.Logger = opts.Logger
	}

	return &Runtime{
		flow:    NewFlow(opts.Phases, opts.Flow),
		tracker: NewTracker(),
	}
}

func (r *Runtime) Flow() *Flow { return r.flow }

func (r *Runtime) Tracker() *Tracker { return r.tracker }

func (r *Runtime) NewNode(name string) *Node {
	return NewNode(r.flow, name)
}

// Run executes fn inside a transaction of the runtime's flow.
func (r *Runtime) Run(fn func()) {
	r.flow.Run(fn)
}

// Untrack runs fn without registering property reads as dependencies.
func (r *Runtime) Untrack(fn func()) {
	r.tracker.RunUntracked(fn)
}
