package internal

type signalValue struct{ name string }

func (s *signalValue) String() string { return s.name }

var (
	// BadValue returned by a transform drops the update.
	BadValue any = &signalValue{"bad value"}

	// CloseSignal returned by a transform closes the node instead of updating it.
	CloseSignal any = &signalValue{"close"}
)

// Transform is one stage of a node's pipeline.
type Transform func(v any) any

// Transform appends stages to the pipeline.
func (n *Node) Transform(fns ...Transform) *Node {
	n.transforms = append(n.transforms, fns...)
	return n
}

func (n *Node) Map(fn func(v any) any) *Node {
	return n.Transform(fn)
}

// Filter drops values for which keep returns false.
func (n *Node) Filter(keep func(v any) bool) *Node {
	return n.Transform(func(v any) any {
		if !keep(v) {
			return BadValue
		}
		return v
	})
}

// Accumulate folds every value into acc, starting from seed, and passes acc on.
func (n *Node) Accumulate(fn func(acc, v any) any, seed any) *Node {
	acc := seed
	return n.Transform(func(v any) any {
		acc = fn(acc, v)
		return acc
	})
}

// apply runs v through the pipeline, stopping at the first signal value.
func (n *Node) apply(v any) any {
	for _, fn := range n.transforms {
		v = fn(v)
		if v == BadValue || v == CloseSignal {
			return v
		}
	}
	return v
}
