package internal

const (
	ActionChange = "change"
	ActionError  = "error"
	ActionClose  = "close"
)

// Event is the value delivered to listeners.
type Event struct {
	Action string

	// Source is whatever caused the update, Target the node that emitted it.
	Source any
	Target *Node

	// Value is the emitter's value when the event was built.
	Value any
	Old   any
}

// Err returns the error carried by an error event.
func (e *Event) Err() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
