package internal

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fatal runtime errors.
type ErrorCode string

const (
	// CodeDestroyed is raised when updating a destroyed node.
	CodeDestroyed ErrorCode = "DESTROYED"

	// CodeNoTransaction is raised when pushing work while no transaction is active.
	CodeNoTransaction ErrorCode = "NO_TRANSACTION"

	// CodeAbstract is raised when a receiver is asked for an operation it does not implement.
	CodeAbstract ErrorCode = "ABSTRACT"

	// CodeUnknownQueue is raised when pushing into a phase the queue set does not have.
	CodeUnknownQueue ErrorCode = "UNKNOWN_QUEUE"
)

// RuntimeError is a broken calling contract. It is always panicked and never
// swallowed by the scheduler.
type RuntimeError struct {
	Code    ErrorCode
	Message string

	// Node names the node involved, if any.
	Node string
}

func (e *RuntimeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("reflow: %s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("reflow: %s: %s", e.Code, e.Message)
}

func fatal(code ErrorCode, node string, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Node: node}
}

// QueueError wraps a panic raised by a user function while a queued action ran.
type QueueError struct {
	Queue string
	Op    string
	Cause error

	receiver Receiver
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("reflow: %s.%s: %v", e.Queue, e.Op, e.Cause)
}

func (e *QueueError) Unwrap() error { return e.Cause }

// IsFatal reports whether err is a RuntimeError.
func IsFatal(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

func hasCode(err error, code ErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsDestroyed reports whether err was raised by updating a destroyed node.
func IsDestroyed(err error) bool { return hasCode(err, CodeDestroyed) }

// IsNoTransaction reports whether err was raised by pushing outside a transaction.
func IsNoTransaction(err error) bool { return hasCode(err, CodeNoTransaction) }

// IsAbstract reports whether err was raised by an unimplemented operation.
func IsAbstract(err error) bool { return hasCode(err, CodeAbstract) }

// asError turns a recovered panic value into an error.
func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
