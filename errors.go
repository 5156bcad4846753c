package parallex

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExecution wraps the value of a panic that escaped a task body. An error
// a task body returns is stored as it is, without this wrapper. Either one
// is captured in the task's exception slot and returned again whenever the
// task is forced.
var ErrExecution = errors.New("parallex: execution fault")

// ErrForeachBreak is the foreach-break fault. ForEach never raises it
// itself, since a body cannot break out of the loop; a body returns it
// (bare or wrapped) to report that it abandoned the loop. Other faults from
// the same loop are chained with it (see AggregateError).
var ErrForeachBreak = errors.New("parallex: foreach body exited early")

// ErrPrecondition marks invalid caller input: a negative work-unit size (a
// size of 0 selects the default), an output buffer of the wrong length,
// forcing a task that was never submitted, submitting to a pool that is no
// longer running, and so on.
var ErrPrecondition = errors.New("parallex: precondition violated")

// ErrEmptyReduce is raised by Reduce when the input is empty and no seed
// was supplied.
var ErrEmptyReduce = errors.New("parallex: reduce over empty range with no seed")

// AggregateError chains multiple execution faults raised by a single
// parallel operation. Errs lists them in the order the driver forced the
// failing work units, which is their submission order, not their
// completion order.
type AggregateError struct {
	Errs []error
}

func (e *AggregateError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	parts := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d work units failed: %s", len(e.Errs), strings.Join(parts, "; "))
}

// Unwrap exposes every chained fault, following the multi-error Unwrap
// convention so errors.Is/errors.As can reach any of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errs
}

// aggregate collapses a slice of faults into a single error: nil if empty,
// the lone error if there is exactly one, or an *AggregateError otherwise.
func aggregate(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &AggregateError{Errs: errs}
	}
}

// IsForeachBreak reports whether err (or anything chained under it) is a
// foreach-break fault.
func IsForeachBreak(err error) bool {
	return errors.Is(err, ErrForeachBreak)
}
