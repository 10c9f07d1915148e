package lifecycle

import (
	"errors"
	"fmt"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/order"
)

var (
	// ErrTransitionInProgress rejects a request while another transition of
	// the same order has not finished.
	ErrTransitionInProgress = errors.New("transition in progress")

	// ErrTransitionFailed is wrapped by TransitionError.
	ErrTransitionFailed = errors.New("transition failed")
)

// TransitionError reports a rejected authoritative write. The local view has
// been rolled back and refreshed from the record store by the time it is
// returned.
type TransitionError struct {
	OrderID kernel.UUID
	From    order.Status
	To      order.Status
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: order %s %s -> %s: %v", ErrTransitionFailed, e.OrderID, e.From, e.To, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *TransitionError) Unwrap() []error {
	return []error{ErrTransitionFailed, e.Err}
}
