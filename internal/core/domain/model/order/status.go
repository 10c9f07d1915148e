package order

import (
	"errors"
	"fmt"
	"strings"

	"cafe/internal/pkg/errs"
)

// ErrInvalidTransition is the sentinel wrapped by InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Received ──> Confirmed ──> Preparing ──> OnTheWay ──> Completed
//	    │            │             │             │
//	    └────────────┴─────────────┴─────────────┴──────> Cancelled
//
// Completed and Cancelled are terminal. Every forward edge moves exactly one
// step; Cancelled is the only edge that skips ahead.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Received is the initial status of a freshly placed order.
	Received

	// Confirmed means the cafe accepted the order.
	Confirmed

	// Preparing means the kitchen is working on it.
	Preparing

	// OnTheWay means the order has left the counter (delivery) or is ready for pickup.
	OnTheWay

	// Completed is the final successful state.
	Completed

	// Cancelled is the final unsuccessful state.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "unknown",
		Received:  "received",
		Confirmed: "confirmed",
		Preparing: "preparing",
		OnTheWay:  "on_the_way",
		Completed: "completed",
		Cancelled: "cancelled",
	}
}

// successors holds the single forward edge out of each non-terminal status.
func successors() map[Status]Status {
	//nolint:exhaustive // terminal and Unknown statuses have no successor
	return map[Status]Status{
		Received:  Confirmed,
		Confirmed: Preparing,
		Preparing: OnTheWay,
		OnTheWay:  Completed,
	}
}

// InvalidTransitionError describes a rejected From -> To request.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ParseStatus converts a wire name ("on_the_way") into a Status.
// Matching is case-insensitive and accepts hyphens in place of underscores.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for status, name := range getStatusStrings() {
		if status != Unknown && name == normalized {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a known status", s))
}

// Validate checks if the Status value is one of the defined non-Unknown values.
func (s Status) Validate() error {
	if s <= Unknown || s > Cancelled {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the snake case wire name of the status.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

// Next returns the defined successor, or false for terminal and invalid statuses.
func (s Status) Next() (Status, bool) {
	next, ok := successors()[s]
	return next, ok
}

// CanTransitionTo checks the transition precondition without performing it.
//
// A transition is allowed when:
//   - target is the defined successor of s, or
//   - target is Cancelled and s is a valid non-terminal status.
//
// Returns:
//   - nil if the transition is allowed
//   - *InvalidTransitionError (wrapping ErrInvalidTransition) otherwise
//
// Example:
//
//	if err := order.Received.CanTransitionTo(order.Completed); err != nil {
//	    // errors.Is(err, order.ErrInvalidTransition) == true
//	}
func (s Status) CanTransitionTo(target Status) error {
	if s.Validate() != nil || target.Validate() != nil || s.IsTerminal() {
		return &InvalidTransitionError{From: s, To: target}
	}

	if target == Cancelled {
		return nil
	}

	if next, ok := s.Next(); ok && next == target {
		return nil
	}

	return &InvalidTransitionError{From: s, To: target}
}

// IsAfter reports whether s lies strictly further along the forward path than other.
// Cancelled is considered after every non-terminal status.
func (s Status) IsAfter(other Status) bool {
	if s == other {
		return false
	}
	if s == Cancelled {
		return !other.IsTerminal()
	}
	if other == Cancelled {
		return false
	}
	return s > other
}
