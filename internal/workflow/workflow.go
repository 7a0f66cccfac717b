// Package workflow defines the order status state machine. The
// transition table here is the single source of truth; every caller
// that needs transition legality, editability, or cancellability goes
// through this package instead of keeping its own copy.
package workflow

import (
	"fmt"

	"cylinder-service/internal/models"
)

// ErrInvalidTransition is returned for any transition not present in
// the table, including self-transitions.
type ErrInvalidTransition struct {
	Current string
	Next    string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.Current, e.Next)
}

// Transitions maps each status to the set of statuses it may move to.
// INVOICED and CANCELLED are terminal.
var Transitions = map[string][]string{
	models.OrderStatusDraft:     {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusScheduled, models.OrderStatusCancelled},
	models.OrderStatusScheduled: {models.OrderStatusEnRoute, models.OrderStatusCancelled},
	models.OrderStatusEnRoute:   {models.OrderStatusDelivered},
	models.OrderStatusDelivered: {models.OrderStatusInvoiced},
	models.OrderStatusInvoiced:  {},
	models.OrderStatusCancelled: {},
}

// ValidateTransition reports whether current -> next is a legal move.
// A self-transition is never legal.
func ValidateTransition(current, next string) error {
	if current == next {
		return &ErrInvalidTransition{Current: current, Next: next}
	}

	allowed, ok := Transitions[current]
	if !ok {
		return &ErrInvalidTransition{Current: current, Next: next}
	}

	for _, s := range allowed {
		if s == next {
			return nil
		}
	}

	return &ErrInvalidTransition{Current: current, Next: next}
}

// IsEditable reports whether order lines may still be changed.
func IsEditable(status string) bool {
	return status == models.OrderStatusDraft || status == models.OrderStatusConfirmed
}

// IsCancellable reports whether the order may still be cancelled.
func IsCancellable(status string) bool {
	return ValidateTransition(status, models.OrderStatusCancelled) == nil
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return len(Transitions[status]) == 0
}
