package orders

import (
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
)

// transitions is the single source of truth for the order lifecycle. An
// order may only move along these edges; everything else is a state
// conflict.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusPaidEscrow,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaidEscrow: {
		enums.OrderStatusDispatched,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDispatched: {
		enums.OrderStatusArrived,
	},
	enums.OrderStatusArrived: {
		enums.OrderStatusCompleted,
	},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// IsValidTransition reports whether the lifecycle allows moving from one
// status to another.
func IsValidTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the statuses reachable from the given one.
func AllowedNext(from enums.OrderStatus) []enums.OrderStatus {
	next := transitions[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanCancel reports whether an order in the given status may still be
// cancelled. Once goods are moving the buyer loses the unilateral exit.
func CanCancel(from enums.OrderStatus) bool {
	return IsValidTransition(from, enums.OrderStatusCancelled)
}

// RequiresRefund reports whether cancelling from the given status must
// return captured funds. PENDING orders were never charged.
func RequiresRefund(from enums.OrderStatus) bool {
	return from == enums.OrderStatusPaidEscrow
}
