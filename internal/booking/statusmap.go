// Package booking turns a basket into committed reservations and walks
// them through their lifecycle.
package booking

// Booking lifecycle statuses. The set is closed; writes carrying any
// other value are rejected before touching the database.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCheckedIn = "CHECKED_IN"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// transitions is the edge set of the booking state machine. Cancellation
// is reachable from every pre-terminal state; COMPLETED and CANCELLED
// are terminal.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is a member of the closed status set.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edges leave the status.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0 && ValidStatus(status)
}
