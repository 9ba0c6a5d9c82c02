package booking

import "fmt"

// transitions is the authoritative adjacency table. Every mutating operation
// goes through ValidateTransition; nothing else decides status legality.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusExpired:   {},
}

// TransitionResult reports whether a transition is legal and why not.
type TransitionResult struct {
	Allowed bool
	// NoOp is set when current == next: the caller should treat the request
	// as an idempotent success and skip side effects.
	NoOp   bool
	Reason string
}

// ValidateTransition checks current -> next against the transition table.
// It performs no I/O so the full state matrix can be tested exhaustively.
func ValidateTransition(current, next Status) TransitionResult {
	allowed, known := transitions[current]
	if !known {
		return TransitionResult{Reason: fmt.Sprintf("unknown status %q", current)}
	}
	if _, ok := transitions[next]; !ok {
		return TransitionResult{Reason: fmt.Sprintf("unknown target status %q", next)}
	}
	if current == next {
		return TransitionResult{Allowed: true, NoOp: true}
	}
	for _, s := range allowed {
		if s == next {
			return TransitionResult{Allowed: true}
		}
	}
	return TransitionResult{Reason: fmt.Sprintf("cannot transition from %s to %s", current, next)}
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(s Status) bool {
	next, known := transitions[s]
	return known && len(next) == 0
}

// IsActive reports whether a status counts against the supplier's calendar.
func IsActive(s Status) bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}
