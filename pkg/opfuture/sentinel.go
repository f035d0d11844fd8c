package opfuture

// sentinel is a singleton marker written to a future's response slot in
// place of a real payload. Sentinels are distinguished by reference
// identity, never by value equality, so a remote peer can never accidentally
// produce a payload that collides with one.
type sentinel struct {
	name string
}

func (s *sentinel) String() string { return s.name }

var (
	// empty marks a slot that has not received any value yet. It is the
	// slot's initial value, and the value a waiter resets WAIT_AGAIN back to.
	empty = &sentinel{name: "empty"}

	// waitAgain is a non-terminal pseudo-response: a server-side "I'm still
	// working, re-arm your wait" signal. A waiter that observes it resets
	// the slot back to empty and keeps waiting.
	waitAgain = &sentinel{name: "wait-again"}

	// nullReply normalizes a nil completion value so the slot never has to
	// distinguish "no reply" from "the reply was nil".
	nullReply = &sentinel{name: "null-reply"}

	// interrupted is installed only by external machinery (never
	// synthesized by the await loop itself) to mark a future as terminally
	// interrupted.
	interrupted = &sentinel{name: "interrupted"}

	// deadlineExceeded is resolved locally by the await loop when no reply
	// arrives within the caller's budget. Long-poll escalation does not use
	// it; it completes the future with a *TimeoutError instead.
	deadlineExceeded = &sentinel{name: "deadline-exceeded"}
)

// isTerminal reports whether x is a value a future can never move past:
// anything other than empty or waitAgain.
func isTerminal(x any) bool {
	return x != empty && x != waitAgain
}
