package opfuture

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LivenessOracle is spec.md §6's remote liveness probe: long-poll escalation
// consults it to decide whether a remote peer that hasn't replied yet is
// merely slow or actually gone.
type LivenessOracle interface {
	IsExecuting(inv *Invocation) bool
}

// StaticLivenessOracle always reports the same answer. It exists for tests
// that want to force either the long-poll-keeps-waiting or the
// long-poll-synthesizes-timeout path deterministically, mirroring how
// pkg/rpcclient/waiter's tests stub an RPC client with canned responses
// rather than a real network round trip.
type StaticLivenessOracle bool

func (s StaticLivenessOracle) IsExecuting(*Invocation) bool { return bool(s) }

// StallLivenessOracle generalizes the teacher's pkg/peer/stall detector
// from "is this peer still answering protocol messages" to "is this
// invocation's target still executing it": it records a dispatch timestamp
// per in-flight invocation and, once more than ResponseGrace has elapsed
// since dispatch without a Refresh call, reports the invocation as no
// longer executing.
type StallLivenessOracle struct {
	// ResponseGrace is how long an invocation is given before it's
	// considered stalled absent a Refresh.
	ResponseGrace time.Duration

	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

// NewStallLivenessOracle creates an oracle with the given response grace
// period.
func NewStallLivenessOracle(responseGrace time.Duration) *StallLivenessOracle {
	return &StallLivenessOracle{
		ResponseGrace: responseGrace,
		started:       make(map[uuid.UUID]time.Time),
	}
}

// Track begins tracking inv as dispatched as of now. Call this once per
// invocation when it's sent.
func (s *StallLivenessOracle) Track(inv *Invocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[inv.ID] = time.Now()
}

// Refresh resets inv's dispatch clock, e.g. on receipt of a WAIT_AGAIN
// pseudo-response or any other liveness signal from the peer.
func (s *StallLivenessOracle) Refresh(inv *Invocation) {
	s.Track(inv)
}

// Forget stops tracking inv, typically once its future has completed.
func (s *StallLivenessOracle) Forget(inv *Invocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.started, inv.ID)
}

// IsExecuting reports false once ResponseGrace has elapsed since the
// invocation was last tracked or refreshed. An invocation nobody ever
// tracked is conservatively reported as still executing, so long-poll
// escalation does not misfire against oracles that were never wired up to
// a particular dispatch path.
func (s *StallLivenessOracle) IsExecuting(inv *Invocation) bool {
	s.mu.Lock()
	started, ok := s.started[inv.ID]
	s.mu.Unlock()
	if !ok {
		return true
	}
	return time.Since(started) < s.ResponseGrace
}
