package opfuture

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invocation is the opaque handle spec.md §6 consumes from "external
// collaborators": a logical request dispatched to a cluster peer, which owns
// exactly one Future. Dispatch, retry scheduling, and serialization live
// outside this package; Invocation only carries what the Await Engine needs
// to size its budget and report diagnostics.
type Invocation struct {
	ID uuid.UUID

	// CallTimeout is the invocation's own configured timeout (spec.md's C).
	// Zero or negative means "no call-level timeout": the long-poll bound M
	// collapses to unbounded.
	CallTimeout time.Duration

	// TargetAddr is the address of the peer this invocation was sent to.
	TargetAddr string
	// LocalAddr is this node's own address, used to detect the "migration
	// in progress" case in the long-poll loop (spec.md §4.5.2).
	LocalAddr string
	// IsRemote is false for invocations handled by the local node itself.
	IsRemote bool

	Logger *zap.Logger

	// Deserialize decodes a still-serialized response into its domain
	// value. It is only invoked by the Await Engine's resolution step when
	// non-nil (spec.md §4.5.4's "deserialize mode").
	Deserialize func(v any) (any, error)
}

// NewTimeout builds the TimeoutError an Await Engine synthesizes when it
// gives up waiting on this invocation, either because the user's own budget
// elapsed or because long-poll escalation decided the remote has gone dark.
func (inv *Invocation) NewTimeout(elapsed time.Duration) error {
	return &TimeoutError{Invocation: inv, Elapsed: elapsed}
}

func (inv *Invocation) logger() *zap.Logger {
	if inv.Logger != nil {
		return inv.Logger
	}
	return zap.NewNop()
}
