// Package transport is a minimal illustrative wire format and
// client/server pair used to exercise pkg/opfuture end to end: dispatching
// an invocation over a real connection and completing its future from
// whatever arrives on the wire. Invocation dispatch, retry, and
// serialization are out of this repository's specified scope (spec.md §1);
// this package exists only so the demo binary has something to drive.
package transport

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind identifies what an Envelope carries.
type Kind string

const (
	// KindValue carries a successful, JSON-encoded result.
	KindValue Kind = "value"
	// KindWaitAgain is the wire form of the WAIT_AGAIN pseudo-response: the
	// server is still working and the client should keep waiting.
	KindWaitAgain Kind = "wait-again"
	// KindError carries a remote failure message.
	KindError Kind = "error"
)

// Envelope is the raw, still-encoded frame exchanged over the wire. It
// implements opfuture.RawCarrier so that handing one to Future.Complete
// directly (instead of decoding it first) panics as a contract violation.
type Envelope struct {
	InvocationID uuid.UUID       `json:"invocation_id"`
	Kind         Kind            `json:"kind"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// ProtocolCarrier marks Envelope as undecoded wire data, so opfuture.Future
// refuses a raw Envelope passed directly to Complete.
func (Envelope) ProtocolCarrier() {}

// Request is what a client sends to dispatch one invocation.
type Request struct {
	InvocationID uuid.UUID       `json:"invocation_id"`
	Method       string          `json:"method"`
	Params       json.RawMessage `json:"params,omitempty"`
}
