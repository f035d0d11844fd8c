package transport

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/opfuture/pkg/opfuture"
	"github.com/stretchr/testify/assert"
)

func TestEnvelopeImplementsRawCarrier(t *testing.T) {
	var _ opfuture.RawCarrier = Envelope{}
}

func TestEnvelopeIsRejectedByComplete(t *testing.T) {
	inv := &opfuture.Invocation{ID: uuid.New()}
	fut := opfuture.NewFuture(inv)
	assert.Panics(t, func() {
		fut.Complete(Envelope{InvocationID: inv.ID, Kind: KindValue})
	})
}

func TestEnvelopeRoundTripsJSON(t *testing.T) {
	env := Envelope{
		InvocationID: uuid.New(),
		Kind:         KindValue,
		Payload:      json.RawMessage(`{"a":1}`),
	}
	data, err := json.Marshal(env)
	assert.NoError(t, err)

	var decoded Envelope
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.InvocationID, decoded.InvocationID)
	assert.Equal(t, env.Kind, decoded.Kind)
	assert.JSONEq(t, `{"a":1}`, string(decoded.Payload))
}
