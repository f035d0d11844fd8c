package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/opfuture/pkg/opfuture"
	"go.uber.org/zap"
)

// Client dials the demo server once and dispatches invocations over the
// resulting connection, completing each invocation's Future as replies
// arrive on a single read loop — the one place in this package that plays
// the role of spec.md §1's "transport callback that delivers the reply".
type Client struct {
	log  *zap.Logger
	conn *websocket.Conn
	reg  *opfuture.Registry
}

// Dial connects to the demo server at addr and starts the read loop.
// reg is consulted to find the Future for each incoming Envelope.
func Dial(addr string, reg *opfuture.Registry, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &Client{log: log, conn: conn, reg: reg}
	go c.readLoop()
	return c, nil
}

// Send writes req to the server. The caller is expected to have already
// registered a Future for req.InvocationID with the client's Registry.
func (c *Client) Send(req Request) error {
	return c.conn.WriteJSON(req)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.log.Debug("read loop ending", zap.Error(err))
			return
		}
		fut, ok := c.reg.Lookup(env.InvocationID)
		if !ok {
			c.log.Debug("envelope for unknown invocation, dropping",
				zap.Stringer("invocation", env.InvocationID))
			continue
		}
		c.deliver(fut, env)
	}
}

// deliver decodes env — never offering the raw Envelope itself to Complete,
// per the contract RawCarrier enforces — and completes fut with the
// decoded value, sentinel, or error.
func (c *Client) deliver(fut *opfuture.Future, env Envelope) {
	switch env.Kind {
	case KindWaitAgain:
		fut.Complete(opfuture.WaitAgain)
	case KindError:
		fut.Complete(fmt.Errorf("remote: %s", env.Message))
	case KindValue:
		var v any
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &v); err != nil {
				fut.Complete(fmt.Errorf("decode result: %w", err))
				return
			}
		}
		fut.Complete(v)
	default:
		fut.Complete(fmt.Errorf("unknown envelope kind %q", env.Kind))
	}
}

// NewInvocationID is a small convenience so callers don't need to import
// uuid directly just to dispatch one invocation.
func NewInvocationID() uuid.UUID {
	return uuid.New()
}
