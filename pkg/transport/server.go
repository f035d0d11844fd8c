package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrSilence tells the server to send nothing back at all for a request,
// simulating a peer that has gone quiet so a client can demonstrate
// long-poll timeout synthesis (spec.md §8 scenario/property 7).
var ErrSilence = errors.New("transport: deliberately not answering")

// Handler answers one dispatched Request, optionally sending a WAIT_AGAIN
// frame first (to exercise the server-side-blocking-operation scenario,
// spec.md §8 scenario 4) before the real reply.
type Handler func(req Request) (result any, waitAgainFirst bool, err error)

// Server is the demo transport's listener: a single websocket endpoint that
// reads Requests and writes Envelopes back on the same connection.
type Server struct {
	log     *zap.Logger
	handler Handler
	upgrade websocket.Upgrader
}

// NewServer creates a Server that answers every request with handler.
func NewServer(log *zap.Logger, handler Handler) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, handler: handler}
}

// serializedConn serializes writes to a *websocket.Conn shared by the
// per-request goroutines ServeHTTP spawns. gorilla/websocket allows at most
// one concurrent writer; without this, a WAIT_AGAIN frame racing a second
// invocation's reply on the same connection can corrupt the frame stream.
type serializedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *serializedConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ServeHTTP implements http.Handler by upgrading the connection to a
// websocket and serving requests on it until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()
	conn := &serializedConn{conn: raw}

	for {
		var req Request
		if err := raw.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("connection read ended", zap.Error(err))
			}
			return
		}
		go s.answer(conn, req)
	}
}

func (s *Server) answer(conn *serializedConn, req Request) {
	result, waitAgainFirst, err := s.handler(req)

	if waitAgainFirst {
		_ = conn.WriteJSON(Envelope{InvocationID: req.InvocationID, Kind: KindWaitAgain})
		time.Sleep(50 * time.Millisecond)
	}

	if err == ErrSilence {
		return
	}
	if err != nil {
		_ = conn.WriteJSON(Envelope{InvocationID: req.InvocationID, Kind: KindError, Message: err.Error()})
		return
	}

	payload, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		s.log.Error("failed to marshal result", zap.Error(marshalErr))
		return
	}
	_ = conn.WriteJSON(Envelope{InvocationID: req.InvocationID, Kind: KindValue, Payload: payload})
}
