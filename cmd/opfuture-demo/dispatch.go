package main

import (
	"encoding/json"
	"time"

	"github.com/nspcc-dev/opfuture/config"
	"github.com/nspcc-dev/opfuture/pkg/opfuture"
	"github.com/nspcc-dev/opfuture/pkg/transport"
	"go.uber.org/zap"
)

// dispatcher bundles the collaborators invoke and repl both build once from
// the loaded Config and reuse across every invocation they dispatch:
// registry, metrics sink, liveness oracle, and continuation executor, all
// sized from ApplicationConfiguration instead of being hardcoded.
type dispatcher struct {
	conn     *transport.Client
	reg      *opfuture.Registry
	log      *zap.Logger
	metrics  *opfuture.Metrics
	liveness *opfuture.StallLivenessOracle
	exec     *opfuture.PoolExecutor
}

// newDispatcher dials addr and wires a dispatcher from app: the registry's
// diagnostic cache size, the continuation executor's pool size, and the
// liveness oracle's response grace all come from app rather than being
// hardcoded; a Metrics sink is only built when app.Prometheus.Enabled.
func newDispatcher(addr string, log *zap.Logger, app config.ApplicationConfiguration) (*dispatcher, error) {
	reg := opfuture.NewRegistry(log, app.DiagnosticCacheSize)
	conn, err := transport.Dial(addr, reg, log)
	if err != nil {
		return nil, err
	}

	var metrics *opfuture.Metrics
	if app.Prometheus.Enabled {
		metrics = opfuture.NewMetrics("opfuture_demo")
	}

	return &dispatcher{
		conn:     conn,
		reg:      reg,
		log:      log,
		metrics:  metrics,
		liveness: opfuture.NewStallLivenessOracle(app.ResponseGrace),
		exec:     opfuture.NewPoolExecutor(int64(app.ExecutorPoolSize)),
	}, nil
}

// Close releases the dispatcher's connection and stops admitting new
// continuation submissions to its executor pool.
func (d *dispatcher) Close() error {
	d.exec.Close()
	return d.conn.Close()
}

// dispatch registers a Future for a new invocation ID, sends the request
// over conn, and awaits the result with timeout as both the call timeout
// and the Await Engine's own wait budget.
func (d *dispatcher) dispatch(method, params string, timeout time.Duration) (any, error) {
	id := transport.NewInvocationID()

	inv := &opfuture.Invocation{
		ID:          id,
		CallTimeout: timeout,
		Logger:      d.log,
	}
	opts := []opfuture.Option{
		opfuture.WithRegistry(d.reg),
		opfuture.WithLiveness(d.liveness),
		opfuture.WithDefaultExecutor(d.exec),
	}
	if d.metrics != nil {
		opts = append(opts, opfuture.WithMetrics(d.metrics))
	}
	fut := opfuture.NewFuture(inv, opts...)
	d.reg.Register(inv, fut)
	d.liveness.Track(inv)
	defer d.liveness.Forget(inv)

	req := transport.Request{
		InvocationID: id,
		Method:       method,
		Params:       json.RawMessage(params),
	}
	if err := d.conn.Send(req); err != nil {
		d.reg.Deregister(inv)
		return nil, err
	}

	return fut.Await(timeout)
}
