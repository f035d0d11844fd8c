package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/nspcc-dev/opfuture/pkg/opfuture"
	"github.com/nspcc-dev/opfuture/pkg/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func newServeCommand() cli.Command {
	return cli.Command{
		Name:      "serve",
		Usage:     "Run the demo transport server",
		UsageText: "opfuture-demo serve [--config path] [--addr host:port] [--delay dur] [--fail-rate f] [--silent-rate f]",
		Action:    runServe,
		Flags: []cli.Flag{
			configFlag,
			cli.StringFlag{Name: "addr", Value: ":4010", Usage: "address to listen on"},
			cli.DurationFlag{Name: "delay", Value: 2 * time.Second, Usage: "simulated processing delay before a reply, applied only when over 500ms (a WAIT_AGAIN frame then precedes the reply)"},
			cli.Float64Flag{Name: "fail-rate", Value: 0, Usage: "fraction of requests answered with an error, 0-1"},
			cli.Float64Flag{Name: "silent-rate", Value: 0, Usage: "fraction of requests answered with nothing at all, 0-1"},
		},
	}
}

func runServe(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	app := cfg.ApplicationConfiguration
	if app.Logger.LogLevel == "" {
		app.Logger.LogLevel = "info"
	}

	log, err := app.Logger.Build()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer log.Sync() //nolint:errcheck

	if app.Prometheus.Enabled {
		serveMetrics(log, app.Prometheus.Address)
	}

	delay := ctx.Duration("delay")
	failRate := ctx.Float64("fail-rate")
	silentRate := ctx.Float64("silent-rate")

	handler := func(req transport.Request) (any, bool, error) {
		log.Info("handling request",
			zap.Stringer("invocation", req.InvocationID), zap.String("method", req.Method))

		longRunning := delay > 500*time.Millisecond
		if longRunning {
			time.Sleep(delay)
		}

		roll := rand.Float64() //nolint:gosec
		switch {
		case roll < silentRate:
			log.Info("staying silent", zap.Stringer("invocation", req.InvocationID))
			return nil, longRunning, transport.ErrSilence
		case roll < silentRate+failRate:
			return nil, longRunning, fmt.Errorf("method %q failed upstream", req.Method)
		default:
			result := map[string]any{
				"method": req.Method,
				"echo":   json.RawMessage(req.Params),
				"served": time.Now().UTC().Format(time.RFC3339),
			}
			return result, longRunning, nil
		}
	}

	srv := transport.NewServer(log, handler)
	addr := resolveAddr(ctx, app)
	log.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, srv)
}

// serveMetrics registers the future's Prometheus collectors and exposes
// them on a dedicated listener, separate from the demo transport's own
// address, the same way the teacher runs its Prometheus service on its own
// configured address alongside the RPC/consensus listeners.
func serveMetrics(log *zap.Logger, addr string) {
	opfuture.NewMetrics("opfuture_demo")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("serving prometheus metrics", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}
