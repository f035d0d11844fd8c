package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func newInvokeCommand() cli.Command {
	return cli.Command{
		Name:      "invoke",
		Usage:     "Dispatch a single invocation against a running demo server and await its result",
		UsageText: "opfuture-demo invoke [--config path] --addr ws://host:port --method name [--params json] [--timeout dur]",
		Action:    runInvoke,
		Flags: []cli.Flag{
			configFlag,
			cli.StringFlag{Name: "addr", Value: "ws://127.0.0.1:4010", Usage: "demo server websocket address"},
			cli.StringFlag{Name: "method", Value: "ping", Usage: "method name to dispatch"},
			cli.StringFlag{Name: "params", Value: "{}", Usage: "JSON-encoded params"},
			cli.DurationFlag{Name: "timeout", Usage: "call timeout, also sizes the long-poll window; defaults to the config's CallTimeout"},
		},
	}
}

func runInvoke(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	app := cfg.ApplicationConfiguration

	log, err := app.Logger.Build()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer log.Sync() //nolint:errcheck

	d, err := newDispatcher(resolveAddr(ctx, app), log, app)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer d.Close() //nolint:errcheck

	timeout := app.CallTimeout
	if ctx.IsSet("timeout") {
		timeout = ctx.Duration("timeout")
	}

	value, callErr := d.dispatch(ctx.String("method"), ctx.String("params"), timeout)

	fmt.Printf("result: %#v\n", value)
	if callErr != nil {
		return cli.NewExitError(callErr.Error(), 1)
	}
	return nil
}
