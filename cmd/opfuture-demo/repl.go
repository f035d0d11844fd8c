package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli"
)

func newReplCommand() cli.Command {
	return cli.Command{
		Name:      "repl",
		Usage:     "Interactively dispatch invocations against a running demo server",
		UsageText: "opfuture-demo repl [--config path] --addr ws://host:port",
		Action:    runRepl,
		Flags: []cli.Flag{
			configFlag,
			cli.StringFlag{Name: "addr", Value: "ws://127.0.0.1:4010", Usage: "demo server websocket address"},
			cli.DurationFlag{Name: "timeout", Usage: "call timeout applied to every invocation; defaults to the config's CallTimeout"},
		},
	}
}

func runRepl(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	app := cfg.ApplicationConfiguration
	if app.Logger.LogLevel == "" {
		app.Logger.LogLevel = "warn"
	}

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

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "opfuture> ",
		HistoryFile: "",
	})
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer rl.Close() //nolint:errcheck

	timeout := app.CallTimeout
	if ctx.IsSet("timeout") {
		timeout = ctx.Duration("timeout")
	}

	fmt.Println("enter '<method> [json-params]', or 'exit'")
	for {
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			return nil
		}

		method, params, _ := strings.Cut(line, " ")
		if params == "" {
			params = "{}"
		}

		value, err := d.dispatch(method, params, timeout)
		if err != nil {
			fmt.Printf("error: %s\n", err)
			continue
		}
		fmt.Printf("result: %#v\n", value)
	}
}
