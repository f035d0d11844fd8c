package main

import (
	"github.com/nspcc-dev/opfuture/config"
	"github.com/urfave/cli"
)

// configFlag is shared by every subcommand: a YAML file populating
// ApplicationConfiguration. Per-command flags (--addr, --timeout, ...)
// still take precedence when explicitly set, the same override order the
// teacher's own CLI applies between config file and flags.
var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "path to a YAML config file (see config.Config)",
}

// loadConfig reads the file named by --config, or returns a zero-value
// Config with Validate's defaults applied when the flag is unset, so every
// subcommand runs against the same CallTimeout/ResponseGrace/
// ExecutorPoolSize/DiagnosticCacheSize whether or not a file is supplied.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.String("config")
	if path == "" {
		cfg := config.Config{}
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

// resolveAddr prefers an explicitly passed --addr flag over the config
// file's ApplicationConfiguration.Address, falling back to the flag's own
// default otherwise.
func resolveAddr(ctx *cli.Context, app config.ApplicationConfiguration) string {
	if !ctx.IsSet("addr") && app.Address != "" {
		return app.Address
	}
	return ctx.String("addr")
}
