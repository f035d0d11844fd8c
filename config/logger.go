package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger contains the demo node's logger configuration.
type Logger struct {
	LogEncoding string `yaml:"LogEncoding"`
	LogLevel    string `yaml:"LogLevel"`
	LogPath     string `yaml:"LogPath"`
}

// Validate returns an error if the Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogEncoding) > 0 && l.LogEncoding != "console" && l.LogEncoding != "json" {
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	if len(l.LogLevel) > 0 {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(l.LogLevel)); err != nil {
			return fmt.Errorf("invalid LogLevel: %s", l.LogLevel)
		}
	}
	return nil
}

// Build constructs a *zap.Logger from the configuration, the same way the
// teacher's pkg/consensus.getLogger builds one for the dbft module: a
// console development config by default, switching to a production JSON
// config when LogEncoding is "json".
func (l Logger) Build() (*zap.Logger, error) {
	var cc zap.Config
	if l.LogEncoding == "json" {
		cc = zap.NewProductionConfig()
	} else {
		cc = zap.NewDevelopmentConfig()
		cc.DisableCaller = true
		cc.DisableStacktrace = true
		cc.Encoding = "console"
	}
	if l.LogPath != "" {
		cc.OutputPaths = []string{l.LogPath}
	}
	if l.LogLevel != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(l.LogLevel)); err != nil {
			return nil, err
		}
		cc.Level = zap.NewAtomicLevelAt(lvl)
	}
	log, err := cc.Build()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("module", "opfuture")), nil
}
