// Package config carries the YAML-configurable settings for an
// opfuture-demo node: how invocations are timed, how the continuation
// executor pool is sized, and the ambient logging/metrics settings around
// them.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCallTimeout is used for an invocation that doesn't specify its
	// own call timeout.
	DefaultCallTimeout = 15 * time.Second
	// DefaultResponseGrace is the liveness oracle's default grace period.
	DefaultResponseGrace = 5 * time.Second
	// DefaultExecutorPoolSize bounds concurrent continuation submissions.
	DefaultExecutorPoolSize = 64
	// DefaultDiagnosticCacheSize bounds the registry's redundant-completion
	// diagnostic cache.
	DefaultDiagnosticCacheSize = 256
)

// Config is the top-level configuration for the demo node.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// ApplicationConfiguration holds the settings specific to this node.
type ApplicationConfiguration struct {
	// Address is the demo transport's listen/dial address.
	Address string `yaml:"Address"`

	CallTimeout         time.Duration `yaml:"CallTimeout"`
	ResponseGrace       time.Duration `yaml:"ResponseGrace"`
	ExecutorPoolSize    int           `yaml:"ExecutorPoolSize"`
	DiagnosticCacheSize int           `yaml:"DiagnosticCacheSize"`

	Logger     Logger     `yaml:"Logger"`
	Prometheus Prometheus `yaml:"Prometheus"`
}

// Prometheus controls the metrics HTTP endpoint.
type Prometheus struct {
	Enabled bool   `yaml:"Enabled"`
	Address string `yaml:"Address"`
}

// Validate rejects a Prometheus block that's enabled without an address.
func (p Prometheus) Validate() error {
	if p.Enabled && p.Address == "" {
		return errors.New("prometheus: Address is required when Enabled is true")
	}
	return nil
}

// Validate applies defaults and rejects out-of-range settings. Independent
// sections are validated separately and their errors combined with
// multierr, so a misconfigured Logger and a misconfigured Prometheus block
// are both reported in one pass instead of one at a time across repeated
// fix-and-reload cycles.
func (c *Config) Validate() error {
	a := &c.ApplicationConfiguration
	if a.CallTimeout <= 0 {
		a.CallTimeout = DefaultCallTimeout
	}
	if a.ResponseGrace <= 0 {
		a.ResponseGrace = DefaultResponseGrace
	}
	if a.ExecutorPoolSize <= 0 {
		a.ExecutorPoolSize = DefaultExecutorPoolSize
	}
	if a.DiagnosticCacheSize <= 0 {
		a.DiagnosticCacheSize = DefaultDiagnosticCacheSize
	}

	var err error
	err = multierr.Append(err, a.Logger.Validate())
	err = multierr.Append(err, a.Prometheus.Validate())
	return err
}

// Load reads and validates a Config from path.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "unable to load config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read config")
	}

	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "problem unmarshaling config YAML data")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
