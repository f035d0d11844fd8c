package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/opfuture/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newTestContext(t *testing.T, set func(*flag.FlagSet)) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("flagSet", flag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("addr", "", "")
	if set != nil {
		set(fs)
	}
	return cli.NewContext(cli.NewApp(), fs, nil)
}

func TestLoadConfigDefaultsWithoutConfigFlag(t *testing.T) {
	ctx := newTestContext(t, nil)

	cfg, err := loadConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, config.DefaultCallTimeout, cfg.ApplicationConfiguration.CallTimeout)
	require.Equal(t, config.DefaultExecutorPoolSize, cfg.ApplicationConfiguration.ExecutorPoolSize)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opfuture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ApplicationConfiguration:
  CallTimeout: 30s
  Address: ":9999"
`), 0o600))

	ctx := newTestContext(t, func(fs *flag.FlagSet) {
		require.NoError(t, fs.Set("config", path))
	})

	cfg, err := loadConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "30s", cfg.ApplicationConfiguration.CallTimeout.String())
	require.Equal(t, ":9999", cfg.ApplicationConfiguration.Address)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	ctx := newTestContext(t, func(fs *flag.FlagSet) {
		require.NoError(t, fs.Set("config", filepath.Join(t.TempDir(), "missing.yaml")))
	})

	_, err := loadConfig(ctx)
	require.Error(t, err)
}

func TestResolveAddrPrefersExplicitFlag(t *testing.T) {
	ctx := newTestContext(t, func(fs *flag.FlagSet) {
		require.NoError(t, fs.Set("addr", ":1111"))
	})

	app := config.ApplicationConfiguration{Address: ":2222"}
	require.Equal(t, ":1111", resolveAddr(ctx, app))
}

func TestResolveAddrFallsBackToConfigAddress(t *testing.T) {
	ctx := newTestContext(t, nil)

	app := config.ApplicationConfiguration{Address: ":2222"}
	require.Equal(t, ":2222", resolveAddr(ctx, app))
}

func TestResolveAddrFallsBackToFlagDefaultWhenConfigEmpty(t *testing.T) {
	ctx := newTestContext(t, nil)

	require.Equal(t, "", resolveAddr(ctx, config.ApplicationConfiguration{}))
}
