package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, configFile string) *Config {
	t.Helper()
	v, err := New(configFile)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t, "")

	assert.Equal(t, "./plugins", cfg.PluginsDir)
	assert.Equal(t, ":3100", cfg.Addr)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 4, cfg.MaxParallelBuilds)
	assert.Equal(t, "manifest.json", cfg.ManifestFile)
	assert.Equal(t, []string{"src/index.tsx", "src/index.ts", "src/index.jsx", "src/index.js"}, cfg.EntryPoints)
	assert.Empty(t, cfg.RescanSchedule)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "es2020", cfg.Bundler.Target)
	assert.Equal(t, []string{"react", "react-dom", "react/jsx-runtime"}, cfg.Bundler.Externals)
	assert.True(t, cfg.Bundler.Sourcemap)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PLUGIN_DEVSERVER_ADDR", "127.0.0.1:4000")
	t.Setenv("PLUGIN_DEVSERVER_DEBOUNCE", "75ms")
	t.Setenv("PLUGIN_DEVSERVER_BUNDLER_TARGET", "es2022")
	t.Setenv("PLUGIN_DEVSERVER_REDIS_URL", "redis://localhost:6379/0")

	cfg := load(t, "")
	assert.Equal(t, "127.0.0.1:4000", cfg.Addr)
	assert.Equal(t, 75*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "es2022", cfg.Bundler.Target)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plugins_dir: /srv/plugins
debounce: 1s
max_parallel_builds: 2
rescan_schedule: "@every 30s"
bundler:
  target: esnext
  defines:
    __debug__: "true"
log:
  level: debug
  format: json
`), 0o644))

	cfg := load(t, path)
	assert.Equal(t, "/srv/plugins", cfg.PluginsDir)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, 2, cfg.MaxParallelBuilds)
	assert.Equal(t, "@every 30s", cfg.RescanSchedule)
	assert.Equal(t, "esnext", cfg.Bundler.Target)
	assert.Equal(t, map[string]string{"__debug__": "true"}, cfg.BundlerOptions().Defines)
	assert.Equal(t, ":3100", cfg.Addr, "unset keys keep their defaults")

	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"empty plugins dir", "plugins_dir", ""},
		{"zero debounce", "debounce", "0s"},
		{"negative parallelism", "max_parallel_builds", -1},
		{"unknown target", "bundler.target", "es1999"},
		{"unknown log level", "log.level", "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
