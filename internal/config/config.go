// Package config loads dev server settings from flags, environment and an
// optional config file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/bundler"
)

// EnvPrefix prefixes every environment override, e.g. PLUGIN_DEVSERVER_ADDR.
const EnvPrefix = "PLUGIN_DEVSERVER"

// Config is the effective dev server configuration.
type Config struct {
	PluginsDir        string        `mapstructure:"plugins_dir" yaml:"plugins_dir"`
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	Debounce          time.Duration `mapstructure:"debounce" yaml:"debounce"`
	MaxParallelBuilds int           `mapstructure:"max_parallel_builds" yaml:"max_parallel_builds"`
	ManifestFile      string        `mapstructure:"manifest_file" yaml:"manifest_file"`
	EntryPoints       []string      `mapstructure:"entry_points" yaml:"entry_points"`
	RescanSchedule    string        `mapstructure:"rescan_schedule" yaml:"rescan_schedule"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	BuildLogSize      int           `mapstructure:"build_log_size" yaml:"build_log_size"`

	Bundler BundlerConfig `mapstructure:"bundler" yaml:"bundler"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	CORS    CORSConfig    `mapstructure:"cors" yaml:"cors"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// BundlerConfig holds esbuild options. Defines keys are lowercased by viper,
// so stick to lower-case identifiers.
type BundlerConfig struct {
	Target     string            `mapstructure:"target" yaml:"target"`
	Externals  []string          `mapstructure:"externals" yaml:"externals"`
	GlobalName string            `mapstructure:"global_name" yaml:"global_name"`
	Sourcemap  bool              `mapstructure:"sourcemap" yaml:"sourcemap"`
	Defines    map[string]string `mapstructure:"defines" yaml:"defines,omitempty"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Channel string `mapstructure:"channel" yaml:"channel"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	bo := bundler.DefaultOptions()

	v.SetDefault("plugins_dir", "./plugins")
	v.SetDefault("addr", ":3100")
	v.SetDefault("debounce", 300*time.Millisecond)
	v.SetDefault("max_parallel_builds", 4)
	v.SetDefault("manifest_file", "manifest.json")
	v.SetDefault("entry_points", []string{"src/index.tsx", "src/index.ts", "src/index.jsx", "src/index.js"})
	v.SetDefault("rescan_schedule", "")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("build_log_size", 500)
	v.SetDefault("bundler.target", bo.Target)
	v.SetDefault("bundler.externals", bo.Externals)
	v.SetDefault("bundler.global_name", bo.GlobalName)
	v.SetDefault("bundler.sourcemap", bo.Sourcemap)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "plugin-devserver:events")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment binding.
// configFile may be empty, in which case devserver.yaml is looked up in the
// working directory and its absence is not an error.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("devserver")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.PluginsDir == "" {
		return fmt.Errorf("plugins_dir must be set")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.MaxParallelBuilds <= 0 {
		return fmt.Errorf("max_parallel_builds must be positive, got %d", c.MaxParallelBuilds)
	}
	if err := c.BundlerOptions().Validate(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// BundlerOptions converts the bundler section.
func (c *Config) BundlerOptions() bundler.Options {
	return bundler.Options{
		Target:     c.Bundler.Target,
		Externals:  c.Bundler.Externals,
		GlobalName: c.Bundler.GlobalName,
		Sourcemap:  c.Bundler.Sourcemap,
		Defines:    c.Bundler.Defines,
	}
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger builds the process logger described by c.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
