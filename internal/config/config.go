// Package config loads ldesmirror settings from a YAML file, LDESMIRROR_*
// environment variables and command-line flags, in increasing precedence,
// and validates the result against an embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LDESMIRROR"

// Config is the full set of ldesmirror settings.
type Config struct {
	// Source is the base URL of the remote log; the root lives at
	// Source+RootName.
	Source string `mapstructure:"source" json:"source"`

	// Mirror is the base URL of the mirror namespace.
	Mirror string `mapstructure:"mirror" json:"mirror"`

	RootName string `mapstructure:"root-name" json:"root-name"`

	// Database selects a local SQLite mirror. Empty means the mirror is
	// written over HTTP to Mirror.
	Database string `mapstructure:"database" json:"database"`

	// Endpoint is the listen address of the serve command.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	Concurrency  int           `mapstructure:"concurrency" json:"concurrency"`
	PollInterval time.Duration `mapstructure:"poll-interval" json:"poll-interval"`

	HTTP    HTTPConfig    `mapstructure:"http" json:"http"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`
}

// HTTPConfig tunes the LDP client.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
	RetryMax     int           `mapstructure:"retry-max" json:"retry-max"`
	RetryWaitMin time.Duration `mapstructure:"retry-wait-min" json:"retry-wait-min"`
	RetryWaitMax time.Duration `mapstructure:"retry-wait-max" json:"retry-wait-max"`
}

// LogConfig selects the log handler and, when File is set, its rotation.
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"`
	File       string `mapstructure:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb" json:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups" json:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days" json:"max-age-days"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// Default returns the settings used for every key not given explicitly.
// Source and Mirror have no default.
func Default() Config {
	return Config{
		RootName:     "root.ttl",
		Endpoint:     ":8080",
		Concurrency:  4,
		PollInterval: time.Minute,
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			RetryMax:     3,
			RetryWaitMin: 250 * time.Millisecond,
			RetryWaitMax: 2 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"source":       "source",
	"mirror":       "mirror",
	"root-name":    "root-name",
	"database":     "database",
	"endpoint":     "endpoint",
	"concurrency":  "concurrency",
	"interval":     "poll-interval",
	"metrics-addr": "metrics.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"log-file":     "log.file",
	"http-timeout": "http.timeout",
	"http-retries": "http.retry-max",
}

// Load reads path (if non-empty), the environment and any changed flag in
// flags (which may be nil) on top of Default, then validates the result.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	vip := viper.New()
	setDefaults(vip, Default())

	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	vip.AutomaticEnv()

	if path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := vip.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(vip *viper.Viper, d Config) {
	vip.SetDefault("source", d.Source)
	vip.SetDefault("mirror", d.Mirror)
	vip.SetDefault("root-name", d.RootName)
	vip.SetDefault("database", d.Database)
	vip.SetDefault("endpoint", d.Endpoint)
	vip.SetDefault("concurrency", d.Concurrency)
	vip.SetDefault("poll-interval", d.PollInterval)

	vip.SetDefault("http.timeout", d.HTTP.Timeout)
	vip.SetDefault("http.retry-max", d.HTTP.RetryMax)
	vip.SetDefault("http.retry-wait-min", d.HTTP.RetryWaitMin)
	vip.SetDefault("http.retry-wait-max", d.HTTP.RetryWaitMax)

	vip.SetDefault("log.level", d.Log.Level)
	vip.SetDefault("log.format", d.Log.Format)
	vip.SetDefault("log.file", d.Log.File)
	vip.SetDefault("log.max-size-mb", d.Log.MaxSizeMB)
	vip.SetDefault("log.max-backups", d.Log.MaxBackups)
	vip.SetDefault("log.max-age-days", d.Log.MaxAgeDays)
	vip.SetDefault("log.compress", d.Log.Compress)

	vip.SetDefault("metrics.addr", d.Metrics.Addr)
}

// Validate checks c against the embedded schema. Durations are checked as
// nanosecond counts.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.HTTP.RetryWaitMax < c.HTTP.RetryWaitMin {
		return fmt.Errorf("invalid config: http.retry-wait-max %s is below http.retry-wait-min %s",
			c.HTTP.RetryWaitMax, c.HTTP.RetryWaitMin)
	}
	return nil
}
