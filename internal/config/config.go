// Package config loads steamfam settings.
//
// Settings are layered, later layers winning: built-in defaults, the TOML
// config file, a .env file in the working directory, STEAMFAM_* environment
// variables, and finally command-line flags (applied by the CLI).
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/steamfam/pkg/cache"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "STEAMFAM_"

// DefaultIDsFile is the account list used when none is given.
const DefaultIDsFile = "ids.txt"

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Config is the full configuration.
type Config struct {
	IDsFile  string         `toml:"ids_file"`
	Verbose  bool           `toml:"verbose"`
	Run      RunConfig      `toml:"run"`
	Throttle ThrottleConfig `toml:"throttle"`
	Output   OutputConfig   `toml:"output"`
	Cache    CacheConfig    `toml:"cache"`
	Serve    ServeConfig    `toml:"serve"`
}

// RunConfig holds pipeline settings. Zero Workers and DayRange select the
// mode's preset.
type RunConfig struct {
	Fast        bool `toml:"fast"`
	Workers     int  `toml:"workers"`
	DayRange    int  `toml:"day_range"`
	Reviews     bool `toml:"reviews"`
	ReleaseSize bool `toml:"release_size"`
	LastUpdate  bool `toml:"last_update"`
}

// ThrottleConfig overrides per-host request spacing. Unset values keep the
// mode's preset; an explicit zero disables spacing for that host.
type ThrottleConfig struct {
	Store     *Duration `toml:"store,omitempty"`
	Community *Duration `toml:"community,omitempty"`
	API       *Duration `toml:"api,omitempty"`
	Jitter    *Duration `toml:"jitter,omitempty"`
}

// OutputConfig selects result destinations.
type OutputConfig struct {
	Format   string `toml:"format"`
	Path     string `toml:"path"`
	SQLite   string `toml:"sqlite"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// CacheConfig enables the HTTP response cache. With neither Dir nor
// RedisURL set, responses are not cached.
type CacheConfig struct {
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := parseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// parseDuration accepts Go duration strings and bare integers as
// milliseconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Default returns the built-in configuration: safe mode with every
// feature on and CSV output.
func Default() Config {
	return Config{
		IDsFile: DefaultIDsFile,
		Run: RunConfig{
			Reviews:     true,
			ReleaseSize: true,
			LastUpdate:  true,
		},
		Output: OutputConfig{Format: FormatCSV},
		Cache:  CacheConfig{TTL: Duration{cache.DefaultTTL}},
		Serve:  ServeConfig{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/steamfam/config.toml, falling back
// to the platform's user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "steamfam.toml"
	}
	return filepath.Join(dir, "steamfam", "config.toml")
}

// DefaultCacheDir returns the directory used by --cache when no directory
// is configured.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".steamfam-cache"
	}
	return filepath.Join(dir, "steamfam")
}

// Load builds the configuration. An explicit path must exist; with an
// empty path the default location is used when present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	} else if explicit {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
	}

	loadDotEnv()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// loadDotEnv loads ./.env when present. Variables already set in the
// environment are not overridden.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Output.Format {
	case FormatCSV, FormatJSON:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "output format must be csv or json, got %q", c.Output.Format)
	}
	if c.Run.Workers < 0 || c.Run.Workers > pipeline.MaxWorkers {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must be between 1 and %d", pipeline.MaxWorkers)
	}
	if c.Run.DayRange < 0 || c.Run.DayRange > pipeline.MaxDayRange {
		return errors.New(errors.ErrCodeInvalidConfig, "day range must be between 1 and %d", pipeline.MaxDayRange)
	}
	for name, d := range map[string]*Duration{
		"throttle.store": c.Throttle.Store, "throttle.community": c.Throttle.Community,
		"throttle.api": c.Throttle.API, "throttle.jitter": c.Throttle.Jitter, "cache.ttl": &c.Cache.TTL,
	} {
		if d != nil && d.Duration < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s cannot be negative", name)
		}
	}
	if u := c.Cache.RedisURL; u != "" && !strings.HasPrefix(u, "redis://") && !strings.HasPrefix(u, "rediss://") {
		return errors.New(errors.ErrCodeInvalidConfig, "redis url must start with redis:// or rediss://")
	}
	return nil
}

// PipelineOptions converts the run and throttle settings. Throttle values
// that are not set fall back to the mode's preset.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		Fast:            c.Run.Fast,
		Workers:         c.Run.Workers,
		DayRange:        c.Run.DayRange,
		SkipReviews:     !c.Run.Reviews,
		SkipReleaseSize: !c.Run.ReleaseSize,
		SkipLastUpdate:  !c.Run.LastUpdate,
	}
	t := c.Throttle
	if t.Jitter != nil {
		j := t.Jitter.Duration
		opts.Jitter = &j
	}
	if t.Store == nil && t.Community == nil && t.API == nil {
		return opts
	}
	overrides := map[httputil.HostClass]*Duration{
		httputil.HostStore:     t.Store,
		httputil.HostCommunity: t.Community,
		httputil.HostAPI:       t.API,
	}
	base := httputil.SafeDelays
	if c.Run.Fast {
		base = httputil.FastDelays
	}
	delays := make(httputil.Delays, len(base))
	for k, v := range base {
		delays[k] = v
	}
	for host, d := range overrides {
		if d != nil {
			delays[host] = d.Duration
		}
	}
	opts.Delays = delays
	return opts
}
