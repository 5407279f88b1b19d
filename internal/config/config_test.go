package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/httputil"
)

// isolate points the default config location and working directory at
// empty temp dirs so the developer's own files never leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.IDsFile != DefaultIDsFile || cfg.Output.Format != FormatCSV {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Run.Reviews || !cfg.Run.ReleaseSize || !cfg.Run.LastUpdate {
		t.Error("all features should default on")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "steamfam.toml")
	content := `
ids_file = "family.txt"

[run]
fast = true
workers = 9
reviews = false

[throttle]
store = "900ms"
jitter = "50"

[output]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STEAMFAM_WORKERS", "3")
	t.Setenv("STEAMFAM_LAST_UPDATE", "off")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.IDsFile != "family.txt" || !cfg.Run.Fast || cfg.Output.Format != FormatJSON {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Run.Workers != 3 {
		t.Errorf("Workers = %d, want env override 3", cfg.Run.Workers)
	}
	if cfg.Run.Reviews || cfg.Run.LastUpdate || !cfg.Run.ReleaseSize {
		t.Errorf("toggles = %+v", cfg.Run)
	}
	if cfg.Throttle.Store == nil || cfg.Throttle.Store.Duration != 900*time.Millisecond ||
		cfg.Throttle.Jitter == nil || cfg.Throttle.Jitter.Duration != 50*time.Millisecond {
		t.Errorf("throttle = %+v", cfg.Throttle)
	}

	opts := cfg.PipelineOptions()
	if !opts.SkipReviews || opts.SkipReleaseSize || !opts.SkipLastUpdate {
		t.Errorf("options toggles = %+v", opts)
	}
	if opts.Delays[httputil.HostStore] != 900*time.Millisecond {
		t.Errorf("store delay = %v", opts.Delays[httputil.HostStore])
	}
	if opts.Delays[httputil.HostCommunity] != httputil.FastDelays[httputil.HostCommunity] {
		t.Errorf("community delay should keep the fast preset, got %v", opts.Delays[httputil.HostCommunity])
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("STEAMFAM_DAY_RANGE=14\nSTEAMFAM_IDS_FILE=from-dotenv.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STEAMFAM_IDS_FILE", "from-env.txt")
	// godotenv sets variables in the process environment; register them
	// so they are restored after the test.
	t.Setenv("STEAMFAM_DAY_RANGE", "")
	os.Unsetenv("STEAMFAM_DAY_RANGE")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Run.DayRange != 14 {
		t.Errorf("DayRange = %d, want 14 from .env", cfg.Run.DayRange)
	}
	if cfg.IDsFile != "from-env.txt" {
		t.Errorf("IDsFile = %q, real environment should win over .env", cfg.IDsFile)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit file: %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[run\nworkers = "), 0o644)
	if _, err := Load(bad); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("malformed file: %v", err)
	}

	t.Setenv("STEAMFAM_WORKERS", "many")
	if _, err := Load(""); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad env int: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Output.Format = "xml" }},
		{"workers", func(c *Config) { c.Run.Workers = 1000 }},
		{"day range", func(c *Config) { c.Run.DayRange = -1 }},
		{"negative delay", func(c *Config) { c.Throttle.API = &Duration{-time.Second} }},
		{"redis scheme", func(c *Config) { c.Cache.RedisURL = "http://localhost:6379" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() = %v, want INVALID_CONFIG", err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")
	cfg := Default()
	cfg.Run.Fast = true
	cfg.Run.ReleaseSize = false
	cfg.Throttle.Community = &Duration{300 * time.Millisecond}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !got.Run.Fast || got.Run.ReleaseSize || got.Throttle.Community == nil || got.Throttle.Community.Duration != 300*time.Millisecond || got.Throttle.Store != nil {
		t.Errorf("round trip = %+v", got)
	}
}

func TestPipelineOptionsPresetDelays(t *testing.T) {
	opts := Default().PipelineOptions()
	if opts.Delays != nil {
		t.Errorf("Delays = %v, want nil so the pipeline picks its preset", opts.Delays)
	}
	if opts.Jitter != nil {
		t.Errorf("Jitter = %v, want nil so the pipeline picks its preset", *opts.Jitter)
	}
}

func TestPipelineOptionsExplicitZeroThrottle(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "steamfam.toml")
	content := "[throttle]\njitter = \"0ms\"\nstore = \"0ms\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STEAMFAM_THROTTLE_API", "0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	opts := cfg.PipelineOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if *opts.Jitter != 0 {
		t.Errorf("jitter = %v, want 0", *opts.Jitter)
	}
	want := httputil.Delays{
		httputil.HostStore:     0,
		httputil.HostCommunity: httputil.SafeDelays[httputil.HostCommunity],
		httputil.HostAPI:       0,
	}
	for host, d := range want {
		if opts.Delays[host] != d {
			t.Errorf("delay[%s] = %v, want %v", host, opts.Delays[host], d)
		}
	}
}
