package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/steamfam/pkg/errors"
)

// applyEnv overrides cfg with STEAMFAM_* variables that are set.
func applyEnv(cfg *Config) error {
	envStr("IDS_FILE", &cfg.IDsFile)
	envStr("FORMAT", &cfg.Output.Format)
	envStr("OUTPUT", &cfg.Output.Path)
	envStr("SQLITE", &cfg.Output.SQLite)
	envStr("MONGO_URI", &cfg.Output.MongoURI)
	envStr("MONGO_DB", &cfg.Output.MongoDB)
	envStr("CACHE_DIR", &cfg.Cache.Dir)
	envStr("REDIS_URL", &cfg.Cache.RedisURL)
	envStr("ADDR", &cfg.Serve.Addr)

	for key, dst := range map[string]*bool{
		"VERBOSE":      &cfg.Verbose,
		"FAST":         &cfg.Run.Fast,
		"REVIEWS":      &cfg.Run.Reviews,
		"RELEASE_SIZE": &cfg.Run.ReleaseSize,
		"LAST_UPDATE":  &cfg.Run.LastUpdate,
	} {
		if err := envBool(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*int{
		"WORKERS":   &cfg.Run.Workers,
		"DAY_RANGE": &cfg.Run.DayRange,
	} {
		if err := envInt(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]**Duration{
		"THROTTLE_STORE":     &cfg.Throttle.Store,
		"THROTTLE_COMMUNITY": &cfg.Throttle.Community,
		"THROTTLE_API":       &cfg.Throttle.API,
		"THROTTLE_JITTER":    &cfg.Throttle.Jitter,
	} {
		if _, ok := lookup(key); !ok {
			continue
		}
		if *dst == nil {
			*dst = new(Duration)
		}
		if err := envDuration(key, *dst); err != nil {
			return err
		}
	}
	return envDuration("CACHE_TTL", &cfg.Cache.TTL)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envStr(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidConfig, "%s%s: not an integer: %q", EnvPrefix, key, v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "y", "on":
			b = true
		case "no", "n", "off":
			b = false
		default:
			return errors.New(errors.ErrCodeInvalidConfig, "%s%s: not a boolean: %q", EnvPrefix, key, v)
		}
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *Duration) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidConfig, "%s%s: not a duration: %q", EnvPrefix, key, v)
	}
	dst.Duration = d
	return nil
}
