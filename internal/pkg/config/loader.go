// Package config provides fail-open environment loading for components that
// must come up even when misconfigured. An invalid value never aborts
// startup: the default takes its place and the caller gets a warning to log
// and count.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadResult reports how one env-backed value was resolved. When Fallback is
// set the default replaced an invalid setting and Warning says why.
type LoadResult struct {
	Warning  string
	Fallback bool
}

func fallback(key, raw string, reason error, def any) LoadResult {
	return LoadResult{
		Warning:  fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", key, raw, reason, def),
		Fallback: true,
	}
}

// LoadEnv reads a string variable, validating it when a validator is given.
// Unset or empty variables resolve to the default without a warning.
func LoadEnv(key, def string, validate func(string) error) (string, LoadResult) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, LoadResult{}
	}
	if validate != nil {
		if err := validate(raw); err != nil {
			return def, fallback(key, raw, err, def)
		}
	}
	return raw, LoadResult{}
}

// LoadEnvDuration reads a Go duration string ("30m", "1h30m").
func LoadEnvDuration(key string, def time.Duration, validate func(time.Duration) error) (time.Duration, LoadResult) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, LoadResult{}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fallback(key, raw, err, def)
	}
	if validate != nil {
		if err := validate(d); err != nil {
			return def, fallback(key, raw, err, def)
		}
	}
	return d, LoadResult{}
}

// LoadEnvInt reads a base-10 integer.
func LoadEnvInt(key string, def int, validate func(int) error) (int, LoadResult) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, LoadResult{}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fallback(key, raw, fmt.Errorf("not an integer"), def)
	}
	if validate != nil {
		if err := validate(n); err != nil {
			return def, fallback(key, raw, err, def)
		}
	}
	return n, LoadResult{}
}
