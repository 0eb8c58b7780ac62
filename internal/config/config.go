package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/livedoc/internal/config/loader"
)

// Config provides access to livedoc settings merged from built-in defaults,
// an optional configuration file and LIVEDOC_ environment variables, in
// that order of precedence.
type Config struct {
	mu sync.RWMutex

	fs        loader.FileSystem
	path      string
	envPrefix string
	useEnv    bool

	merged map[string]any

	// configErrors stores type errors found while reading typed sections.
	configErrors map[string]error
}

// Option configures a Config instance.
type Option func(*Config)

// WithFile sets the configuration file. The format follows the extension.
func WithFile(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithFileSystem replaces the OS file system.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

// WithEnvPrefix sets the prefix of environment overrides.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithoutEnv disables environment overrides.
func WithoutEnv() Option {
	return func(c *Config) {
		c.useEnv = false
	}
}

// New creates a Config holding the defaults. Call Load to read the file
// and the environment.
func New(opts ...Option) *Config {
	c := &Config{
		fs:           loader.DefaultFS(),
		envPrefix:    loader.DefaultEnvPrefix,
		useEnv:       true,
		merged:       defaultConfig(),
		configErrors: make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads configuration from all sources and validates the result.
// A missing file is not an error. On failure the previous settings stay.
func (c *Config) Load(_ context.Context) error {
	merged := defaultConfig()

	if c.path != "" {
		fileConfig, err := loader.NewFileLoaderWithFS(c.fs, c.path).Load()
		if err != nil {
			return fmt.Errorf("loading %s: %w", c.path, err)
		}
		merged = loader.DeepMerge(merged, fileConfig)
	}

	if c.useEnv {
		envConfig, err := loader.NewEnvLoader(c.envPrefix).Load()
		if err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, envConfig)
	}

	if err := validate(merged); err != nil {
		return err
	}

	c.mu.Lock()
	c.merged = merged
	c.configErrors = make(map[string]error)
	c.mu.Unlock()
	return nil
}

// Path returns the configuration file path, if any.
func (c *Config) Path() string {
	return c.path
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.merged, path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path. Floats are accepted
// when they hold a whole number, as JSON files decode every number so.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val == float64(int(val)) {
			return int(val), nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetDuration returns a duration at the given path. Strings are parsed
// with time.ParseDuration.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: "string"}
		}
		return d, nil
	}
	return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
}

// Set overrides a single setting in memory.
func (c *Config) Set(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return setPath(c.merged, path, value)
}

// Errors returns the type errors recorded while reading sections since the
// last Load.
func (c *Config) Errors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]error, len(c.configErrors))
	for k, v := range c.configErrors {
		out[k] = v
	}
	return out
}

func (c *Config) recordConfigError(path string, err error) {
	c.mu.Lock()
	c.configErrors[path] = err
	c.mu.Unlock()
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"schema": map[string]any{
			"path": "",
		},
		"editing": map[string]any{
			"word_boundaries": DefaultWordBoundaries,
			"default_unit":    "character",
			"history_size":    DefaultHistorySize,
		},
		"script": map[string]any{
			"call_limit": DefaultCallLimit,
			"timeout":    DefaultScriptTimeout,
		},
	}
}

// validate checks the settings whose values are closed sets or ranges.
func validate(m map[string]any) error {
	var errs []error
	check := func(path string, ok func(v any) bool, msg string) {
		v, found := getPath(m, path)
		if found && !ok(v) {
			errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
		}
	}
	oneOf := func(values ...string) func(any) bool {
		return func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			for _, allowed := range values {
				if strings.EqualFold(s, allowed) {
					return true
				}
			}
			return false
		}
	}

	check("log.level", oneOf("debug", "info", "warn", "error"), "must be debug, info, warn or error")
	check("log.format", oneOf("text", "json"), "must be text or json")
	check("editing.default_unit", oneOf("character", "codePoint", "word"), "must be character, codePoint or word")
	check("editing.history_size", func(v any) bool {
		n, ok := toInt(v)
		return ok && n > 0
	}, "must be a positive integer")
	check("script.call_limit", func(v any) bool {
		n, ok := toInt(v)
		return ok && n >= 0
	}, "must not be negative")

	return errors.Join(errs...)
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		return int(val), val == float64(int(val))
	}
	return 0, false
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}

	current := any(m)
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = cm[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// setPath sets a value in a nested map using a dot-separated path.
func setPath(m map[string]any, path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ErrInvalidPath
	}

	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return ErrInvalidPath
		}
		current = nextMap
	}

	current[parts[len(parts)-1]] = value
	return nil
}

// splitPath splits a dot-separated path into parts.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
