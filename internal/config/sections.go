package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Defaults for settings that other packages mirror.
const (
	DefaultWordBoundaries = " ,.?!:;\"-()"
	DefaultHistorySize    = 1000
	DefaultCallLimit      = 100_000
	DefaultScriptTimeout  = 5 * time.Second
)

// LogConfig provides type-safe access to logging settings.
type LogConfig struct {
	// Level is the logging verbosity level ("debug", "info", "warn", "error").
	Level string

	// Format is the log format ("text", "json").
	Format string
}

// SlogLevel maps Level onto a slog level. Unknown levels mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SchemaConfig locates the schema definition file.
type SchemaConfig struct {
	// Path is a TOML or YAML schema file applied on top of the default
	// schema. Empty means the default schema alone.
	Path string
}

// EditingConfig holds settings for the editing algorithms.
type EditingConfig struct {
	// WordBoundaries are the characters that end a word for selection
	// modification by word.
	WordBoundaries string

	// DefaultUnit is the unit used when a script does not name one
	// ("character", "codePoint", "word").
	DefaultUnit string

	// HistorySize is the number of operations the document history keeps.
	HistorySize int
}

// ScriptConfig limits Lua script runs.
type ScriptConfig struct {
	// CallLimit caps the calls a script makes into livedoc. Zero means
	// no limit.
	CallLimit int

	// Timeout bounds a single script run.
	Timeout time.Duration
}

// Log returns type-safe access to logging settings.
func (c *Config) Log() LogConfig {
	return LogConfig{
		Level:  c.getStringOr("log.level", "info"),
		Format: c.getStringOr("log.format", "text"),
	}
}

// Schema returns the schema settings.
func (c *Config) Schema() SchemaConfig {
	return SchemaConfig{
		Path: c.getStringOr("schema.path", ""),
	}
}

// Editing returns the editing settings.
func (c *Config) Editing() EditingConfig {
	return EditingConfig{
		WordBoundaries: c.getStringOr("editing.word_boundaries", DefaultWordBoundaries),
		DefaultUnit:    c.getStringOr("editing.default_unit", "character"),
		HistorySize:    c.getIntOr("editing.history_size", DefaultHistorySize),
	}
}

// Script returns the script runner settings.
func (c *Config) Script() ScriptConfig {
	return ScriptConfig{
		CallLimit: c.getIntOr("script.call_limit", DefaultCallLimit),
		Timeout:   c.getDurationOr("script.timeout", DefaultScriptTimeout),
	}
}

// These methods only return the default for ErrSettingNotFound silently.
// Type errors are recorded and also return the default, so a bad value
// never breaks a caller but stays visible through Errors.

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	v, err := c.GetDuration(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}
