package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestNew_Defaults(t *testing.T) {
	c := New(WithoutEnv())

	if got := c.Log().Level; got != "info" {
		t.Errorf("Log().Level = %q, want 'info'", got)
	}
	editing := c.Editing()
	if editing.WordBoundaries != DefaultWordBoundaries {
		t.Errorf("WordBoundaries = %q, want %q", editing.WordBoundaries, DefaultWordBoundaries)
	}
	if editing.DefaultUnit != "character" {
		t.Errorf("DefaultUnit = %q, want 'character'", editing.DefaultUnit)
	}
	if editing.HistorySize != DefaultHistorySize {
		t.Errorf("HistorySize = %d, want %d", editing.HistorySize, DefaultHistorySize)
	}
	script := c.Script()
	if script.CallLimit != DefaultCallLimit || script.Timeout != DefaultScriptTimeout {
		t.Errorf("Script() = %+v, want defaults", script)
	}
	if errs := c.Errors(); len(errs) != 0 {
		t.Errorf("Errors() = %v, want none", errs)
	}
}

func TestConfig_LoadFile(t *testing.T) {
	path := writeFile(t, "livedoc.toml", `
[log]
level = "debug"

[schema]
path = "schema.yaml"

[editing]
default_unit = "word"
history_size = 10

[script]
call_limit = 50
timeout = "250ms"
`)

	c := New(WithFile(path), WithoutEnv())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := c.Log().Level; got != "debug" {
		t.Errorf("Log().Level = %q, want 'debug'", got)
	}
	if got := c.Log().Format; got != "text" {
		t.Errorf("Log().Format = %q, want the default 'text'", got)
	}
	if got := c.Schema().Path; got != "schema.yaml" {
		t.Errorf("Schema().Path = %q, want 'schema.yaml'", got)
	}
	if got := c.Editing(); got.DefaultUnit != "word" || got.HistorySize != 10 {
		t.Errorf("Editing() = %+v", got)
	}
	if got := c.Script(); got.CallLimit != 50 || got.Timeout != 250*time.Millisecond {
		t.Errorf("Script() = %+v", got)
	}
}

func TestConfig_LoadYAMLAndJSON(t *testing.T) {
	yamlPath := writeFile(t, "livedoc.yml", "editing:\n  history_size: 7\n")
	jsonPath := writeFile(t, "livedoc.json", `{"editing": {"history_size": 7}}`)

	for _, path := range []string{yamlPath, jsonPath} {
		c := New(WithFile(path), WithoutEnv())
		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("Load(%s) error = %v", path, err)
		}
		if got := c.Editing().HistorySize; got != 7 {
			t.Errorf("%s: HistorySize = %d, want 7", filepath.Ext(path), got)
		}
	}
}

func TestConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "livedoc.toml", "[log]\nlevel = \"warn\"\n")
	t.Setenv("LIVEDOC_LOG_LEVEL", "error")
	t.Setenv("LIVEDOC_WORD_BOUNDARIES", " ")

	c := New(WithFile(path))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := c.Log().Level; got != "error" {
		t.Errorf("Log().Level = %q, want 'error'", got)
	}
	if got := c.Editing().WordBoundaries; got != " " {
		t.Errorf("WordBoundaries = %q, want a single space", got)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	c := New(WithFile(filepath.Join(t.TempDir(), "none.toml")), WithoutEnv())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Log().Level; got != "info" {
		t.Errorf("Log().Level = %q, want 'info'", got)
	}
}

func TestConfig_LoadValidation(t *testing.T) {
	path := writeFile(t, "livedoc.toml", `
[log]
level = "loud"

[editing]
history_size = 0
`)

	c := New(WithFile(path), WithoutEnv())
	err := c.Load(context.Background())
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Load() error = %v, want ErrValidationFailed", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load() error = %v, want *ValidationError", err)
	}

	// The previous settings are kept.
	if got := c.Log().Level; got != "info" {
		t.Errorf("Log().Level = %q, want 'info'", got)
	}
}

func TestConfig_TypeErrors(t *testing.T) {
	c := New(WithoutEnv())
	if err := c.Set("log.level", 3); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := c.GetString("log.level"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("GetString() error = %v, want ErrTypeMismatch", err)
	}
	if _, err := c.GetString("log.missing"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("GetString() error = %v, want ErrSettingNotFound", err)
	}

	if got := c.Log().Level; got != "info" {
		t.Errorf("Log().Level = %q, want the default", got)
	}
	errs := c.Errors()
	if _, ok := errs["log.level"]; !ok || len(errs) != 1 {
		t.Errorf("Errors() = %v, want one error for log.level", errs)
	}
}

func TestConfig_GetIntAndDuration(t *testing.T) {
	c := New(WithoutEnv())

	tests := []struct {
		value   any
		want    int
		wantErr bool
	}{
		{3, 3, false},
		{int64(4), 4, false},
		{float64(5), 5, false},
		{5.5, 0, true},
		{"6", 0, true},
	}
	for _, tt := range tests {
		if err := c.Set("editing.history_size", tt.value); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := c.GetInt("editing.history_size")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("GetInt(%v) = %d, %v; want %d, err %v", tt.value, got, err, tt.want, tt.wantErr)
		}
	}

	if err := c.Set("script.timeout", "1m"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if d, err := c.GetDuration("script.timeout"); err != nil || d != time.Minute {
		t.Errorf("GetDuration() = %v, %v; want 1m", d, err)
	}
	if err := c.Set("script.timeout", "soon"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := c.GetDuration("script.timeout"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("GetDuration() error = %v, want ErrTypeMismatch", err)
	}

	if err := c.Set("", 1); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidPath", err)
	}
}
