package loader

import (
	"testing"
	"time"
)

// getByPath reads a nested value using a dot-separated path.
func getByPath(m map[string]any, path string) (any, bool) {
	current := any(m)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = cm[path[start:i]]
		if !ok {
			return nil, false
		}
		start = i + 1
	}
	return current, true
}

func TestEnvLoader_Load(t *testing.T) {
	t.Setenv("LIVEDOC_LOG_LEVEL", "debug")
	t.Setenv("LIVEDOC_SCHEMA", "/etc/livedoc/schema.toml")
	t.Setenv("LIVEDOC_EDITING_HISTORY_SIZE", "64")

	config, err := NewEnvLoader(DefaultEnvPrefix).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "log.level"); !ok || val != "debug" {
		t.Errorf("log.level = %v, want 'debug'", val)
	}
	if val, ok := getByPath(config, "schema.path"); !ok || val != "/etc/livedoc/schema.toml" {
		t.Errorf("schema.path = %v, want '/etc/livedoc/schema.toml'", val)
	}
	if val, ok := getByPath(config, "editing.history_size"); !ok || val != int64(64) {
		t.Errorf("editing.history_size = %v (%T), want 64", val, val)
	}
}

func TestEnvLoader_WordBoundariesAreLiteral(t *testing.T) {
	t.Setenv("LIVEDOC_WORD_BOUNDARIES", " .,1")

	config, err := NewEnvLoader(DefaultEnvPrefix).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, _ := getByPath(config, "editing.word_boundaries"); val != " .,1" {
		t.Errorf("editing.word_boundaries = %q, want %q", val, " .,1")
	}
}

func TestEnvLoader_CustomMapping(t *testing.T) {
	t.Setenv("LIVEDOC_UNIT", "word")

	l := NewEnvLoaderWithMapping(DefaultEnvPrefix, nil)
	l.AddMapping("LIVEDOC_UNIT", "editing.default_unit")
	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, _ := getByPath(config, "editing.default_unit"); val != "word" {
		t.Errorf("editing.default_unit = %v, want 'word'", val)
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader(DefaultEnvPrefix)

	tests := []struct {
		env      string
		expected string
	}{
		{"LIVEDOC_LOG_FORMAT", "log.format"},
		{"LIVEDOC_EDITING_DEFAULT_UNIT", "editing.default_unit"},
		{"LIVEDOC_SCRIPT_CALL_LIMIT", "script.call_limit"},
		{"LIVEDOC_SIMPLE", ""},
	}

	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.expected {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.expected)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"", ""},
		{"true", true},
		{"off", false},
		{"1", int64(1)},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"250ms", 250 * time.Millisecond},
		{"word", "word"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.expected {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.expected, tt.expected)
		}
	}

	list, ok := parseValue(`["a","b"]`).([]any)
	if !ok || len(list) != 2 {
		t.Errorf("parseValue(JSON array) = %v, want 2 elements", list)
	}
}
