package config

import (
	"log/slog"
	"testing"
)

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := (LogConfig{Level: tt.level}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   any
		wantErr bool
	}{
		{"unit", "editing.default_unit", "codePoint", false},
		{"unknown unit", "editing.default_unit", "line", true},
		{"json format", "log.format", "json", false},
		{"unknown format", "log.format", "xml", true},
		{"history from json", "editing.history_size", float64(3), false},
		{"negative history", "editing.history_size", int64(-1), true},
		{"unlimited calls", "script.call_limit", 0, false},
		{"negative calls", "script.call_limit", -5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := defaultConfig()
			if err := setPath(m, tt.path, tt.value); err != nil {
				t.Fatalf("setPath() error = %v", err)
			}
			if err := validate(m); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
