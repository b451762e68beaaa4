package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "json format",
			config: &Config{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name:   "console format",
			config: &Config{Level: "debug", Format: "console", Output: "stderr"},
		},
		{
			name:   "unknown format falls back to json",
			config: &Config{Level: "warn", Format: "xml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			require.NoError(t, err)
			require.NotNil(t, l)
			require.NotNil(t, l.Logger)
		})
	}
}

func TestNewDefault(t *testing.T) {
	l := NewDefault()
	require.NotNil(t, l)
	assert.True(t, l.Enabled(nil, slog.LevelInfo))
	assert.False(t, l.Enabled(nil, slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestWith(t *testing.T) {
	l := NewDefault()
	child := l.With("component", "engine")
	require.NotNil(t, child)
	assert.NotSame(t, l, child)
}
