package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture points the process-wide logger at a buffer for one test.
func capture(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	Init(cfg)
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %q", buf.String())
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"DEBUG", DebugLevel},
		{"  debug  ", DebugLevel},
		{"info", InfoLevel},
		{"Warn", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"trace", -1},
		{"verbose", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestInit_StampsServiceAndVersion(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel, Service: "copilot", Version: "1.2.3"})

	l := Component("http")
	l.Info().Msg("listening")

	entry := decode(t, buf)
	assert.Equal(t, "copilot", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, "listening", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInit_FiltersBelowLevel(t *testing.T) {
	buf := capture(t, Config{Level: WarnLevel})

	l := Component("session")
	l.Debug().Msg("debug message")
	l.Info().Msg("info message")
	l.Warn().Msg("warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestInit_Pretty(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel, Pretty: true})

	l := Component("cli")
	l.Info().Msg("ready")

	out := buf.String()
	assert.Contains(t, out, "ready")
	assert.False(t, strings.HasPrefix(out, "{"), "console output expected, got %q", out)
}

func TestRefused(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel})

	l := Component("permission")
	Refused(&l, KindPermissionDenied, "u1").Str("workspace", "w1").Msg("access denied")

	entry := decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, KindPermissionDenied, entry["kind"])
	assert.Equal(t, "u1", entry["user"])
	assert.Equal(t, "w1", entry["workspace"])
	assert.Equal(t, "permission", entry["component"])
}
