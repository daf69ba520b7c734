// Package logging configures the process-wide zerolog logger and hands out
// per-component children of it.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Packages take children of it through
// Component rather than logging on it directly.
var Logger zerolog.Logger

// Level is a zerolog level.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Config holds logger configuration. The zero value logs JSON at info level
// to stderr.
type Config struct {
	Level  Level
	Output io.Writer
	// Pretty switches to zerolog's console writer for local runs.
	Pretty bool
	// Service and Version are stamped on every entry when set.
	Service string
	Version string
}

// DefaultConfig returns the configuration used before Init is called.
func DefaultConfig() Config {
	return Config{Level: InfoLevel, Output: os.Stderr}
}

// Init replaces the process-wide logger. Loggers obtained from Component
// before the call keep writing to the previous one.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	c := zerolog.New(out).Level(cfg.Level).With().Timestamp()
	if cfg.Service != "" {
		c = c.Str("service", cfg.Service)
	}
	if cfg.Version != "" {
		c = c.Str("version", cfg.Version)
	}
	Logger = c.Logger()
}

// ParseLevel maps a configured level name to a Level. Names are
// case-insensitive and "warning" is accepted for warn. Anything else,
// including an empty string, yields InfoLevel.
func ParseLevel(name string) Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return InfoLevel
	}
	return lvl
}

// Component returns a child of the process-wide logger tagged with name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Refusal kinds tag warn entries for requests turned away, so denials can
// be told apart from missing entities and failures.
const (
	KindUnauthenticated  = "unauthenticated"
	KindPermissionDenied = "permission_denied"
	KindForbidden        = "forbidden"
)

// Refused starts a warn entry on l for a request refused to user.
func Refused(l *zerolog.Logger, kind, user string) *zerolog.Event {
	return l.Warn().Str("kind", kind).Str("user", user)
}

func init() {
	Init(DefaultConfig())
}
