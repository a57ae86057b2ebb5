// Package logging wires the console logger used by the CLI and the store.
// Verbosity is a base level with optional overrides keyed by the
// "component" attribute a logger carries.
package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// levelNames maps accepted spellings onto slog levels. The first spelling
// listed for a level is the one printed back.
var levelNames = []struct {
	name  string
	level slog.Level
}{
	{"debug", slog.LevelDebug},
	{"info", slog.LevelInfo},
	{"warn", slog.LevelWarn},
	{"warning", slog.LevelWarn},
	{"error", slog.LevelError},
	{"err", slog.LevelError},
}

// ParseLevel reads a level name from configuration. Blank means info.
func ParseLevel(s string) (slog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return slog.LevelInfo, nil
	}
	for _, n := range levelNames {
		if n.name == name {
			return n.level, nil
		}
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

func levelName(l slog.Level) string {
	for _, n := range levelNames {
		if n.level == l {
			return n.name
		}
	}
	return strings.ToLower(l.String())
}
