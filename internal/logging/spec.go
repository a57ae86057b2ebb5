package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Spec holds the level for loggers without a component and the overrides
// for those that have one.
type Spec struct {
	Base       slog.Level
	Components map[string]slog.Level
}

// NewSpec parses the base level and the per-component levels of the log
// configuration block.
func NewSpec(base string, components map[string]string) (Spec, error) {
	var spec Spec
	var err error
	if spec.Base, err = ParseLevel(base); err != nil {
		return Spec{}, err
	}

	spec.Components = make(map[string]slog.Level, len(components))
	for name, text := range components {
		if strings.TrimSpace(name) == "" {
			return Spec{}, errors.New("empty component name")
		}
		level, err := ParseLevel(text)
		if err != nil {
			return Spec{}, fmt.Errorf("component %q: %w", name, err)
		}
		spec.Components[name] = level
	}
	return spec, nil
}

// LevelFor returns the minimum level logged for component.
func (s Spec) LevelFor(component string) slog.Level {
	if level, ok := s.Components[component]; ok {
		return level
	}
	return s.Base
}

// String prints the spec in the form accepted on the command line:
// base level first, then name=level pairs by name.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(levelName(s.Base))
	for _, name := range slices.Sorted(maps.Keys(s.Components)) {
		fmt.Fprintf(&b, ",%s=%s", name, levelName(s.Components[name]))
	}
	return b.String()
}
