package logging

import (
	"context"
	"log/slog"
)

// ComponentKey names the logger attribute that picks a component override.
const ComponentKey = "component"

// componentHandler drops records below the threshold of the component its
// logger was tagged with. The threshold is resolved when the tag is
// attached, so Enabled is a single comparison.
type componentHandler struct {
	next slog.Handler
	spec Spec
	min  slog.Level
}

// WithComponents returns a handler that forwards to next only the records
// spec lets through. Loggers pick their component with
// logger.With(ComponentKey, name); untagged loggers use spec.Base.
func WithComponents(next slog.Handler, spec Spec) slog.Handler {
	return &componentHandler{next: next, spec: spec, min: spec.Base}
}

func (h *componentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.min {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == ComponentKey {
			c.min = h.spec.LevelFor(a.Value.String())
			break
		}
	}
	return &c
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	return &c
}
