package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Options configures New.
type Options struct {
	Level      string
	Components map[string]string
	// Output defaults to os.Stderr.
	Output io.Writer
	// Color forces colour on or off. Nil decides from whether Output is a
	// terminal.
	Color *bool
}

// New returns a tint console logger filtered by component levels.
func New(opts Options) (*slog.Logger, error) {
	spec, err := NewSpec(opts.Level, opts.Components)
	if err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	out := opts.Output
	noColor := true
	if out == nil {
		out = colorable.NewColorable(os.Stderr)
		noColor = !isatty.IsTerminal(os.Stderr.Fd())
	} else if f, ok := out.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	if opts.Color != nil {
		noColor = !*opts.Color
	}

	inner := tint.NewHandler(out, &tint.Options{
		// componentHandler decides what is emitted.
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	})
	return slog.New(WithComponents(inner, spec)), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
