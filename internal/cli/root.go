package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/attrstore/internal/config"
	"github.com/roach88/attrstore/internal/logging"
	"github.com/roach88/attrstore/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // path to a YAML config file, optional
	Database string // overrides database.path from the config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the attrstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "attrstore",
		Short: "Inspect and edit a repository attribute store",
		Long: `attrstore reads and writes the key/value attributes that describe
transformations, steps, jobs and job entries in a SQLite repository.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewNextIDCommand(opts))

	return cmd
}

// loadConfig returns the config file named by --config, or the defaults,
// with --db and --verbose applied.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.Config != "" {
		var err error
		cfg, err = config.Load(o.Config)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func (o *RootOptions) logger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	lo := logging.Options{Level: cfg.Log.Level, Components: cfg.Log.Components}
	if w := cmd.ErrOrStderr(); w != os.Stderr {
		lo.Output = w
	}
	logger, err := logging.New(lo)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	return logger, nil
}

// openStore opens the configured database. The caller closes it.
func (o *RootOptions) openStore(ctx context.Context, cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	logger, err := o.logger(cmd, cfg)
	if err != nil {
		return nil, cfg, err
	}

	st, err := store.Open(ctx, cfg.Database.Path, store.Options{
		Logger:           logger,
		UseBatch:         cfg.Batch.Enabled,
		BatchSize:        cfg.Batch.Size,
		ConversionPolicy: cfg.ConversionPolicy(),
		BusyTimeout:      cfg.BusyTimeout(),
	})
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
