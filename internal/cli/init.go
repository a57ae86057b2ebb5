package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	WriteConfig string
	Force       bool
}

// InitResult is the init command's output.
type InitResult struct {
	Database string `json:"database"`
	Config   string `json:"config,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the repository database",
		Long: `Create the database and its tables if they do not exist yet.

With --write-config the effective configuration is written as YAML so it
can be edited and passed back with --config.

Examples:
  attrstore init --db ./repo.db
  attrstore init --db ./repo.db --write-config ./attrstore.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.WriteConfig, "write-config", "", "write the effective config to this path")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, cfg, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to close database", err)
	}

	result := InitResult{Database: cfg.Database.Path}
	if opts.WriteConfig != "" {
		if !opts.Force {
			if _, err := os.Stat(opts.WriteConfig); err == nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force)", opts.WriteConfig))
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode config", err)
		}
		if err := os.WriteFile(opts.WriteConfig, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write config", err)
		}
		result.Config = opts.WriteConfig
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(result)
	}
	msg := fmt.Sprintf("Initialized %s", result.Database)
	if result.Config != "" {
		msg += fmt.Sprintf("\nWrote config to %s", result.Config)
	}
	return out.Success(msg)
}
