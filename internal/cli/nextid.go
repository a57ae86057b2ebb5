package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NextIDOptions holds flags for the nextid command.
type NextIDOptions struct {
	*RootOptions
	Kind string
}

// NextIDResult is the nextid command's output.
type NextIDResult struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	ID     int64  `json:"id"`
}

// NewNextIDCommand creates the nextid command.
func NewNextIDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NextIDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "nextid [<table> <column>]",
		Short: "Show the next id the allocator would hand out",
		Long: `Show the next surrogate id for a table column, derived from the
largest id stored. With --kind the attribute table of that kind is used.

Examples:
  attrstore nextid r_step id_step
  attrstore nextid --kind jobentry`,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("kind") {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNextID(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", "", "attribute kind whose table to use")

	return cmd
}

func runNextID(opts *NextIDOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var table, column string
	if opts.Kind != "" {
		kind, err := parseKind(opts.Kind)
		if err != nil {
			return err
		}
		table, column = kind.Table, kind.IDColumn
	} else {
		table, column = args[0], args[1]
	}

	st, _, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.NextID(ctx, table, column)
	if err != nil {
		return storeExitError(fmt.Sprintf("failed to allocate id for %s.%s", table, column), err)
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(NextIDResult{Table: table, Column: column, ID: id})
	}
	return out.Success(id)
}
