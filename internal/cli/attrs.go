package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attrstore/internal/attr"
	"github.com/roach88/attrstore/internal/store"
)

// AttrOptions holds flags shared by set, get and count.
type AttrOptions struct {
	*RootOptions
	Nr    int64
	Type  string
	Scope int64
}

// AttrResult describes one attribute.
type AttrResult struct {
	Kind    string `json:"kind"`
	OwnerID int64  `json:"owner_id"`
	Code    string `json:"code"`
	Nr      int64  `json:"nr"`
	ID      int64  `json:"id,omitempty"`
	Value   any    `json:"value"`
}

func parseKind(name string) (attr.Kind, error) {
	k, err := attr.ParseKind(name)
	if err != nil {
		return attr.Kind{}, WrapExitError(ExitCommandError, "invalid kind", err)
	}
	return k, nil
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttrOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <kind> <owner> <code> <value>",
		Short: "Save an attribute",
		Long: `Save one attribute, replacing any value stored under the same
owner, code and nr.

Step and job-entry attributes also need the owning transformation or job
with --scope.

Examples:
  attrstore set trans 1 description "Daily load"
  attrstore set step 7 copies 2 --scope 1 --type integer
  attrstore set job 3 enabled true --type bool`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(opts, cmd, args)
		},
	}

	cmd.Flags().Int64Var(&opts.Nr, "nr", 0, "repetition index")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "string", fmt.Sprintf("value type %v", ValueTypes))
	cmd.Flags().Int64Var(&opts.Scope, "scope", 0, "owning transformation or job (step and jobentry kinds)")

	return cmd
}

func runSet(opts *AttrOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	owner, err := parseID("owner", args[1])
	if err != nil {
		return err
	}
	value, err := parseValue(opts.Type, args[3])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid value", err)
	}
	scope := owner
	if kind.Scoped() {
		if !cmd.Flags().Changed("scope") {
			return NewExitError(ExitCommandError, fmt.Sprintf("%s attributes need --scope", kind))
		}
		scope = opts.Scope
	}

	st, _, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Save(ctx, kind, scope, owner, opts.Nr, args[2], value)
	if err != nil {
		return storeExitError("failed to save attribute", err)
	}
	if err := st.CloseInsert(ctx, kind); err != nil {
		return storeExitError("failed to save attribute", err)
	}

	out := opts.formatter(cmd)
	out.VerboseLog("saved %s attribute %d", kind, id)
	if opts.Format == "json" {
		return out.Success(AttrResult{
			Kind: kind.Name, OwnerID: owner, Code: args[2], Nr: opts.Nr, ID: id, Value: valueData(value),
		})
	}
	return out.Success(fmt.Sprintf("%s %d %s[%d] = %s", kind, owner, args[2], opts.Nr, formatValue(value)))
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttrOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <kind> <owner> <code>",
		Short: "Read an attribute",
		Long: `Read one attribute. Without --type the stored value is printed as is;
with --type it is decoded the way the repository reads it.

Exit codes:
  0 - Attribute found
  1 - Attribute not found, or its value cannot be decoded
  2 - Command error

Examples:
  attrstore get trans 1 description
  attrstore get step 7 copies --type integer`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, cmd, args)
		},
	}

	cmd.Flags().Int64Var(&opts.Nr, "nr", 0, "repetition index")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", fmt.Sprintf("decode as %v", ValueTypes))

	return cmd
}

func runGet(opts *AttrOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	owner, err := parseID("owner", args[1])
	if err != nil {
		return err
	}
	code := args[2]

	st, _, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	rec, ok, err := st.Get(ctx, kind, owner, opts.Nr, code)
	if err != nil {
		_ = out.Error(errorCode(err), err.Error(), nil)
		return storeExitError("failed to read attribute", err)
	}
	if !ok {
		msg := fmt.Sprintf("%s %d has no attribute %s[%d]", kind, owner, code, opts.Nr)
		_ = out.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitFailure, msg)
	}

	value, text, err := decodeAs(ctx, st.Attributes(kind), opts.Type, owner, opts.Nr, code, rec)
	if err != nil {
		_ = out.Error(errorCode(err), err.Error(), nil)
		return storeExitError("failed to decode attribute", err)
	}

	if opts.Format == "json" {
		return out.Success(AttrResult{
			Kind: kind.Name, OwnerID: owner, Code: rec.Code, Nr: rec.Nr, ID: rec.ID, Value: value,
		})
	}
	return out.Success(text)
}

// decodeAs reads the attribute through the typed accessor named by typ.
func decodeAs(ctx context.Context, a store.Attrs, typ string, owner, nr int64, code string, rec attr.Record) (any, string, error) {
	switch typ {
	case "":
		return valueData(rec.Value), formatValue(rec.Value), nil
	case "string":
		s, _, err := a.TextAt(ctx, owner, nr, code)
		return s, s, err
	case "integer", "int":
		n, err := a.IntegerAt(ctx, owner, nr, code)
		return n, fmt.Sprint(n), err
	case "number", "float":
		f, err := a.NumberAt(ctx, owner, nr, code)
		return f, fmt.Sprint(f), err
	case "bool", "boolean":
		b, err := a.BooleanAt(ctx, owner, nr, code)
		return b, fmt.Sprint(b), err
	}
	return nil, "", NewExitError(ExitCommandError, fmt.Sprintf("unknown value type %q: must be one of %v", typ, ValueTypes))
}

// CountResult is the count command's output.
type CountResult struct {
	Kind     string `json:"kind"`
	OwnerID  int64  `json:"owner_id"`
	Code     string `json:"code"`
	Count    int    `json:"count"`
	Buffered bool   `json:"buffered"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttrOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <kind> <owner> <code>",
		Short: "Count the repetitions of an attribute",
		Long: `Count how many repetitions of an attribute an owner has.

With --scope the owning transformation or job is loaded into a buffer
first and the count stops at the first missing nr; without it every
stored row is counted.

Examples:
  attrstore count step 7 field_name
  attrstore count step 7 field_name --scope 1`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, cmd, args)
		},
	}

	cmd.Flags().Int64Var(&opts.Scope, "scope", 0, "buffer this scope before counting")

	return cmd
}

func runCount(opts *AttrOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	owner, err := parseID("owner", args[1])
	if err != nil {
		return err
	}

	st, _, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	buffered := cmd.Flags().Changed("scope")
	if buffered {
		b, err := st.FillBuffer(ctx, kind, opts.Scope)
		if err != nil {
			return storeExitError("failed to load buffer", err)
		}
		opts.formatter(cmd).VerboseLog("buffered %d %s rows of scope %d", b.Len(), kind, opts.Scope)
	}

	n, err := st.Attributes(kind).Count(ctx, owner, args[2])
	if err != nil {
		return storeExitError("failed to count attribute", err)
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(CountResult{Kind: kind.Name, OwnerID: owner, Code: args[2], Count: n, Buffered: buffered})
	}
	return out.Success(n)
}
