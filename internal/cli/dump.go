package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/attrstore/internal/attr"
	"github.com/roach88/attrstore/internal/store"
)

// DumpAttribute is one attribute in dump output.
type DumpAttribute struct {
	Code  string `json:"code"`
	Nr    int64  `json:"nr"`
	Value any    `json:"value"`

	value attr.Value
}

// DumpEntity is a transformation, step, job or job entry with its
// attributes and children.
type DumpEntity struct {
	Kind       string          `json:"kind"`
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Attributes []DumpAttribute `json:"attributes"`
	Children   []DumpEntity    `json:"children,omitempty"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every transformation and job with its attributes",
		Long: `Print every transformation with its steps and every job with its
entries, together with their attributes. Each transformation and job is
read into a buffer in one query per attribute kind.

Only attributes of owners with an entity row are shown.

Examples:
  attrstore dump --db ./repo.db
  attrstore dump --db ./repo.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, cmd)
		},
	}
}

func runDump(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, _, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	entities, err := collectDump(ctx, st)
	if err != nil {
		return storeExitError("failed to dump repository", err)
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(entities)
	}
	writeDumpText(out.Writer, entities, 0)
	return nil
}

// collectDump walks the two scope kinds (transformations and jobs) and
// their children.
func collectDump(ctx context.Context, st *store.Store) ([]DumpEntity, error) {
	var out []DumpEntity
	for _, tree := range []struct {
		parent, child         attr.Kind
		parentName, childName string
	}{
		{attr.Trans, attr.Step, "transformation", "step"},
		{attr.Job, attr.JobEntry, "job", "jobentry"},
	} {
		parents, err := st.Entities(ctx, tree.parent)
		if err != nil {
			return nil, err
		}
		children, err := st.Entities(ctx, tree.child)
		if err != nil {
			return nil, err
		}
		byParent := make(map[int64][]store.Entity)
		for _, c := range children {
			byParent[c.ParentID] = append(byParent[c.ParentID], c)
		}

		for _, p := range parents {
			own, err := bufferedAttributes(ctx, st, tree.parent, p.ID)
			if err != nil {
				return nil, err
			}
			childAttrs, err := bufferedAttributes(ctx, st, tree.child, p.ID)
			if err != nil {
				return nil, err
			}

			e := DumpEntity{Kind: tree.parentName, ID: p.ID, Name: p.Name, Attributes: own[p.ID]}
			for _, c := range byParent[p.ID] {
				e.Children = append(e.Children, DumpEntity{
					Kind: tree.childName, ID: c.ID, Name: c.Name, Attributes: childAttrs[c.ID],
				})
			}
			out = append(out, e)
		}
		for _, k := range []attr.Kind{tree.parent, tree.child} {
			if err := st.SetBuffer(k, nil); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// bufferedAttributes loads scopeID's rows of kind and groups them by owner,
// in buffer order. Rows with unconvertible keys sort last and are left out.
func bufferedAttributes(ctx context.Context, st *store.Store, kind attr.Kind, scopeID int64) (map[int64][]DumpAttribute, error) {
	b, err := st.FillBuffer(ctx, kind, scopeID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]DumpAttribute)
	recs := b.Records()
	for _, r := range recs[:len(recs)-b.Corrupt()] {
		out[r.OwnerID] = append(out[r.OwnerID], DumpAttribute{
			Code: r.Code, Nr: r.Nr, Value: valueData(r.Value), value: r.Value,
		})
	}
	return out, nil
}

func writeDumpText(w io.Writer, entities []DumpEntity, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entities {
		fmt.Fprintf(w, "%s%s %d %q\n", indent, e.Kind, e.ID, e.Name)
		for _, a := range e.Attributes {
			code := a.Code
			if a.Nr != 0 {
				code = fmt.Sprintf("%s[%d]", a.Code, a.Nr)
			}
			fmt.Fprintf(w, "%s  %s = %s\n", indent, code, formatValue(a.value))
		}
		writeDumpText(w, e.Children, depth+1)
	}
}
