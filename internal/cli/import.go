package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/attrstore/internal/attr"
	"github.com/roach88/attrstore/internal/logtable"
	"github.com/roach88/attrstore/internal/store"
)

// ImportDocument is the YAML layout read by the import command.
//
//	transformations:
//	  - name: load_sales
//	    attributes: {description: Daily load}
//	    log_table: {connection: logdb, table: trans_log}
//	    steps:
//	      - name: read
//	        attributes: {type: TableInput, field_name: [id, amount]}
//	jobs:
//	  - name: nightly
//	    entries:
//	      - name: START
//	        attributes: {type: SPECIAL}
type ImportDocument struct {
	Transformations []ImportTransformation `yaml:"transformations"`
	Jobs            []ImportJob            `yaml:"jobs"`
}

// ImportEntity is a named owner with its attributes. A sequence value is
// stored at nr 0, 1, ...
type ImportEntity struct {
	Name       string         `yaml:"name"`
	Attributes map[string]any `yaml:"attributes"`
}

type ImportTransformation struct {
	ImportEntity `yaml:",inline"`
	LogTable     *logtable.TransLogTable `yaml:"log_table"`
	Steps        []ImportEntity          `yaml:"steps"`
}

type ImportJob struct {
	ImportEntity `yaml:",inline"`
	Entries      []ImportEntity `yaml:"entries"`
}

// ImportResult counts what the import created.
type ImportResult struct {
	Transformations int `json:"transformations"`
	Steps           int `json:"steps"`
	Jobs            int `json:"jobs"`
	JobEntries      int `json:"job_entries"`
	Attributes      int `json:"attributes"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load transformations and jobs from a YAML document",
		Long: `Create the transformations, steps, jobs and job entries described by a
YAML document and save their attributes. Everything is written in one
transaction; nothing is kept if any part fails. Use "-" to read stdin.

Examples:
  attrstore import repo.yaml --db ./repo.db
  cat repo.yaml | attrstore import - --db ./repo.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0])
		},
	}
}

func runImport(opts *RootOptions, cmd *cobra.Command, path string) error {
	ctx := context.Background()

	doc, err := readImportDocument(cmd, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import document", err)
	}

	st, _, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := Import(ctx, st, doc)
	if err != nil {
		return storeExitError("import failed", err)
	}

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(result)
	}
	return out.Success(fmt.Sprintf("Imported %d transformations (%d steps), %d jobs (%d entries), %d attributes",
		result.Transformations, result.Steps, result.Jobs, result.JobEntries, result.Attributes))
}

func readImportDocument(cmd *cobra.Command, path string) (*ImportDocument, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var doc ImportDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &doc, nil
}

// Import writes doc to st inside one transaction. On failure the
// transaction is rolled back.
func Import(ctx context.Context, st *store.Store, doc *ImportDocument) (ImportResult, error) {
	imp := &importer{st: st, used: make(map[string]attr.Kind)}

	if err := st.Connect(ctx); err != nil {
		return ImportResult{}, err
	}
	if err := imp.run(ctx, doc); err != nil {
		if rbErr := st.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return ImportResult{}, err
	}
	for _, k := range attr.Kinds() {
		if _, ok := imp.used[k.Name]; !ok {
			continue
		}
		if err := st.CloseInsert(ctx, k); err != nil {
			_ = st.Rollback(ctx)
			return ImportResult{}, err
		}
	}
	if err := st.Disconnect(ctx); err != nil {
		return ImportResult{}, err
	}
	return imp.result, nil
}

type importer struct {
	st     *store.Store
	used   map[string]attr.Kind
	result ImportResult
}

func (imp *importer) run(ctx context.Context, doc *ImportDocument) error {
	for _, t := range doc.Transformations {
		if err := imp.transformation(ctx, t); err != nil {
			return err
		}
	}
	for _, j := range doc.Jobs {
		if err := imp.job(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) transformation(ctx context.Context, t ImportTransformation) error {
	if t.Name == "" {
		return errors.New("transformation without a name")
	}
	if _, found, err := imp.st.TransformationID(ctx, t.Name); err != nil {
		return err
	} else if found {
		return fmt.Errorf("transformation %q already exists", t.Name)
	}

	transID, err := imp.st.InsertTransformation(ctx, t.Name)
	if err != nil {
		return err
	}
	imp.result.Transformations++

	if err := imp.attributes(ctx, imp.st.TransAttributes(), transID, transID, t.Attributes); err != nil {
		return fmt.Errorf("transformation %q: %w", t.Name, err)
	}
	if t.LogTable != nil {
		lt := logtable.Default()
		lt.Merge(t.LogTable)
		if err := lt.SaveTo(ctx, imp.st.TransAttributes(), transID); err != nil {
			return fmt.Errorf("transformation %q log table: %w", t.Name, err)
		}
		imp.used[attr.Trans.Name] = attr.Trans
	}

	for _, s := range t.Steps {
		if s.Name == "" {
			return fmt.Errorf("transformation %q: step without a name", t.Name)
		}
		stepID, err := imp.st.InsertStep(ctx, transID, s.Name)
		if err != nil {
			return err
		}
		imp.result.Steps++
		if err := imp.attributes(ctx, imp.st.StepAttributes(), transID, stepID, s.Attributes); err != nil {
			return fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	return nil
}

func (imp *importer) job(ctx context.Context, j ImportJob) error {
	if j.Name == "" {
		return errors.New("job without a name")
	}
	if _, found, err := imp.st.JobID(ctx, j.Name); err != nil {
		return err
	} else if found {
		return fmt.Errorf("job %q already exists", j.Name)
	}

	jobID, err := imp.st.InsertJob(ctx, j.Name)
	if err != nil {
		return err
	}
	imp.result.Jobs++

	if err := imp.attributes(ctx, imp.st.JobAttributes(), jobID, jobID, j.Attributes); err != nil {
		return fmt.Errorf("job %q: %w", j.Name, err)
	}
	for _, e := range j.Entries {
		if e.Name == "" {
			return fmt.Errorf("job %q: entry without a name", j.Name)
		}
		entryID, err := imp.st.InsertJobEntry(ctx, jobID, e.Name)
		if err != nil {
			return err
		}
		imp.result.JobEntries++
		if err := imp.attributes(ctx, imp.st.JobEntryAttributes(), jobID, entryID, e.Attributes); err != nil {
			return fmt.Errorf("job entry %q: %w", e.Name, err)
		}
	}
	return nil
}

// attributes saves m in code order so ids are assigned deterministically.
func (imp *importer) attributes(ctx context.Context, a store.Attrs, scopeID, ownerID int64, m map[string]any) error {
	for _, code := range sortedCodes(m) {
		values, err := yamlValues(code, m[code])
		if err != nil {
			return err
		}
		for nr, v := range values {
			if _, err := a.SaveAt(ctx, scopeID, ownerID, int64(nr), code, v); err != nil {
				return err
			}
			imp.result.Attributes++
		}
		if len(values) > 0 {
			imp.used[a.Kind().Name] = a.Kind()
		}
	}
	return nil
}
