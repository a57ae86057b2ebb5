package attr

import (
	"fmt"
	"strings"

	"github.com/roach88/attrstore/internal/ids"
)

// Kind describes one family of attribute tables. All kinds share the same
// column layout and differ only in table and column names.
type Kind struct {
	// Name is the short name used on the command line and in errors.
	Name string

	// Table is the attribute table.
	Table string

	// IDColumn holds the surrogate key assigned by the allocator.
	IDColumn string

	// ScopeColumn holds the owning scope a Buffer is loaded for. For kinds
	// whose owner is itself the scope it equals OwnerColumn.
	ScopeColumn string

	// OwnerColumn holds the entity the attribute belongs to.
	OwnerColumn string
}

var (
	// Step attributes belong to a step and are scoped by transformation.
	Step = Kind{
		Name:        "step",
		Table:       "r_step_attribute",
		IDColumn:    "id_step_attribute",
		ScopeColumn: "id_transformation",
		OwnerColumn: "id_step",
	}

	// Trans attributes belong to a transformation.
	Trans = Kind{
		Name:        "trans",
		Table:       "r_trans_attribute",
		IDColumn:    "id_trans_attribute",
		ScopeColumn: "id_transformation",
		OwnerColumn: "id_transformation",
	}

	// Job attributes belong to a job.
	Job = Kind{
		Name:        "job",
		Table:       "r_job_attribute",
		IDColumn:    "id_job_attribute",
		ScopeColumn: "id_job",
		OwnerColumn: "id_job",
	}

	// JobEntry attributes belong to a job entry and are scoped by job.
	JobEntry = Kind{
		Name:        "jobentry",
		Table:       "r_jobentry_attribute",
		IDColumn:    "id_jobentry_attribute",
		ScopeColumn: "id_job",
		OwnerColumn: "id_jobentry",
	}
)

// Kinds returns every attribute kind in a stable order.
func Kinds() []Kind {
	return []Kind{Step, Trans, Job, JobEntry}
}

// ParseKind resolves a kind by name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(k.Name, name) {
			return k, nil
		}
	}
	names := make([]string, 0, 4)
	for _, k := range Kinds() {
		names = append(names, k.Name)
	}
	return Kind{}, fmt.Errorf("unknown attribute kind %q: must be one of %v", name, names)
}

// Scoped reports whether the owner and the scope are different columns.
func (k Kind) Scoped() bool {
	return k.ScopeColumn != k.OwnerColumn
}

// IDKey is the allocator key for this kind's surrogate ids.
func (k Kind) IDKey() ids.Key {
	return ids.Key{Table: k.Table, Column: k.IDColumn}
}

// String returns the kind name.
func (k Kind) String() string {
	return k.Name
}
