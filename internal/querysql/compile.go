package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/attrstore/internal/attr"
)

// Generic attribute columns shared by every kind.
const (
	ColumnCode     = "code"
	ColumnNr       = "nr"
	ColumnValueNum = "value_num"
	ColumnValueStr = "value_str"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Quote validates and double-quotes an identifier.
func Quote(ident string) (string, error) {
	if !identRe.MatchString(ident) {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

// q quotes identifiers known to be valid (kind descriptors and constants).
func q(ident string) string {
	s, err := Quote(ident)
	if err != nil {
		panic(err)
	}
	return s
}

// Statements holds the SQL for one attribute kind.
type Statements struct {
	// Lookup binds (owner, code, nr) and returns (value_num, value_str).
	Lookup string

	// LookupID binds (owner, code, nr) and returns the row id.
	LookupID string

	// Insert binds InsertColumns(kind) in order. Reissuing an existing
	// (owner, code, nr) triple overwrites that row.
	Insert string

	// Count binds (owner, code) and returns COUNT(*).
	Count string

	// Fill binds the scope id and returns every row of the scope as
	// (id, scope, owner, code, nr, value_num, value_str).
	Fill string

	// List binds (owner, code, nr) and returns the same columns as Fill,
	// ordered by value_num.
	List string

	// DeleteScope binds the scope id.
	DeleteScope string

	// MaxID returns MAX(id) of the table.
	MaxID string
}

// InsertColumns returns the insert column list for k. The scope column is
// only present when it differs from the owner column.
func InsertColumns(k attr.Kind) []string {
	cols := []string{k.IDColumn}
	if k.Scoped() {
		cols = append(cols, k.ScopeColumn)
	}
	return append(cols, k.OwnerColumn, ColumnCode, ColumnNr, ColumnValueNum, ColumnValueStr)
}

// Compile renders every statement for k.
func Compile(k attr.Kind) Statements {
	table := q(k.Table)
	owner := q(k.OwnerColumn)
	tripleWhere := fmt.Sprintf("%s = ? AND %s = ? AND %s = ?", owner, q(ColumnCode), q(ColumnNr))
	selectAll := strings.Join([]string{
		q(k.IDColumn), q(k.ScopeColumn), owner, q(ColumnCode), q(ColumnNr), q(ColumnValueNum), q(ColumnValueStr),
	}, ", ")

	return Statements{
		Lookup: fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s",
			q(ColumnValueNum), q(ColumnValueStr), table, tripleWhere),
		LookupID: fmt.Sprintf("SELECT %s FROM %s WHERE %s",
			q(k.IDColumn), table, tripleWhere),
		Insert: compileInsert(k),
		Count: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND %s = ?",
			table, owner, q(ColumnCode)),
		Fill: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s, %s, %s",
			selectAll, table, q(k.ScopeColumn), owner, q(ColumnCode), q(ColumnNr)),
		List: fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s, %s",
			selectAll, table, tripleWhere, q(ColumnValueNum), q(k.IDColumn)),
		DeleteScope: fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, q(k.ScopeColumn)),
		MaxID:       fmt.Sprintf("SELECT MAX(%s) FROM %s", q(k.IDColumn), table),
	}
}

func compileInsert(k attr.Kind) string {
	cols := InsertColumns(k)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = q(c)
		marks[i] = "?"
	}

	updates := []string{q(k.IDColumn) + " = excluded." + q(k.IDColumn)}
	if k.Scoped() {
		updates = append(updates, q(k.ScopeColumn)+" = excluded."+q(k.ScopeColumn))
	}
	updates = append(updates,
		q(ColumnValueNum)+" = excluded."+q(ColumnValueNum),
		q(ColumnValueStr)+" = excluded."+q(ColumnValueStr),
	)

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s, %s, %s) DO UPDATE SET %s",
		q(k.Table),
		strings.Join(quoted, ", "),
		strings.Join(marks, ", "),
		q(k.OwnerColumn), q(ColumnCode), q(ColumnNr),
		strings.Join(updates, ", "),
	)
}

// MaxID renders SELECT MAX(column) FROM table for an arbitrary id column.
func MaxID(table, column string) (string, error) {
	qt, err := Quote(table)
	if err != nil {
		return "", err
	}
	qc, err := Quote(column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT MAX(%s) FROM %s", qc, qt), nil
}

// LookupID renders a query returning idColumn of the rows whose lookupColumn
// equals the first bound parameter. Each key column adds one more bound
// equality.
func LookupID(table, idColumn, lookupColumn string, keyColumns ...string) (string, error) {
	qt, err := Quote(table)
	if err != nil {
		return "", err
	}
	qi, err := Quote(idColumn)
	if err != nil {
		return "", err
	}
	ql, err := Quote(lookupColumn)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s = ?", qi, qt, ql)
	for _, k := range keyColumns {
		qk, err := Quote(k)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " AND %s = ?", qk)
	}
	fmt.Fprintf(&b, " ORDER BY %s", qi)
	return b.String(), nil
}
