package attr

// Record is one attribute row.
type Record struct {
	ID      int64
	ScopeID int64
	OwnerID int64
	Code    string
	Nr      int64
	Value   Value
}

// Raw is an attribute row as scanned from the database, before any key or
// value conversion. Columns that SQLite stores with dynamic types are kept as
// whatever the driver returned.
type Raw struct {
	ID      int64
	ScopeID int64
	OwnerID any
	Code    any
	Nr      any
	Num     any
	Str     any
}
