package attr

import (
	"cmp"
	"fmt"
	"slices"
)

// ConversionPolicy decides what a Buffer search does when it meets a row
// whose key columns cannot be converted.
type ConversionPolicy int

const (
	// FailOpen treats an unconvertible row as "not equal" and keeps searching.
	FailOpen ConversionPolicy = iota

	// FailClosed aborts the search with a conversion error.
	FailClosed
)

// ParseConversionPolicy accepts "fail-open" and "fail-closed".
func ParseConversionPolicy(s string) (ConversionPolicy, error) {
	switch s {
	case "", "fail-open":
		return FailOpen, nil
	case "fail-closed":
		return FailClosed, nil
	}
	return FailOpen, fmt.Errorf("invalid conversion policy %q: must be fail-open or fail-closed", s)
}

// String returns the configuration spelling of the policy.
func (p ConversionPolicy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

type entry struct {
	rec    Record
	key    Key
	keyErr error // key columns could not be converted
	valErr error // value columns could not be converted
}

// Buffer is an immutable, sorted snapshot of every attribute row of one
// scope. It is built once by NewBuffer and only read afterwards.
//
// Rows are sorted here, never by the database: binary search needs the exact
// ordering of CompareKeys, and database collation may disagree with it. Rows
// whose key columns cannot be converted sort after all valid rows.
type Buffer struct {
	kind    Kind
	scopeID int64
	policy  ConversionPolicy
	entries []entry
	corrupt int
}

// NewBuffer converts and sorts rows into a snapshot.
func NewBuffer(kind Kind, scopeID int64, rows []Raw, policy ConversionPolicy) *Buffer {
	b := &Buffer{
		kind:    kind,
		scopeID: scopeID,
		policy:  policy,
		entries: make([]entry, 0, len(rows)),
	}

	for _, r := range rows {
		e := newEntry(r)
		if e.keyErr != nil {
			b.corrupt++
		}
		b.entries = append(b.entries, e)
	}

	slices.SortStableFunc(b.entries, compareEntries)
	return b
}

func newEntry(r Raw) entry {
	e := entry{rec: Record{ID: r.ID, ScopeID: r.ScopeID}}

	owner, err := ToInteger(r.OwnerID)
	if err != nil {
		e.keyErr = fmt.Errorf("owner: %w", err)
	}
	code, err := ToCode(r.Code)
	if err != nil && e.keyErr == nil {
		e.keyErr = fmt.Errorf("code: %w", err)
	}
	nr, err := ToInteger(r.Nr)
	if err != nil && e.keyErr == nil {
		e.keyErr = fmt.Errorf("nr: %w", err)
	}

	e.rec.OwnerID, e.rec.Code, e.rec.Nr = owner, code, nr
	if e.keyErr == nil {
		e.key = NewKey(owner, code, nr)
	}

	e.rec.Value, e.valErr = Decode(r.Num, r.Str)
	return e
}

func compareEntries(a, b entry) int {
	switch {
	case a.keyErr == nil && b.keyErr == nil:
		return CompareKeys(a.key, b.key)
	case a.keyErr == nil:
		return -1
	case b.keyErr == nil:
		return 1
	}
	return cmp.Compare(a.rec.ID, b.rec.ID)
}

// Kind returns the attribute kind the buffer was loaded for.
func (b *Buffer) Kind() Kind { return b.kind }

// ScopeID returns the scope the buffer was loaded for.
func (b *Buffer) ScopeID() int64 { return b.scopeID }

// Policy returns the buffer's conversion policy.
func (b *Buffer) Policy() ConversionPolicy { return b.policy }

// Len returns the number of rows, corrupt ones included.
func (b *Buffer) Len() int { return len(b.entries) }

// Corrupt returns the number of rows whose key could not be converted.
func (b *Buffer) Corrupt() int { return b.corrupt }

// Records returns a copy of the rows in buffer order.
func (b *Buffer) Records() []Record {
	out := make([]Record, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.rec
	}
	return out
}

// compareAt compares entry i against key.
func (b *Buffer) compareAt(i int, key Key) (int, error) {
	e := b.entries[i]
	if e.keyErr != nil {
		return 0, fmt.Errorf("row %d of %s: %w", e.rec.ID, b.kind.Table, e.keyErr)
	}
	return CompareKeys(e.key, key), nil
}

// search returns the index of the first entry equal to key, or -1.
func (b *Buffer) search(key Key) (int, error) {
	lo, hi := 0, len(b.entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := b.compareAt(mid, key)
		if err != nil {
			if b.policy == FailClosed {
				return -1, err
			}
			// Not equal; corrupt rows sit at the end.
			c = 1
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo >= len(b.entries) {
		return -1, nil
	}
	c, err := b.compareAt(lo, key)
	if err != nil {
		if b.policy == FailClosed {
			return -1, err
		}
		return -1, nil
	}
	if c != 0 {
		return -1, nil
	}
	return lo, nil
}

// Find returns the row for (ownerID, code, nr). Codes differing only in
// case are distinct rows; the one whose stored code equals code exactly
// wins, otherwise the first case-insensitive match is returned. A matching
// row whose value columns cannot be decoded is reported as a conversion
// error.
func (b *Buffer) Find(ownerID int64, code string, nr int64) (Record, bool, error) {
	key := NewKey(ownerID, code, nr)
	i, err := b.search(key)
	if err != nil {
		return Record{}, false, err
	}
	if i < 0 {
		return Record{}, false, nil
	}
	i = b.exact(i, key, NormalizeCode(code))

	e := b.entries[i]
	if e.valErr != nil {
		return Record{}, false, fmt.Errorf("attribute %s[%d] of %s %d: %w", code, nr, b.kind.Name, ownerID, e.valErr)
	}
	return e.rec, true, nil
}

// exact walks the run of entries equal to key starting at i and returns the
// index of the one stored under code, or i when none is.
func (b *Buffer) exact(i int, key Key, code string) int {
	for j := i; j < len(b.entries); j++ {
		e := b.entries[j]
		if e.keyErr != nil || CompareKeys(e.key, key) != 0 {
			break
		}
		if e.rec.Code == code {
			return j
		}
	}
	return i
}

// CountRepetitions returns n when rows exist for nr 0..n-1 of (ownerID, code).
// It locates nr 0 by binary search and walks forward while owner and code
// still match; repetitions are contiguous after the sort. The walk stops at
// the first missing nr.
func (b *Buffer) CountRepetitions(ownerID int64, code string) (int, error) {
	first := NewKey(ownerID, code, 0)
	i, err := b.search(first)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, nil
	}

	next := int64(1)
	for j := i + 1; j < len(b.entries); j++ {
		e := b.entries[j]
		if e.keyErr != nil || e.key.OwnerID != ownerID || e.key.Code != first.Code {
			break
		}
		if e.key.Nr == next {
			next++
			continue
		}
		if e.key.Nr > next {
			break
		}
		// Same nr twice: codes that differ only in case.
	}
	return int(next), nil
}
