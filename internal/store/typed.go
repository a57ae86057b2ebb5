package store

import (
	"context"

	"github.com/roach88/attrstore/internal/attr"
)

// Attrs is a typed view of one attribute kind. Methods without an At
// suffix address repetition 0.
//
// Absent attributes decode to defaults: "" (ok=false) for strings, 0 for
// numbers and false for booleans. A stored value that cannot be decoded is
// a conversion error unless the method takes an explicit default.
type Attrs struct {
	s    *Store
	kind attr.Kind
}

// Attributes returns the typed view for kind.
func (s *Store) Attributes(kind attr.Kind) Attrs {
	return Attrs{s: s, kind: kind}
}

// StepAttributes returns the view for step attributes.
func (s *Store) StepAttributes() Attrs { return s.Attributes(attr.Step) }

// TransAttributes returns the view for transformation attributes.
func (s *Store) TransAttributes() Attrs { return s.Attributes(attr.Trans) }

// JobAttributes returns the view for job attributes.
func (s *Store) JobAttributes() Attrs { return s.Attributes(attr.Job) }

// JobEntryAttributes returns the view for job entry attributes.
func (s *Store) JobEntryAttributes() Attrs { return s.Attributes(attr.JobEntry) }

// Kind returns the attribute kind of the view.
func (a Attrs) Kind() attr.Kind { return a.kind }

// TextAt returns the string slot. ok is false when the attribute is
// absent or its string slot is NULL.
func (a Attrs) TextAt(ctx context.Context, ownerID, nr int64, code string) (string, bool, error) {
	rec, found, err := a.s.Get(ctx, a.kind, ownerID, nr, code)
	if err != nil || !found {
		return "", false, err
	}
	s, ok := rec.Value.Text()
	return s, ok, nil
}

// Text is TextAt for repetition 0.
func (a Attrs) Text(ctx context.Context, ownerID int64, code string) (string, bool, error) {
	return a.TextAt(ctx, ownerID, 0, code)
}

// IntegerAt returns the numeric slot truncated to an integer.
func (a Attrs) IntegerAt(ctx context.Context, ownerID, nr int64, code string) (int64, error) {
	rec, found, err := a.s.Get(ctx, a.kind, ownerID, nr, code)
	if err != nil || !found {
		return 0, err
	}
	return rec.Value.Int(), nil
}

// Integer is IntegerAt for repetition 0.
func (a Attrs) Integer(ctx context.Context, ownerID int64, code string) (int64, error) {
	return a.IntegerAt(ctx, ownerID, 0, code)
}

// NumberAt returns the numeric slot.
func (a Attrs) NumberAt(ctx context.Context, ownerID, nr int64, code string) (float64, error) {
	rec, found, err := a.s.Get(ctx, a.kind, ownerID, nr, code)
	if err != nil || !found {
		return 0, err
	}
	return rec.Value.Float(), nil
}

// Number is NumberAt for repetition 0.
func (a Attrs) Number(ctx context.Context, ownerID int64, code string) (float64, error) {
	return a.NumberAt(ctx, ownerID, 0, code)
}

// BooleanAt decodes the string slot as Y/N. Unrecognized text is a
// conversion error.
func (a Attrs) BooleanAt(ctx context.Context, ownerID, nr int64, code string) (bool, error) {
	rec, found, err := a.s.Get(ctx, a.kind, ownerID, nr, code)
	if err != nil || !found {
		return false, err
	}
	b, err := rec.Value.Boolean()
	if err != nil {
		return false, conversionError("get", a.kind, code, err)
	}
	return b, nil
}

// Boolean is BooleanAt for repetition 0.
func (a Attrs) Boolean(ctx context.Context, ownerID int64, code string) (bool, error) {
	return a.BooleanAt(ctx, ownerID, 0, code)
}

// BooleanOrAt decodes the string slot, returning def when the attribute is
// absent, empty or unrecognized.
func (a Attrs) BooleanOrAt(ctx context.Context, ownerID, nr int64, code string, def bool) (bool, error) {
	rec, found, err := a.s.Get(ctx, a.kind, ownerID, nr, code)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return rec.Value.BooleanOr(def), nil
}

// BooleanOr is BooleanOrAt for repetition 0.
func (a Attrs) BooleanOr(ctx context.Context, ownerID int64, code string, def bool) (bool, error) {
	return a.BooleanOrAt(ctx, ownerID, 0, code, def)
}

// Count returns the number of repetitions of code for ownerID.
func (a Attrs) Count(ctx context.Context, ownerID int64, code string) (int, error) {
	return a.s.Count(ctx, a.kind, ownerID, code)
}

// SaveAt stores value under (ownerID, code, nr) and returns the row id.
func (a Attrs) SaveAt(ctx context.Context, scopeID, ownerID, nr int64, code string, value attr.Value) (int64, error) {
	return a.s.Save(ctx, a.kind, scopeID, ownerID, nr, code, value)
}

// Save is SaveAt for repetition 0.
func (a Attrs) Save(ctx context.Context, scopeID, ownerID int64, code string, value attr.Value) (int64, error) {
	return a.SaveAt(ctx, scopeID, ownerID, 0, code, value)
}
