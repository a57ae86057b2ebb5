// Package logtable describes the transformation log table and persists its
// definition as transformation attributes.
package logtable

import (
	"context"
	"fmt"

	"github.com/roach88/attrstore/internal/attr"
)

// Field identifiers of the transformation log table.
const (
	IDBatch       = "ID_BATCH"
	ChannelID     = "CHANNEL_ID"
	TransName     = "TRANSNAME"
	Status        = "STATUS"
	LinesRead     = "LINES_READ"
	LinesWritten  = "LINES_WRITTEN"
	LinesUpdated  = "LINES_UPDATED"
	LinesInput    = "LINES_INPUT"
	LinesOutput   = "LINES_OUTPUT"
	LinesRejected = "LINES_REJECTED"
	Errors        = "ERRORS"
	StartDate     = "STARTDATE"
	EndDate       = "ENDDATE"
	LogDate       = "LOGDATE"
	DepDate       = "DEPDATE"
	ReplayDate    = "REPLAYDATE"
	LogField      = "LOG_FIELD"
)

// Code prefixes every attribute code the table is stored under.
const Code = "TRANS"

// Attribute code suffixes.
const (
	propConnection   = "_LOG_TABLE_CONNECTION_NAME"
	propSchema       = "_LOG_TABLE_SCHEMA_NAME"
	propTable        = "_LOG_TABLE_TABLE_NAME"
	propTimeoutDays  = "_LOG_TABLE_TIMEOUT_IN_DAYS"
	propInterval     = "_LOG_TABLE_INTERVAL"
	propSizeLimit    = "_LOG_TABLE_SIZE_LIMIT"
	propFieldID      = "_LOG_TABLE_FIELD_ID"
	propFieldName    = "_LOG_TABLE_FIELD_NAME"
	propFieldEnabled = "_LOG_TABLE_FIELD_ENABLED"
	propFieldSubject = "_LOG_TABLE_FIELD_SUBJECT"
)

// clobLength marks an unbounded text column.
const clobLength = 9999999

// FieldType is the column type of a log table field.
type FieldType string

const (
	TypeInteger FieldType = "integer"
	TypeString  FieldType = "string"
	TypeDate    FieldType = "date"
)

// Field is one column of the log table.
type Field struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Enabled bool      `yaml:"enabled"`
	Subject string    `yaml:"subject,omitempty"` // step whose counters fill the field
	Type    FieldType `yaml:"-"`
	Length  int       `yaml:"-"`
	Visible bool      `yaml:"-"`

	// Subjectable fields take their value from a named step.
	Subjectable bool `yaml:"-"`

	Key       bool `yaml:"-"`
	LogDate   bool `yaml:"-"`
	LogBuffer bool `yaml:"-"`
	IsStatus  bool `yaml:"-"`
	IsErrors  bool `yaml:"-"`
	IsName    bool `yaml:"-"`
}

// TransLogTable is the definition of a transformation log table.
type TransLogTable struct {
	ConnectionName string  `yaml:"connection"`
	SchemaName     string  `yaml:"schema"`
	TableName      string  `yaml:"table"`
	TimeoutDays    string  `yaml:"timeout_days"`
	Interval       string  `yaml:"interval"`
	SizeLimit      string  `yaml:"size_limit_lines"`
	Fields         []Field `yaml:"fields"`
}

// Default returns the standard field layout with every field enabled.
func Default() *TransLogTable {
	f := func(id string, subjectable bool, typ FieldType, length int) Field {
		return Field{ID: id, Name: id, Enabled: true, Visible: true, Subjectable: subjectable, Type: typ, Length: length}
	}
	t := &TransLogTable{
		Fields: []Field{
			f(IDBatch, false, TypeInteger, 8),
			f(ChannelID, false, TypeString, 255),
			f(TransName, false, TypeString, 255),
			f(Status, false, TypeString, 15),
			f(LinesRead, true, TypeInteger, 18),
			f(LinesWritten, true, TypeInteger, 18),
			f(LinesUpdated, true, TypeInteger, 18),
			f(LinesInput, true, TypeInteger, 18),
			f(LinesOutput, true, TypeInteger, 18),
			f(LinesRejected, true, TypeInteger, 18),
			f(Errors, false, TypeInteger, 18),
			f(StartDate, false, TypeDate, -1),
			f(EndDate, false, TypeDate, -1),
			f(LogDate, false, TypeDate, -1),
			f(DepDate, false, TypeDate, -1),
			f(ReplayDate, false, TypeDate, -1),
			f(LogField, false, TypeString, clobLength),
		},
	}

	t.Field(IDBatch).Key = true
	t.Field(LogDate).LogDate = true
	t.Field(LogField).LogBuffer = true
	t.Field(ChannelID).Visible = false
	t.Field(TransName).Visible = false
	t.Field(Status).IsStatus = true
	t.Field(Errors).IsErrors = true
	t.Field(TransName).IsName = true
	return t
}

// Field returns the field with the given id, or nil.
func (t *TransLogTable) Field(id string) *Field {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i]
		}
	}
	return nil
}

// Merge copies the destination settings of o into t and applies o's fields
// to t's fields with the same id. Fields of o with unknown ids are ignored.
func (t *TransLogTable) Merge(o *TransLogTable) {
	t.ConnectionName = o.ConnectionName
	t.SchemaName = o.SchemaName
	t.TableName = o.TableName
	t.TimeoutDays = o.TimeoutDays
	t.Interval = o.Interval
	t.SizeLimit = o.SizeLimit

	for _, of := range o.Fields {
		f := t.Field(of.ID)
		if f == nil {
			continue
		}
		if of.Name != "" {
			f.Name = of.Name
		}
		f.Enabled = of.Enabled
		f.Subject = of.Subject
	}
}

// KeyField returns the primary key field, or nil.
func (t *TransLogTable) KeyField() *Field {
	for i := range t.Fields {
		if t.Fields[i].Key {
			return &t.Fields[i]
		}
	}
	return nil
}

// BatchIDUsed reports whether the batch id column is written.
func (t *TransLogTable) BatchIDUsed() bool {
	f := t.Field(IDBatch)
	return f != nil && f.Enabled
}

// SetBatchIDUsed enables or disables the batch id column.
func (t *TransLogTable) SetBatchIDUsed(use bool) {
	if f := t.Field(IDBatch); f != nil {
		f.Enabled = use
	}
}

// LogFieldUsed reports whether the log text column is written.
func (t *TransLogTable) LogFieldUsed() bool {
	f := t.Field(LogField)
	return f != nil && f.Enabled
}

// SetLogFieldUsed enables or disables the log text column.
func (t *TransLogTable) SetLogFieldUsed(use bool) {
	if f := t.Field(LogField); f != nil {
		f.Enabled = use
	}
}

// Defined reports whether the table has a destination.
func (t *TransLogTable) Defined() bool {
	return t.ConnectionName != "" && t.TableName != ""
}

// RecommendedIndexes returns the column lists worth indexing: the batch id
// when used, then errors, status and transformation name.
func (t *TransLogTable) RecommendedIndexes() [][]string {
	var out [][]string
	if t.BatchIDUsed() {
		if key := t.KeyField(); key != nil {
			out = append(out, []string{key.Name})
		}
	}

	var lookup []string
	for _, id := range []string{Errors, Status, TransName} {
		if f := t.Field(id); f != nil {
			lookup = append(lookup, f.Name)
		}
	}
	return append(out, lookup)
}

// Attributes is the slice of the attribute store the table needs.
type Attributes interface {
	SaveAt(ctx context.Context, scopeID, ownerID, nr int64, code string, value attr.Value) (int64, error)
	TextAt(ctx context.Context, ownerID, nr int64, code string) (string, bool, error)
	BooleanOrAt(ctx context.Context, ownerID, nr int64, code string, def bool) (bool, error)
	Count(ctx context.Context, ownerID int64, code string) (int, error)
}

// SaveTo stores the definition as attributes of transformation transID.
// Field i is stored at repetition i.
func (t *TransLogTable) SaveTo(ctx context.Context, attrs Attributes, transID int64) error {
	props := []struct{ suffix, value string }{
		{propConnection, t.ConnectionName},
		{propSchema, t.SchemaName},
		{propTable, t.TableName},
		{propTimeoutDays, t.TimeoutDays},
		{propInterval, t.Interval},
		{propSizeLimit, t.SizeLimit},
	}
	for _, p := range props {
		if _, err := attrs.SaveAt(ctx, transID, transID, 0, Code+p.suffix, attr.String(p.value)); err != nil {
			return fmt.Errorf("save log table %s: %w", p.suffix, err)
		}
	}

	for i, f := range t.Fields {
		nr := int64(i)
		values := []struct {
			suffix string
			value  attr.Value
		}{
			{propFieldID, attr.String(f.ID)},
			{propFieldName, attr.String(f.Name)},
			{propFieldEnabled, attr.Bool(f.Enabled)},
			{propFieldSubject, attr.String(f.Subject)},
		}
		for _, v := range values {
			if _, err := attrs.SaveAt(ctx, transID, transID, nr, Code+v.suffix, v.value); err != nil {
				return fmt.Errorf("save log table field %s: %w", f.ID, err)
			}
		}
	}
	return nil
}

// LoadFrom reads a definition saved by SaveTo into t. Stored fields are
// matched to t's fields by id, falling back to position; unknown ids are
// ignored.
func (t *TransLogTable) LoadFrom(ctx context.Context, attrs Attributes, transID int64) error {
	props := []struct {
		suffix string
		dst    *string
	}{
		{propConnection, &t.ConnectionName},
		{propSchema, &t.SchemaName},
		{propTable, &t.TableName},
		{propTimeoutDays, &t.TimeoutDays},
		{propInterval, &t.Interval},
		{propSizeLimit, &t.SizeLimit},
	}
	for _, p := range props {
		v, _, err := attrs.TextAt(ctx, transID, 0, Code+p.suffix)
		if err != nil {
			return fmt.Errorf("load log table %s: %w", p.suffix, err)
		}
		*p.dst = v
	}

	n, err := attrs.Count(ctx, transID, Code+propFieldID)
	if err != nil {
		return fmt.Errorf("count log table fields: %w", err)
	}

	for i := 0; i < n; i++ {
		nr := int64(i)
		id, _, err := attrs.TextAt(ctx, transID, nr, Code+propFieldID)
		if err != nil {
			return fmt.Errorf("load log table field %d: %w", i, err)
		}

		f := t.Field(id)
		if f == nil {
			if i >= len(t.Fields) {
				continue
			}
			f = &t.Fields[i]
		}

		if f.Name, _, err = attrs.TextAt(ctx, transID, nr, Code+propFieldName); err != nil {
			return fmt.Errorf("load log table field %s: %w", id, err)
		}
		if f.Enabled, err = attrs.BooleanOrAt(ctx, transID, nr, Code+propFieldEnabled, false); err != nil {
			return fmt.Errorf("load log table field %s: %w", id, err)
		}
		if f.Subject, _, err = attrs.TextAt(ctx, transID, nr, Code+propFieldSubject); err != nil {
			return fmt.Errorf("load log table field %s: %w", id, err)
		}
	}
	return nil
}
