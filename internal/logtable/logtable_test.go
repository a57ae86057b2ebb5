package logtable

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attrstore/internal/attr"
)

// memAttrs is an in-memory Attributes keyed by owner, code and nr.
type memAttrs struct {
	rows map[string]attr.Value
}

func newMemAttrs() *memAttrs {
	return &memAttrs{rows: make(map[string]attr.Value)}
}

func key(owner, nr int64, code string) string {
	return fmt.Sprintf("%d/%s/%d", owner, code, nr)
}

func (m *memAttrs) SaveAt(_ context.Context, _, owner, nr int64, code string, v attr.Value) (int64, error) {
	m.rows[key(owner, nr, code)] = v
	return int64(len(m.rows)), nil
}

func (m *memAttrs) TextAt(_ context.Context, owner, nr int64, code string) (string, bool, error) {
	v, ok := m.rows[key(owner, nr, code)]
	if !ok {
		return "", false, nil
	}
	s, ok := v.Text()
	return s, ok, nil
}

func (m *memAttrs) BooleanOrAt(_ context.Context, owner, nr int64, code string, def bool) (bool, error) {
	v, ok := m.rows[key(owner, nr, code)]
	if !ok {
		return def, nil
	}
	return v.BooleanOr(def), nil
}

func (m *memAttrs) Count(_ context.Context, owner int64, code string) (int, error) {
	n := 0
	for {
		if _, ok := m.rows[key(owner, int64(n), code)]; !ok {
			return n, nil
		}
		n++
	}
}

func TestDefault_Layout(t *testing.T) {
	lt := Default()

	ids := make([]string, len(lt.Fields))
	for i, f := range lt.Fields {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{
		IDBatch, ChannelID, TransName, Status,
		LinesRead, LinesWritten, LinesUpdated, LinesInput, LinesOutput, LinesRejected,
		Errors, StartDate, EndDate, LogDate, DepDate, ReplayDate, LogField,
	}, ids)

	assert.Equal(t, IDBatch, lt.KeyField().ID)
	assert.True(t, lt.Field(LogDate).LogDate)
	assert.True(t, lt.Field(LogField).LogBuffer)
	assert.False(t, lt.Field(ChannelID).Visible)
	assert.False(t, lt.Field(TransName).Visible)
	assert.True(t, lt.Field(TransName).IsName)
	assert.True(t, lt.Field(Status).IsStatus)
	assert.True(t, lt.Field(Errors).IsErrors)
	assert.True(t, lt.Field(LinesRead).Subjectable)
	assert.False(t, lt.Field(Errors).Subjectable)
	assert.Nil(t, lt.Field("NOPE"))
	assert.False(t, lt.Defined())
}

func TestToggles(t *testing.T) {
	lt := Default()

	assert.True(t, lt.BatchIDUsed())
	lt.SetBatchIDUsed(false)
	assert.False(t, lt.BatchIDUsed())

	assert.True(t, lt.LogFieldUsed())
	lt.SetLogFieldUsed(false)
	assert.False(t, lt.LogFieldUsed())
}

func TestRecommendedIndexes(t *testing.T) {
	lt := Default()
	assert.Equal(t, [][]string{{"ID_BATCH"}, {"ERRORS", "STATUS", "TRANSNAME"}}, lt.RecommendedIndexes())

	lt.SetBatchIDUsed(false)
	assert.Equal(t, [][]string{{"ERRORS", "STATUS", "TRANSNAME"}}, lt.RecommendedIndexes())
}

func TestSaveLoad_RoundTripsThroughAttributes(t *testing.T) {
	ctx := context.Background()
	m := newMemAttrs()

	lt := Default()
	lt.ConnectionName = "logdb"
	lt.TableName = "trans_log"
	lt.Interval = "15"
	lt.SizeLimit = "10000"
	lt.TimeoutDays = "30"
	lt.SetLogFieldUsed(false)
	lt.Field(LinesRead).Subject = "read input"
	lt.Field(Status).Name = "RUN_STATUS"

	require.NoError(t, lt.SaveTo(ctx, m, 7))

	got := Default()
	require.NoError(t, got.LoadFrom(ctx, m, 7))
	assert.Equal(t, lt, got)

	// Another transformation has nothing stored.
	empty := Default()
	require.NoError(t, empty.LoadFrom(ctx, m, 8))
	assert.Equal(t, Default(), empty)
}

func TestLoad_UnknownIDFallsBackToPosition(t *testing.T) {
	ctx := context.Background()
	m := newMemAttrs()

	_, err := m.SaveAt(ctx, 1, 1, 0, Code+propFieldID, attr.String("RENAMED_BATCH"))
	require.NoError(t, err)
	_, err = m.SaveAt(ctx, 1, 1, 0, Code+propFieldName, attr.String("BATCH"))
	require.NoError(t, err)
	_, err = m.SaveAt(ctx, 1, 1, 0, Code+propFieldEnabled, attr.Bool(true))
	require.NoError(t, err)

	lt := Default()
	require.NoError(t, lt.LoadFrom(ctx, m, 1))
	assert.Equal(t, "BATCH", lt.Fields[0].Name)
	assert.Equal(t, IDBatch, lt.Fields[0].ID)
}

func TestMerge(t *testing.T) {
	lt := Default()
	lt.Merge(&TransLogTable{
		ConnectionName: "logdb",
		TableName:      "trans_log",
		Fields: []Field{
			{ID: LogField, Enabled: false},
			{ID: LinesWritten, Name: "WRITTEN", Enabled: true, Subject: "write output"},
			{ID: "UNKNOWN", Enabled: true},
		},
	})

	assert.True(t, lt.Defined())
	assert.False(t, lt.LogFieldUsed())
	assert.Equal(t, "LOG_FIELD", lt.Field(LogField).Name)
	assert.Equal(t, "WRITTEN", lt.Field(LinesWritten).Name)
	assert.Equal(t, "write output", lt.Field(LinesWritten).Subject)
	assert.Len(t, lt.Fields, 17)
}
