package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attrstore/internal/attr"
)

func TestSaveThenGet_ReturnsLastSavedValue(t *testing.T) {
	for _, batch := range []bool{false, true} {
		t.Run(fmt.Sprintf("batch=%v", batch), func(t *testing.T) {
			ctx := context.Background()
			s := createTestStore(t, Options{UseBatch: batch})
			steps := s.StepAttributes()

			_, err := steps.Save(ctx, 1, 10, "type", attr.String("TableInput"))
			require.NoError(t, err)
			_, err = steps.Save(ctx, 1, 10, "type", attr.String("TableOutput"))
			require.NoError(t, err)
			_, err = steps.SaveAt(ctx, 1, 10, 2, "field_name", attr.String("amount"))
			require.NoError(t, err)

			got, ok, err := steps.Text(ctx, 10, "type")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "TableOutput", got)

			got, ok, err = steps.TextAt(ctx, 10, 2, "field_name")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "amount", got)

			// Overwrite replaced the row instead of adding one.
			require.NoError(t, s.Flush(ctx, attr.Step))
			assert.Equal(t, 2, countRows(t, s, attr.Step))
		})
	}
}

func TestSaveThenGet_AllKindsAndTypes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})

	for _, k := range attr.Kinds() {
		a := s.Attributes(k)
		scope, owner := int64(3), int64(30)
		if !k.Scoped() {
			owner = scope
		}

		_, err := a.Save(ctx, scope, owner, "text", attr.String("hello"))
		require.NoError(t, err, k.Name)
		_, err = a.Save(ctx, scope, owner, "count", attr.Integer(42))
		require.NoError(t, err, k.Name)
		_, err = a.Save(ctx, scope, owner, "ratio", attr.Number(0.25))
		require.NoError(t, err, k.Name)
		_, err = a.Save(ctx, scope, owner, "enabled", attr.Bool(true))
		require.NoError(t, err, k.Name)

		text, ok, err := a.Text(ctx, owner, "text")
		require.NoError(t, err, k.Name)
		assert.True(t, ok)
		assert.Equal(t, "hello", text, k.Name)

		n, err := a.Integer(ctx, owner, "count")
		require.NoError(t, err, k.Name)
		assert.Equal(t, int64(42), n, k.Name)

		f, err := a.Number(ctx, owner, "ratio")
		require.NoError(t, err, k.Name)
		assert.Equal(t, 0.25, f, k.Name)

		b, err := a.Boolean(ctx, owner, "enabled")
		require.NoError(t, err, k.Name)
		assert.True(t, b, k.Name)
	}
}

func TestGet_AbsentDecodesToDefaults(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})
	jobs := s.JobAttributes()

	text, ok, err := jobs.Text(ctx, 1, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)

	n, err := jobs.Integer(ctx, 1, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := jobs.Number(ctx, 1, "missing")
	require.NoError(t, err)
	assert.Zero(t, f)

	b, err := jobs.Boolean(ctx, 1, "missing")
	require.NoError(t, err)
	assert.False(t, b)

	b, err = jobs.BooleanOr(ctx, 1, "missing", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestGet_BooleanEmptyUsesDefault(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})
	jobs := s.JobAttributes()

	_, err := jobs.Save(ctx, 1, 1, "flag", attr.String(""))
	require.NoError(t, err)

	b, err := jobs.BooleanOr(ctx, 1, "flag", true)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = jobs.Boolean(ctx, 1, "flag")
	require.NoError(t, err)
	assert.False(t, b)
}

func TestGet_UnrecognizedBooleanIsConversionError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})
	jobs := s.JobAttributes()

	_, err := jobs.Save(ctx, 1, 1, "flag", attr.String("maybe"))
	require.NoError(t, err)

	_, err = jobs.Boolean(ctx, 1, "flag")
	assert.True(t, IsConversionError(err))

	// An explicit default absorbs the failure.
	b, err := jobs.BooleanOr(ctx, 1, "flag", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestGet_UndecodableNumberIsConversionError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})

	execRaw(t, s, `INSERT INTO r_job_attribute (id_job_attribute, id_job, code, nr, value_num, value_str)
		VALUES (1, 5, 'size', 0, 'not-a-number', NULL)`)

	_, err := s.JobAttributes().Integer(ctx, 5, "size")
	require.Error(t, err)
	assert.True(t, IsConversionError(err))
	assert.ErrorIs(t, err, attr.ErrConversion)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "job", se.Kind)
	assert.Equal(t, "size", se.Attribute)
}

func TestSave_Validation(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})

	_, err := s.Save(ctx, attr.Trans, 1, 2, 0, "x", attr.String("y"))
	assert.True(t, IsUsageError(err), "scope must equal owner for unscoped kinds")

	_, err = s.Save(ctx, attr.Step, 1, 2, -1, "x", attr.String("y"))
	assert.True(t, IsUsageError(err), "negative nr")
}

func TestSave_NormalizesCode(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})
	steps := s.StepAttributes()

	_, err := steps.Save(ctx, 1, 1, "cafe\u0301", attr.String("decomposed"))
	require.NoError(t, err)

	got, ok, err := steps.Text(ctx, 1, "caf\u00e9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "decomposed", got)
}

func TestCount_Database(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	steps := s.StepAttributes()

	for _, nr := range []int64{0, 1, 2} {
		_, err := steps.SaveAt(ctx, 1, 10, nr, "field", attr.String(fmt.Sprintf("f%d", nr)))
		require.NoError(t, err)
	}
	for _, nr := range []int64{0, 2} {
		_, err := steps.SaveAt(ctx, 1, 11, nr, "field", attr.String(fmt.Sprintf("g%d", nr)))
		require.NoError(t, err)
	}

	n, err := steps.Count(ctx, 10, "field")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// COUNT(*) does not stop at the gap.
	n, err = steps.Count(ctx, 11, "field")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = steps.Count(ctx, 12, "field")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCount_BufferStopsAtGap(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	steps := s.StepAttributes()

	for _, nr := range []int64{0, 1, 2} {
		_, err := steps.SaveAt(ctx, 1, 10, nr, "field", attr.String("x"))
		require.NoError(t, err)
	}
	for _, nr := range []int64{0, 2} {
		_, err := steps.SaveAt(ctx, 1, 11, nr, "field", attr.String("x"))
		require.NoError(t, err)
	}

	_, err := s.FillBuffer(ctx, attr.Step, 1)
	require.NoError(t, err)

	n, err := steps.Count(ctx, 10, "field")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = steps.Count(ctx, 11, "field")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = steps.Count(ctx, 12, "field")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindAttributeID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})

	id, err := s.Save(ctx, attr.Step, 1, 10, 0, "type", attr.String("Dummy"))
	require.NoError(t, err)

	got, err := s.FindAttributeID(ctx, attr.Step, 10, 0, "type")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = s.FindAttributeID(ctx, attr.Step, 10, 1, "type")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)

	_, err = s.FillBuffer(ctx, attr.Step, 1)
	require.NoError(t, err)

	got, err = s.FindAttributeID(ctx, attr.Step, 10, 0, "TYPE")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = s.FindAttributeID(ctx, attr.Step, 99, 0, "type")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got)
}

func TestList_OrderedByNumericSlot(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})

	execRaw(t, s, `INSERT INTO r_trans_attribute (id_trans_attribute, id_transformation, code, nr, value_num, value_str)
		VALUES (1, 4, 'partition', 0, 3, 'c'), (2, 4, 'other', 0, 1, 'a')`)

	recs, err := s.List(ctx, attr.Trans, 4, 0, "partition")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, int64(4), recs[0].OwnerID)
	assert.Equal(t, float64(3), recs[0].Value.Num)

	recs, err = s.List(ctx, attr.Trans, 4, 5, "partition")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDeleteScope(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	steps := s.StepAttributes()

	for owner := int64(10); owner < 13; owner++ {
		_, err := steps.Save(ctx, 1, owner, "type", attr.String("Dummy"))
		require.NoError(t, err)
	}
	_, err := steps.Save(ctx, 2, 20, "type", attr.String("Dummy"))
	require.NoError(t, err)

	n, err := s.DeleteScope(ctx, attr.Step, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, countRows(t, s, attr.Step))
}
