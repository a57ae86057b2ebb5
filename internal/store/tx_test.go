package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attrstore/internal/attr"
)

func TestCommit_RefusedWithPendingInserts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	require.NoError(t, s.SetAutoCommit(ctx, false))

	_, err := s.Save(ctx, attr.Step, 1, 1, 0, "type", attr.String("Dummy"))
	require.NoError(t, err)

	err = s.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
	assert.ErrorIs(t, err, ErrPendingInserts)
	assert.Equal(t, 1, s.Pending(attr.Step), "a refused commit must not drop rows")

	require.NoError(t, s.CloseInsert(ctx, attr.Step))
	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, 1, countRows(t, s, attr.Step))
}

func TestCommit_ClosesLookupsAndClearsAllocator(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{})

	_, err := s.Save(ctx, attr.Job, 1, 1, 0, "name", attr.String("nightly"))
	require.NoError(t, err)
	_, _, err = s.Get(ctx, attr.Job, 1, 0, "name")
	require.NoError(t, err)
	require.True(t, s.Allocator().Live(attr.Job.IDKey()))

	require.NoError(t, s.Commit(ctx))
	assert.Empty(t, s.lookups)
	assert.False(t, s.Allocator().Live(attr.Job.IDKey()))
}

func TestCloseInsert_CommitsInManualMode(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	require.NoError(t, s.SetAutoCommit(ctx, false))

	_, err := s.Save(ctx, attr.Step, 1, 1, 0, "type", attr.String("Dummy"))
	require.NoError(t, err)
	_, err = s.Save(ctx, attr.Trans, 1, 1, 0, "name", attr.String("t"))
	require.NoError(t, err)

	// Trans rows are still pending, so the transaction stays open.
	require.NoError(t, s.CloseInsert(ctx, attr.Step))
	assert.True(t, s.inTx)

	require.NoError(t, s.CloseInsert(ctx, attr.Trans))
	assert.False(t, s.inTx)
}

func TestRollback_DiscardsWork(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	require.NoError(t, s.SetAutoCommit(ctx, false))

	_, err := s.Save(ctx, attr.Step, 1, 1, 0, "flushed", attr.String("x"))
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx, attr.Step))
	_, err = s.Save(ctx, attr.Step, 1, 1, 0, "pending", attr.String("y"))
	require.NoError(t, err)

	require.NoError(t, s.Rollback(ctx))
	assert.Zero(t, s.Pending(attr.Step))
	assert.Zero(t, countRows(t, s, attr.Step))
	assert.False(t, s.Allocator().Live(attr.Step.IDKey()))
}

func TestRollback_NeverReusesIDs(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	require.NoError(t, s.SetAutoCommit(ctx, false))

	var before []int64
	for i := 0; i < 3; i++ {
		id, err := s.Save(ctx, attr.Trans, 1, 1, int64(i), "x", attr.Integer(int64(i)))
		require.NoError(t, err)
		before = append(before, id)
	}
	require.NoError(t, s.Rollback(ctx))

	id, err := s.Save(ctx, attr.Trans, 1, 1, 0, "x", attr.Integer(0))
	require.NoError(t, err)
	assert.NotContains(t, before, id)
	assert.Greater(t, id, before[len(before)-1])
}

func TestSetAutoCommit_RefusedWithPendingInserts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	require.NoError(t, s.SetAutoCommit(ctx, false))

	_, err := s.Save(ctx, attr.Job, 1, 1, 0, "name", attr.String("x"))
	require.NoError(t, err)
	require.True(t, s.inTx)

	err = s.SetAutoCommit(ctx, true)
	assert.ErrorIs(t, err, ErrPendingInserts)
	assert.False(t, s.AutoCommit())

	require.NoError(t, s.Flush(ctx, attr.Job))
	require.NoError(t, s.SetAutoCommit(ctx, true))
	assert.True(t, s.AutoCommit())
	assert.False(t, s.inTx)
	assert.Equal(t, 1, countRows(t, s, attr.Job))
}

func TestConnectDisconnect(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})

	require.NoError(t, s.Connect(ctx))
	assert.False(t, s.AutoCommit())
	assert.Len(t, s.lookups, 3)
	for _, k := range []attr.Kind{attr.Step, attr.Trans, attr.JobEntry} {
		assert.Contains(t, s.lookups, k.Name)
	}

	_, err := s.Save(ctx, attr.JobEntry, 1, 2, 0, "type", attr.String("SPECIAL"))
	require.NoError(t, err)
	require.NoError(t, s.CloseInsert(ctx, attr.JobEntry))

	require.NoError(t, s.Disconnect(ctx))
	assert.Empty(t, s.lookups)
	assert.Equal(t, 1, countRows(t, s, attr.JobEntry))
}

func TestDisconnect_RefusedWithPendingInserts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{UseBatch: true})
	require.NoError(t, s.Connect(ctx))

	_, err := s.Save(ctx, attr.Step, 1, 2, 0, "type", attr.String("Dummy"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Disconnect(ctx), ErrPendingInserts)
}
