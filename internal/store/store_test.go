package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attrstore/internal/attr"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	openTestStore(t, path, Options{})

	_, err := os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(ctx, path, Options{Logger: quietLogger()})
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s := openTestStore(t, path, Options{})
	tables := []string{
		"r_transformation", "r_step", "r_job", "r_jobentry",
		"r_step_attribute", "r_trans_attribute", "r_job_attribute", "r_jobentry_attribute",
	}
	for _, table := range tables {
		var name string
		err := s.conn.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t, Options{})

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Defaults(t *testing.T) {
	s := createTestStore(t, Options{})

	assert.Equal(t, DefaultBatchSize, s.opts.BatchSize)
	assert.NotNil(t, s.Allocator())
	assert.True(t, s.AutoCommit())
}

func TestOpen_DataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(ctx, path, Options{Logger: quietLogger()})
	require.NoError(t, err)
	_, err = s1.Save(ctx, attr.Trans, 7, 7, 0, "name", attr.String("load_sales"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2 := openTestStore(t, path, Options{})
	got, ok, err := s2.TransAttributes().Text(ctx, 7, "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "load_sales", got)
}

func TestClose_Idempotent(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), Options{Logger: quietLogger()})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestClose_OperationsFailAfterwards(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"), Options{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Save(ctx, attr.Step, 1, 1, 0, "x", attr.String("y"))
	assert.True(t, IsUsageError(err))
	assert.ErrorIs(t, err, ErrClosed)

	_, _, err = s.Get(ctx, attr.Step, 1, 0, "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_DiscardsPendingRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(ctx, path, Options{Logger: quietLogger(), UseBatch: true})
	require.NoError(t, err)
	_, err = s1.Save(ctx, attr.Job, 1, 1, 0, "name", attr.String("nightly"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2 := openTestStore(t, path, Options{})
	assert.Equal(t, 0, countRows(t, s2, attr.Job))
}
