package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/attrstore/internal/attr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// createTestStore opens a store on a fresh database file.
func createTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"), opts)
}

func openTestStore(t *testing.T, path string, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s, err := Open(context.Background(), path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// countRows counts the rows of kind's table directly.
func countRows(t *testing.T, s *Store, kind attr.Kind) int {
	t.Helper()
	var n int
	err := s.conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+kind.Table).Scan(&n)
	require.NoError(t, err)
	return n
}

// execRaw runs SQL on the store's connection, bypassing the API.
func execRaw(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	_, err := s.conn.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}
