package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/attrstore/internal/attr"
	"github.com/roach88/attrstore/internal/ids"
	"github.com/roach88/attrstore/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added name lookup indexes on r_step and r_jobentry
const currentSchemaVersion = 1

// DefaultBatchSize is the pending-row threshold that triggers a flush when
// Options.BatchSize is not set.
const DefaultBatchSize = 1000

// DefaultBusyTimeout is used when Options.BusyTimeout is not set.
const DefaultBusyTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	// Logger receives store logs. Nil uses slog.Default().
	Logger *slog.Logger

	// Allocator hands out surrogate ids. Stores sharing one allocator never
	// hand out the same id for the same table. Nil creates a private one.
	Allocator *ids.Allocator

	// UseBatch defers inserts until BatchSize rows are pending or the
	// channel is closed. When false every save executes immediately.
	UseBatch bool

	// BatchSize is the flush threshold. Zero means DefaultBatchSize.
	BatchSize int

	// ConversionPolicy applies to buffers built by FillBuffer.
	ConversionPolicy attr.ConversionPolicy

	// BusyTimeout is how long SQLite waits on a locked database.
	BusyTimeout time.Duration
}

// Store is an attribute store backed by a single SQLite connection.
// All public operations are serialized; a Store may be shared between
// goroutines but never executes two statements at once.
type Store struct {
	mu sync.Mutex

	db     *sql.DB
	conn   *sql.Conn
	path   string
	opts   Options
	alloc  *ids.Allocator
	logger *slog.Logger

	autoCommit bool
	inTx       bool

	sql     map[string]querysql.Statements
	lookups map[string]*sql.Stmt
	inserts map[string]*insertChannel
	buffers map[string]*attr.Buffer

	stats Stats
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - a busy timeout for lock contention (Options.BusyTimeout)
//
// The store starts in autocommit mode. It is idempotent to open the same
// path repeatedly.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Allocator == nil {
		opts.Allocator = ids.New(opts.Logger)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	logger := opts.Logger.With("component", "store", "session", uuid.NewString())

	busy := strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10)
	db, err := sql.Open(driverName, dsn(path, [][2]string{{"busy_timeout", busy}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Prepared statements and BEGIN/COMMIT must all run on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, conn); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(ctx, conn); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:         db,
		conn:       conn,
		path:       path,
		opts:       opts,
		alloc:      opts.Allocator,
		logger:     logger,
		autoCommit: true,
		sql:        make(map[string]querysql.Statements),
		lookups:    make(map[string]*sql.Stmt),
		inserts:    make(map[string]*insertChannel),
		buffers:    make(map[string]*attr.Buffer),
	}
	for _, k := range attr.Kinds() {
		s.sql[k.Name] = querysql.Compile(k)
	}

	logger.Info("opened attribute store", "path", path, "driver", driverName,
		"batch", opts.UseBatch, "batch_size", opts.BatchSize)
	return s, nil
}

// Close releases every statement and the connection. Rows still pending in
// insert channels are discarded and an open transaction is rolled back.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	if n := s.pendingRows(); n > 0 {
		s.logger.Warn("discarding unflushed rows on close", "rows", n)
	}
	for name, ch := range s.inserts {
		ch.stmt.Close()
		delete(s.inserts, name)
	}
	s.closeLookups()

	if s.inTx {
		if _, err := s.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
			s.logger.Warn("rollback on close failed", "error", err)
		}
		s.inTx = false
	}

	connErr := s.conn.Close()
	dbErr := s.db.Close()
	s.conn = nil

	s.logger.Info("closed attribute store", "path", s.path)
	if connErr != nil {
		return connErr
	}
	return dbErr
}

// Allocator returns the id allocator the store draws from.
func (s *Store) Allocator() *ids.Allocator {
	return s.alloc
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// check returns ErrClosed as a usage error once Close has run.
// Callers must hold s.mu.
func (s *Store) check(op string) error {
	if s.conn == nil {
		return usageError(op, attr.Kind{}, ErrClosed)
	}
	return nil
}

// applyPragmas sets required SQLite configuration on the pinned connection.
func applyPragmas(ctx context.Context, conn *sql.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(ctx, conn); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(ctx context.Context, conn *sql.Conn) error {
	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(ctx, conn); err != nil {
			return err
		}
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the name indexes used by LookupID on entity tables.
func migrateToV1(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_step_name ON r_step(id_transformation, name);
		CREATE INDEX IF NOT EXISTS idx_jobentry_name ON r_jobentry(id_job, name);
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.conn.QueryRowContext(context.Background(), query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
