package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/attrstore/internal/attr"
)

// insertChannel is a prepared insert statement plus the rows waiting for the
// next flush.
type insertChannel struct {
	kind    attr.Kind
	stmt    *sql.Stmt
	pending []pendingRow
}

type pendingRow struct {
	code string
	args []any
}

// OpenInsert prepares the insert channel for kind. Opening a channel that is
// already open is a usage error; Save opens channels on demand, so calling
// OpenInsert is only needed to prepare ahead of time.
func (s *Store) OpenInsert(ctx context.Context, kind attr.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("open insert"); err != nil {
		return err
	}
	if _, ok := s.inserts[kind.Name]; ok {
		return usageError("open insert", kind, ErrChannelOpen)
	}
	_, err := s.insertChannel(ctx, kind)
	return err
}

// CloseInsert flushes the rows pending in kind's insert channel as one batch
// and releases the statement. When the store is in manual-commit mode and no
// other channel holds pending rows, the transaction is committed. Closing a
// channel that was never opened is a usage error.
//
// A failed flush discards the pending rows; the returned error says how
// many.
func (s *Store) CloseInsert(ctx context.Context, kind attr.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("close insert"); err != nil {
		return err
	}
	ch, ok := s.inserts[kind.Name]
	if !ok {
		return usageError("close insert", kind, ErrChannelNotOpen)
	}

	flushErr := s.flush(ctx, ch)
	ch.stmt.Close()
	delete(s.inserts, kind.Name)
	if flushErr != nil {
		return flushErr
	}

	if s.pendingRows() == 0 {
		return s.commit(ctx)
	}
	return nil
}

// Flush executes the rows pending in kind's insert channel without closing
// it. It is a no-op when the channel is closed or empty.
func (s *Store) Flush(ctx context.Context, kind attr.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("flush"); err != nil {
		return err
	}
	return s.flushKind(ctx, kind)
}

// Pending returns how many rows kind's insert channel is holding.
func (s *Store) Pending(kind attr.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.inserts[kind.Name]; ok {
		return len(ch.pending)
	}
	return 0
}

// OpenLookup prepares kind's lookup channel. It is a no-op when the channel
// is already open.
func (s *Store) OpenLookup(ctx context.Context, kind attr.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("open lookup"); err != nil {
		return err
	}
	_, err := s.lookupStmt(ctx, kind)
	return err
}

// CloseLookup releases kind's lookup channel. It is safe to call when none
// is open.
func (s *Store) CloseLookup(kind attr.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLookup(kind)
}

// insertChannel returns kind's insert channel, preparing it on first use.
// Callers must hold s.mu.
func (s *Store) insertChannel(ctx context.Context, kind attr.Kind) (*insertChannel, error) {
	if ch, ok := s.inserts[kind.Name]; ok {
		return ch, nil
	}

	stmt, err := s.conn.PrepareContext(ctx, s.sql[kind.Name].Insert)
	if err != nil {
		return nil, connectionError("prepare insert", kind, "", err)
	}
	s.stats.Prepares++
	s.logger.Debug("prepared insert channel", "kind", kind.Name)

	ch := &insertChannel{kind: kind, stmt: stmt}
	s.inserts[kind.Name] = ch
	return ch, nil
}

// lookupStmt returns kind's lookup statement, preparing it on first use.
// Callers must hold s.mu.
func (s *Store) lookupStmt(ctx context.Context, kind attr.Kind) (*sql.Stmt, error) {
	if stmt, ok := s.lookups[kind.Name]; ok {
		return stmt, nil
	}

	stmt, err := s.conn.PrepareContext(ctx, s.sql[kind.Name].Lookup)
	if err != nil {
		return nil, connectionError("prepare lookup", kind, "", err)
	}
	s.stats.Prepares++
	s.logger.Debug("prepared lookup channel", "kind", kind.Name)

	s.lookups[kind.Name] = stmt
	return stmt, nil
}

func (s *Store) closeLookup(kind attr.Kind) {
	if stmt, ok := s.lookups[kind.Name]; ok {
		stmt.Close()
		delete(s.lookups, kind.Name)
	}
}

func (s *Store) closeLookups() {
	for _, k := range attr.Kinds() {
		s.closeLookup(k)
	}
}

// pendingRows counts unflushed rows across all insert channels.
func (s *Store) pendingRows() int {
	n := 0
	for _, ch := range s.inserts {
		n += len(ch.pending)
	}
	return n
}

// flushKind flushes kind's insert channel if it is open.
func (s *Store) flushKind(ctx context.Context, kind attr.Kind) error {
	ch, ok := s.inserts[kind.Name]
	if !ok {
		return nil
	}
	return s.flush(ctx, ch)
}

// flush executes every pending row of ch inside one savepoint. Either all
// rows land or none do; on failure the rows are dropped from the channel.
func (s *Store) flush(ctx context.Context, ch *insertChannel) error {
	if len(ch.pending) == 0 {
		return nil
	}
	rows := ch.pending
	ch.pending = nil
	start := time.Now()

	lost := func(code string, err error) error {
		return connectionError("flush", ch.kind, code,
			fmt.Errorf("%d pending rows discarded: %w", len(rows), err))
	}

	if err := s.begin(ctx); err != nil {
		return lost("", err)
	}
	if _, err := s.conn.ExecContext(ctx, "SAVEPOINT attr_flush"); err != nil {
		return lost("", err)
	}

	for i, row := range rows {
		if _, err := ch.stmt.ExecContext(ctx, row.args...); err != nil {
			s.abortFlush(ctx)
			return lost(row.code, fmt.Errorf("row %d: %w", i+1, err))
		}
	}

	if _, err := s.conn.ExecContext(ctx, "RELEASE attr_flush"); err != nil {
		s.abortFlush(ctx)
		return lost("", err)
	}

	s.stats.Flushes++
	s.stats.RowsFlushed += int64(len(rows))
	s.logger.Debug("flushed insert channel", "kind", ch.kind.Name, "rows", len(rows),
		"duration", time.Since(start))
	return nil
}

func (s *Store) abortFlush(ctx context.Context) {
	if _, err := s.conn.ExecContext(ctx, "ROLLBACK TO attr_flush"); err != nil {
		s.logger.Warn("rollback to savepoint failed", "error", err)
	}
	if _, err := s.conn.ExecContext(ctx, "RELEASE attr_flush"); err != nil {
		s.logger.Warn("release savepoint failed", "error", err)
	}
}
