package store

import (
	"context"
	"fmt"

	"github.com/roach88/attrstore/internal/attr"
)

// connectLookups are the kinds whose lookup channels Connect prepares.
var connectLookups = []attr.Kind{attr.Step, attr.Trans, attr.JobEntry}

// begin opens a transaction when the store is in manual-commit mode and none
// is active. Callers must hold s.mu.
func (s *Store) begin(ctx context.Context) error {
	if s.autoCommit || s.inTx {
		return nil
	}
	if _, err := s.conn.ExecContext(ctx, "BEGIN"); err != nil {
		return connectionError("begin", attr.Kind{}, "", err)
	}
	s.inTx = true
	return nil
}

// commit ends the active transaction, if any. Callers must hold s.mu.
func (s *Store) commit(ctx context.Context) error {
	if !s.inTx {
		return nil
	}
	if _, err := s.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return connectionError("commit", attr.Kind{}, "", err)
	}
	s.inTx = false
	return nil
}

// AutoCommit reports whether every statement commits on its own.
func (s *Store) AutoCommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCommit
}

// SetAutoCommit switches between autocommit and manual-commit mode. In
// manual mode a transaction begins before the next statement and lasts
// until Commit or Rollback. Switching back to autocommit commits the active
// transaction and is refused while insert channels hold unflushed rows.
func (s *Store) SetAutoCommit(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("set autocommit"); err != nil {
		return err
	}
	if on && s.inTx {
		if n := s.pendingRows(); n > 0 {
			return usageError("set autocommit", attr.Kind{}, fmt.Errorf("%w: %d rows", ErrPendingInserts, n))
		}
		if err := s.commit(ctx); err != nil {
			return err
		}
	}
	s.autoCommit = on
	return nil
}

// Commit makes the current unit of work durable. It is refused while any
// insert channel holds unflushed rows: close the channels first. Commit
// releases the lookup channels and clears the id allocator so the next id
// is derived from storage again.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("commit"); err != nil {
		return err
	}
	if n := s.pendingRows(); n > 0 {
		return usageError("commit", attr.Kind{}, fmt.Errorf("%w: %d rows", ErrPendingInserts, n))
	}

	s.closeLookups()
	if err := s.commit(ctx); err != nil {
		return err
	}
	s.alloc.Clear()

	s.logger.Info("committed")
	return nil
}

// Rollback discards rows pending in insert channels, rolls back the active
// transaction and clears the id allocator. Ids handed out before the
// rollback are never handed out again.
func (s *Store) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("rollback"); err != nil {
		return err
	}

	discarded := 0
	for _, ch := range s.inserts {
		discarded += len(ch.pending)
		ch.pending = nil
	}

	var err error
	if s.inTx {
		if _, execErr := s.conn.ExecContext(ctx, "ROLLBACK"); execErr != nil {
			err = connectionError("rollback", attr.Kind{}, "", execErr)
		}
		s.inTx = false
	}
	s.alloc.Clear()

	s.logger.Info("rolled back", "discarded", discarded)
	return err
}

// Connect starts a unit of work: it leaves autocommit mode and prepares the
// lookup channels for step, transformation and job-entry attributes.
func (s *Store) Connect(ctx context.Context) error {
	if err := s.SetAutoCommit(ctx, false); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range connectLookups {
		if _, err := s.lookupStmt(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect ends a unit of work started by Connect: it releases the lookup
// channels and commits when not in autocommit mode. The store stays open.
func (s *Store) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	for _, k := range connectLookups {
		s.closeLookup(k)
	}
	manual := !s.autoCommit
	s.mu.Unlock()

	if manual {
		return s.Commit(ctx)
	}
	return nil
}
