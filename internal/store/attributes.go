package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/attrstore/internal/attr"
)

// Save stores value under (ownerID, code, nr) and returns the id assigned to
// the row. Saving a triple that already exists overwrites it; the row takes
// the new id.
//
// The row goes through kind's insert channel, never the buffer. Without
// batching it is executed immediately; with batching it waits for the batch
// threshold, Flush or CloseInsert. For kinds whose owner is its own scope,
// scopeID must equal ownerID.
func (s *Store) Save(ctx context.Context, kind attr.Kind, scopeID, ownerID, nr int64, code string, value attr.Value) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("save"); err != nil {
		return 0, err
	}
	if !kind.Scoped() && scopeID != ownerID {
		return 0, usageError("save", kind, fmt.Errorf("scope %d differs from owner %d", scopeID, ownerID))
	}
	if nr < 0 {
		return 0, usageError("save", kind, fmt.Errorf("negative nr %d", nr))
	}
	code = attr.NormalizeCode(code)

	ch, err := s.insertChannel(ctx, kind)
	if err != nil {
		return 0, err
	}

	id, err := s.alloc.Next(ctx, kind.IDKey(), s.seeder())
	if err != nil {
		return 0, connectionError("allocate id", kind, code, err)
	}

	num, str := value.Args()
	args := []any{id}
	if kind.Scoped() {
		args = append(args, scopeID)
	}
	args = append(args, ownerID, code, nr, num, str)

	if !s.opts.UseBatch {
		if err := s.begin(ctx); err != nil {
			return 0, err
		}
		if _, err := ch.stmt.ExecContext(ctx, args...); err != nil {
			return 0, connectionError("save", kind, code, err)
		}
		s.stats.DirectInserts++
		return id, nil
	}

	ch.pending = append(ch.pending, pendingRow{code: code, args: args})
	if len(ch.pending) >= s.opts.BatchSize {
		if err := s.flush(ctx, ch); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// Get returns the row stored under (ownerID, code, nr).
//
// When a buffer is active for kind the lookup is answered from it and the
// database is not consulted; codes then match case-insensitively. Otherwise
// kind's pending inserts are flushed and the lookup channel is queried, so a
// saved value is always visible to the next Get.
func (s *Store) Get(ctx context.Context, kind attr.Kind, ownerID, nr int64, code string) (attr.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("get"); err != nil {
		return attr.Record{}, false, err
	}
	return s.get(ctx, kind, ownerID, nr, attr.NormalizeCode(code))
}

func (s *Store) get(ctx context.Context, kind attr.Kind, ownerID, nr int64, code string) (attr.Record, bool, error) {
	if b := s.activeBuffer(kind, ownerID); b != nil {
		rec, ok, err := b.Find(ownerID, code, nr)
		if err != nil {
			return attr.Record{}, false, conversionError("get", kind, code, err)
		}
		if ok {
			s.stats.BufferHits++
		}
		return rec, ok, nil
	}

	if err := s.flushKind(ctx, kind); err != nil {
		return attr.Record{}, false, err
	}
	if err := s.begin(ctx); err != nil {
		return attr.Record{}, false, err
	}
	stmt, err := s.lookupStmt(ctx, kind)
	if err != nil {
		return attr.Record{}, false, err
	}

	s.stats.Lookups++
	var num, str any
	err = stmt.QueryRowContext(ctx, ownerID, code, nr).Scan(&num, &str)
	if errors.Is(err, sql.ErrNoRows) {
		return attr.Record{}, false, nil
	}
	if err != nil {
		return attr.Record{}, false, connectionError("get", kind, code, err)
	}

	v, err := attr.Decode(num, str)
	if err != nil {
		return attr.Record{}, false, conversionError("get", kind, code, err)
	}
	return attr.Record{OwnerID: ownerID, Code: code, Nr: nr, Value: v}, true, nil
}

// Count returns the number of repetitions of code for ownerID.
//
// With an active buffer this is the buffer's repetition scan, which stops
// at the first missing nr. Without one it is COUNT(*) over the table, which
// counts every row regardless of gaps.
func (s *Store) Count(ctx context.Context, kind attr.Kind, ownerID int64, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("count"); err != nil {
		return 0, err
	}
	code = attr.NormalizeCode(code)

	if b := s.activeBuffer(kind, ownerID); b != nil {
		n, err := b.CountRepetitions(ownerID, code)
		if err != nil {
			return 0, conversionError("count", kind, code, err)
		}
		return n, nil
	}

	if err := s.flushKind(ctx, kind); err != nil {
		return 0, err
	}
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.conn.QueryRowContext(ctx, s.sql[kind.Name].Count, ownerID, code).Scan(&n); err != nil {
		return 0, connectionError("count", kind, code, err)
	}
	return n, nil
}

// FindAttributeID returns the id of the row stored under (ownerID, code,
// nr), or -1 when there is none.
func (s *Store) FindAttributeID(ctx context.Context, kind attr.Kind, ownerID, nr int64, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("find attribute id"); err != nil {
		return -1, err
	}
	code = attr.NormalizeCode(code)

	if b := s.activeBuffer(kind, ownerID); b != nil {
		rec, ok, err := b.Find(ownerID, code, nr)
		if err != nil {
			return -1, conversionError("find attribute id", kind, code, err)
		}
		if !ok {
			return -1, nil
		}
		return rec.ID, nil
	}

	if err := s.flushKind(ctx, kind); err != nil {
		return -1, err
	}
	if err := s.begin(ctx); err != nil {
		return -1, err
	}
	var id int64
	err := s.conn.QueryRowContext(ctx, s.sql[kind.Name].LookupID, ownerID, code, nr).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, connectionError("find attribute id", kind, code, err)
	}
	return id, nil
}

// List returns every row stored under (ownerID, code, nr) ordered by the
// numeric slot. It always reads the database.
func (s *Store) List(ctx context.Context, kind attr.Kind, ownerID, nr int64, code string) ([]attr.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("list"); err != nil {
		return nil, err
	}
	code = attr.NormalizeCode(code)

	if err := s.flushKind(ctx, kind); err != nil {
		return nil, err
	}
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	raws, err := s.queryRaw(ctx, kind, s.sql[kind.Name].List, ownerID, code, nr)
	if err != nil {
		return nil, connectionError("list", kind, code, err)
	}

	out := make([]attr.Record, 0, len(raws))
	for _, r := range raws {
		rec, err := decodeRaw(r)
		if err != nil {
			return nil, conversionError("list", kind, code, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteScope removes every attribute row of kind belonging to scopeID and
// returns how many were deleted. Pending rows of kind are flushed first.
func (s *Store) DeleteScope(ctx context.Context, kind attr.Kind, scopeID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("delete scope"); err != nil {
		return 0, err
	}
	if err := s.flushKind(ctx, kind); err != nil {
		return 0, err
	}
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	res, err := s.conn.ExecContext(ctx, s.sql[kind.Name].DeleteScope, scopeID)
	if err != nil {
		return 0, connectionError("delete scope", kind, "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, connectionError("delete scope", kind, "", err)
	}
	s.logger.Debug("deleted scope", "kind", kind.Name, "scope", scopeID, "rows", n)
	return n, nil
}

// queryRaw runs a query returning the seven attribute columns.
func (s *Store) queryRaw(ctx context.Context, kind attr.Kind, query string, args ...any) ([]attr.Raw, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attr.Raw
	for rows.Next() {
		var r attr.Raw
		if err := rows.Scan(&r.ID, &r.ScopeID, &r.OwnerID, &r.Code, &r.Nr, &r.Num, &r.Str); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind.Table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// decodeRaw converts every column of a raw row.
func decodeRaw(r attr.Raw) (attr.Record, error) {
	owner, err := attr.ToInteger(r.OwnerID)
	if err != nil {
		return attr.Record{}, fmt.Errorf("row %d owner: %w", r.ID, err)
	}
	code, err := attr.ToCode(r.Code)
	if err != nil {
		return attr.Record{}, fmt.Errorf("row %d code: %w", r.ID, err)
	}
	nr, err := attr.ToInteger(r.Nr)
	if err != nil {
		return attr.Record{}, fmt.Errorf("row %d nr: %w", r.ID, err)
	}
	v, err := attr.Decode(r.Num, r.Str)
	if err != nil {
		return attr.Record{}, fmt.Errorf("row %d value: %w", r.ID, err)
	}
	return attr.Record{ID: r.ID, ScopeID: r.ScopeID, OwnerID: owner, Code: code, Nr: nr, Value: v}, nil
}
