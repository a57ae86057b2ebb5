package store

import (
	"context"
	"fmt"

	"github.com/roach88/attrstore/internal/attr"
)

// FillBuffer loads every attribute row of kind in scopeID into a sorted
// snapshot and makes it the active buffer for kind. Gets and counts for kind
// are answered from the buffer until SetBuffer(kind, nil) discards it.
//
// Pending rows of kind are flushed before loading. Rows saved afterwards do
// not appear in the buffer.
func (s *Store) FillBuffer(ctx context.Context, kind attr.Kind, scopeID int64) (*attr.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("fill buffer"); err != nil {
		return nil, err
	}
	if err := s.flushKind(ctx, kind); err != nil {
		return nil, err
	}
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	raws, err := s.queryRaw(ctx, kind, s.sql[kind.Name].Fill, scopeID)
	if err != nil {
		return nil, connectionError("fill buffer", kind, "", err)
	}

	b := attr.NewBuffer(kind, scopeID, raws, s.opts.ConversionPolicy)
	s.buffers[kind.Name] = b
	s.logger.Debug("filled buffer", "kind", kind.Name, "scope", scopeID,
		"rows", b.Len(), "corrupt", b.Corrupt())
	return b, nil
}

// Buffer returns kind's active buffer, or nil.
func (s *Store) Buffer(kind attr.Kind) *attr.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffers[kind.Name]
}

// SetBuffer installs b as kind's active buffer. A nil b discards it. A
// buffer loaded for another kind is refused with ErrBufferKind.
func (s *Store) SetBuffer(kind attr.Kind, b *attr.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b == nil {
		delete(s.buffers, kind.Name)
		return nil
	}
	if b.Kind().Name != kind.Name {
		return usageError("set buffer", kind, fmt.Errorf("%w: %s", ErrBufferKind, b.Kind().Name))
	}
	s.buffers[kind.Name] = b
	return nil
}

// activeBuffer returns the buffer that answers reads for ownerID of kind.
// For kinds whose owner is its own scope the buffer only serves its scope;
// other owners fall through to the database.
func (s *Store) activeBuffer(kind attr.Kind, ownerID int64) *attr.Buffer {
	b := s.buffers[kind.Name]
	if b == nil {
		return nil
	}
	if !kind.Scoped() && b.ScopeID() != ownerID {
		return nil
	}
	return b
}
