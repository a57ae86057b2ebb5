package store

import (
	"context"
	"database/sql"

	"github.com/roach88/attrstore/internal/attr"
	"github.com/roach88/attrstore/internal/ids"
	"github.com/roach88/attrstore/internal/querysql"
)

// Entity id columns.
var (
	TransformationKey = ids.Key{Table: "r_transformation", Column: "id_transformation"}
	StepKey           = ids.Key{Table: "r_step", Column: "id_step"}
	JobKey            = ids.Key{Table: "r_job", Column: "id_job"}
	JobEntryKey       = ids.Key{Table: "r_jobentry", Column: "id_jobentry"}
)

// NextID returns the next id for column of table. The first call for a key
// reads MAX(column); later calls are served by the allocator alone.
func (s *Store) NextID(ctx context.Context, table, column string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("next id"); err != nil {
		return 0, err
	}
	return s.nextID(ctx, ids.Key{Table: table, Column: column})
}

func (s *Store) nextID(ctx context.Context, key ids.Key) (int64, error) {
	id, err := s.alloc.Next(ctx, key, s.seeder())
	if err != nil {
		return 0, &Error{Code: ErrCodeConnection, Op: "next id " + key.String(), Err: err}
	}
	return id, nil
}

// NextTransformationID returns the next transformation id.
func (s *Store) NextTransformationID(ctx context.Context) (int64, error) {
	return s.NextID(ctx, TransformationKey.Table, TransformationKey.Column)
}

// NextStepID returns the next step id.
func (s *Store) NextStepID(ctx context.Context) (int64, error) {
	return s.NextID(ctx, StepKey.Table, StepKey.Column)
}

// NextJobID returns the next job id.
func (s *Store) NextJobID(ctx context.Context) (int64, error) {
	return s.NextID(ctx, JobKey.Table, JobKey.Column)
}

// NextJobEntryID returns the next job entry id.
func (s *Store) NextJobEntryID(ctx context.Context) (int64, error) {
	return s.NextID(ctx, JobEntryKey.Table, JobEntryKey.Column)
}

// NextAttributeID returns the next surrogate id for kind's table. Save
// allocates from the same counter.
func (s *Store) NextAttributeID(ctx context.Context, kind attr.Kind) (int64, error) {
	key := kind.IDKey()
	return s.NextID(ctx, key.Table, key.Column)
}

// seeder reads MAX(column) through the store's connection. It runs while
// the caller holds s.mu.
func (s *Store) seeder() ids.Seeder {
	return ids.SeederFunc(func(ctx context.Context, key ids.Key) (int64, bool, error) {
		query, err := querysql.MaxID(key.Table, key.Column)
		if err != nil {
			return 0, false, err
		}
		if err := s.begin(ctx); err != nil {
			return 0, false, err
		}
		var max sql.NullInt64
		if err := s.conn.QueryRowContext(ctx, query).Scan(&max); err != nil {
			return 0, false, err
		}
		return max.Int64, max.Valid, nil
	})
}
