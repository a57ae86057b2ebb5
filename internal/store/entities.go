package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/attrstore/internal/attr"
	"github.com/roach88/attrstore/internal/ids"
	"github.com/roach88/attrstore/internal/querysql"
)

// Entity is a named row owning attributes: a transformation, step, job or
// job entry.
type Entity struct {
	ID       int64
	ParentID int64 // transformation of a step, job of a job entry; 0 otherwise
	Name     string
}

// InsertTransformation creates a transformation and returns its id.
func (s *Store) InsertTransformation(ctx context.Context, name string) (int64, error) {
	return s.insertEntity(ctx, TransformationKey, "INSERT INTO r_transformation (id_transformation, name) VALUES (?, ?)", name)
}

// InsertStep creates a step of transformation transID and returns its id.
func (s *Store) InsertStep(ctx context.Context, transID int64, name string) (int64, error) {
	return s.insertEntity(ctx, StepKey, "INSERT INTO r_step (id_step, id_transformation, name) VALUES (?, ?, ?)", transID, name)
}

// InsertJob creates a job and returns its id.
func (s *Store) InsertJob(ctx context.Context, name string) (int64, error) {
	return s.insertEntity(ctx, JobKey, "INSERT INTO r_job (id_job, name) VALUES (?, ?)", name)
}

// InsertJobEntry creates an entry of job jobID and returns its id.
func (s *Store) InsertJobEntry(ctx context.Context, jobID int64, name string) (int64, error) {
	return s.insertEntity(ctx, JobEntryKey, "INSERT INTO r_jobentry (id_jobentry, id_job, name) VALUES (?, ?, ?)", jobID, name)
}

func (s *Store) insertEntity(ctx context.Context, key ids.Key, query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := "insert " + key.Table
	if err := s.check(op); err != nil {
		return 0, err
	}
	id, err := s.nextID(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	if _, err := s.conn.ExecContext(ctx, query, append([]any{id}, args...)...); err != nil {
		return 0, &Error{Code: ErrCodeConnection, Op: op, Err: err}
	}
	return id, nil
}

// LookupID returns the smallest idColumn of table whose lookupColumn equals
// value. Each extra pair in keys adds an equality on a further column
// (column name, value). found is false when no row matches.
func (s *Store) LookupID(ctx context.Context, table, idColumn, lookupColumn string, value any, keys ...any) (id int64, found bool, err error) {
	if len(keys)%2 != 0 {
		return 0, false, &Error{Code: ErrCodeUsage, Op: "lookup id", Err: errors.New("keys must be column/value pairs")}
	}
	cols := make([]string, 0, len(keys)/2)
	args := []any{value}
	for i := 0; i < len(keys); i += 2 {
		col, ok := keys[i].(string)
		if !ok {
			return 0, false, &Error{Code: ErrCodeUsage, Op: "lookup id", Err: fmt.Errorf("key column %v is not a string", keys[i])}
		}
		cols = append(cols, col)
		args = append(args, keys[i+1])
	}

	query, err := querysql.LookupID(table, idColumn, lookupColumn, cols...)
	if err != nil {
		return 0, false, &Error{Code: ErrCodeUsage, Op: "lookup id", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("lookup id"); err != nil {
		return 0, false, err
	}
	if err := s.begin(ctx); err != nil {
		return 0, false, err
	}
	err = s.conn.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &Error{Code: ErrCodeConnection, Op: "lookup id " + table, Err: err}
	}
	return id, true, nil
}

// TransformationID returns the id of the transformation called name.
func (s *Store) TransformationID(ctx context.Context, name string) (int64, bool, error) {
	return s.LookupID(ctx, TransformationKey.Table, TransformationKey.Column, "name", name)
}

// StepID returns the id of the step called name in transformation transID.
func (s *Store) StepID(ctx context.Context, transID int64, name string) (int64, bool, error) {
	return s.LookupID(ctx, StepKey.Table, StepKey.Column, "name", name, "id_transformation", transID)
}

// JobID returns the id of the job called name.
func (s *Store) JobID(ctx context.Context, name string) (int64, bool, error) {
	return s.LookupID(ctx, JobKey.Table, JobKey.Column, "name", name)
}

// JobEntryID returns the id of the entry called name in job jobID.
func (s *Store) JobEntryID(ctx context.Context, jobID int64, name string) (int64, bool, error) {
	return s.LookupID(ctx, JobEntryKey.Table, JobEntryKey.Column, "name", name, "id_job", jobID)
}

// Entities lists the rows of an entity table ordered by id. kind selects
// the table through the attribute kind that owns rows of it.
func (s *Store) Entities(ctx context.Context, kind attr.Kind) ([]Entity, error) {
	var query string
	switch kind.Name {
	case attr.Trans.Name:
		query = "SELECT id_transformation, 0, name FROM r_transformation ORDER BY id_transformation"
	case attr.Step.Name:
		query = "SELECT id_step, id_transformation, name FROM r_step ORDER BY id_step"
	case attr.Job.Name:
		query = "SELECT id_job, 0, name FROM r_job ORDER BY id_job"
	case attr.JobEntry.Name:
		query = "SELECT id_jobentry, id_job, name FROM r_jobentry ORDER BY id_jobentry"
	default:
		return nil, usageError("list entities", kind, errors.New("unknown kind"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("list entities"); err != nil {
		return nil, err
	}
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, connectionError("list entities", kind, "", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.ParentID, &e.Name); err != nil {
			return nil, connectionError("list entities", kind, "", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, connectionError("list entities", kind, "", err)
	}
	return out, nil
}
