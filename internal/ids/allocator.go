package ids

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Key identifies the id column of one table.
type Key struct {
	Table  string
	Column string
}

// String returns the "table.column" form used in logs and errors.
func (k Key) String() string {
	return k.Table + "." + k.Column
}

// Seeder reports the highest id currently stored for a key.
// found is false when the table holds no rows.
type Seeder interface {
	MaxID(ctx context.Context, key Key) (max int64, found bool, err error)
}

// SeederFunc adapts a function to the Seeder interface.
type SeederFunc func(ctx context.Context, key Key) (int64, bool, error)

// MaxID calls f(ctx, key).
func (f SeederFunc) MaxID(ctx context.Context, key Key) (int64, bool, error) {
	return f(ctx, key)
}

// slot is the per-key critical section.
type slot struct {
	mu      sync.Mutex
	counter *Counter // nil until seeded
	issued  int64    // highest id ever returned; survives Clear
}

// Allocator hands out unique, increasing ids per Key.
// The zero value is not usable; call New.
type Allocator struct {
	mu     sync.Mutex
	slots  map[Key]*slot
	logger *slog.Logger

	seeds atomic.Int64
}

// New creates an empty allocator. A nil logger discards debug output.
func New(logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Allocator{
		slots:  make(map[Key]*slot),
		logger: logger.With("component", "ids"),
	}
}

// Next returns the next id for key. The first call for a key (and the first
// call after Clear) derives the starting point from seeder; a seeding error
// is returned as is and leaves the key unseeded.
func (a *Allocator) Next(ctx context.Context, key Key, seeder Seeder) (int64, error) {
	s := a.slot(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counter == nil {
		start, err := a.seed(ctx, key, seeder, s.issued)
		if err != nil {
			return 0, err
		}
		s.counter = NewCounterAt(start - 1)
	}

	id := s.counter.Next()
	s.issued = id
	return id, nil
}

// seed computes the first id to hand out for key.
func (a *Allocator) seed(ctx context.Context, key Key, seeder Seeder, issued int64) (int64, error) {
	if seeder == nil {
		return 0, fmt.Errorf("seed %s: no seeder", key)
	}
	a.seeds.Add(1)

	max, found, err := seeder.MaxID(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", key, err)
	}

	start := int64(1)
	if found {
		start = max + 1
		a.logger.Debug("max id found", "key", key.String(), "max", max)
	} else {
		a.logger.Debug("no max id found", "key", key.String())
	}
	if issued >= start {
		start = issued + 1
	}
	return start, nil
}

// slot returns the critical section for key, creating it on first use.
func (a *Allocator) slot(key Key) *slot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.slots[key]
	if !ok {
		s = &slot{}
		a.slots[key] = s
	}
	return s
}

// Clear drops every live counter. The next Next call for any key re-derives
// its starting point from storage.
func (a *Allocator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.slots {
		s.mu.Lock()
		s.counter = nil
		s.mu.Unlock()
	}
	a.logger.Debug("counters cleared", "keys", len(a.slots))
}

// Live reports whether key currently has a seeded counter.
func (a *Allocator) Live(key Key) bool {
	a.mu.Lock()
	s, ok := a.slots[key]
	a.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter != nil
}

// Seeds returns how many times a Seeder has been consulted.
func (a *Allocator) Seeds() int64 {
	return a.seeds.Load()
}
