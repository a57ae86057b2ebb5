// Package ids allocates surrogate keys for repository tables.
//
// An Allocator keeps one in-memory counter per (table, column) pair. The first
// request for a pair asks a Seeder for the highest stored id and starts right
// after it; every later request is served from memory without touching the
// database. Counters are only dropped by Clear, which the store calls on
// rollback and on session boundaries.
//
// # Concurrency
//
// Each key has its own critical section, so two callers allocating from
// different tables never wait on each other, while callers sharing a key are
// strictly serialized, including during seeding. An Allocator may be shared by
// several store instances in the same process.
//
// # Ids after Clear
//
// Clear forces re-derivation from storage, but the allocator also remembers
// the highest id it has ever issued per key. Re-seeding starts after whichever
// is larger, so an id handed out before a rollback is never handed out again.
package ids
