// Package store provides SQLite-backed storage for entity attributes.
//
// Attributes are sparse (owner, code, nr) -> value rows kept in four
// structurally identical tables, one per attribute kind:
//   - Step attributes, scoped by transformation
//   - Transformation attributes
//   - Job attributes
//   - Job entry attributes, scoped by job
//
// # Channels
//
// Reads go through a prepared lookup channel per kind; writes go through a
// prepared insert channel per kind. With batching enabled, saved rows wait in
// the insert channel until the batch threshold, Flush or CloseInsert, and are
// then executed inside one savepoint so a batch lands completely or not at
// all. A lookup flushes its kind's pending rows first, so a saved value is
// always visible to the next Get.
//
// # Buffers
//
// FillBuffer loads every row of one scope into an immutable sorted snapshot
// (attr.Buffer). While a buffer is active for a kind, Get and Count for that
// kind are answered from memory. Buffers never see later writes; discard
// them with SetBuffer(kind, nil) when bulk reading is done.
//
// # Transactions
//
// One pinned connection serves the store. In manual-commit mode (Connect or
// SetAutoCommit(false)) a transaction begins before the next statement.
// Commit is refused while insert channels hold unflushed rows. Commit and
// Rollback clear the id allocator, and the allocator never hands out an id
// twice, even after a rollback.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (Options.BusyTimeout)
//
// The default driver is mattn/go-sqlite3; build with -tags modernc for the
// pure-Go modernc.org/sqlite driver.
package store
