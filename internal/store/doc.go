// Package store provides SQLite-backed storage for saved queries and the
// execution log.
//
// The store holds:
//   - Documents: named query texts with the connection they run against
//   - Executions: one record per accepted request, keyed by its sequence number
//
// # Ordering
//
// Executions are ordered by seq, the engine's logical request clock, never by
// wall time. LastSeq lets a new engine continue numbering where the log ends,
// so seq stays unique across runs. Writing the same seq twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
