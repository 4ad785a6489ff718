// Package store provides an SQLite-backed journal of completion events.
//
// The journal is append-only and sits downstream of the publisher: it
// records what was announced, never the collection state that produced it.
// Every event belongs to a run, identified by a UUIDv7 run id, so several
// replays or simulations can share one database file.
//
// Ordering uses the event's logical seq, never wall time. Queries order by
// run_id then seq so results are identical across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
