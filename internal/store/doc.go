// Package store provides SQLite-backed local storage for tracks.
//
// The local store is the offline half of synchronization. It holds:
//   - tracks: full track documents, one row per id, with a dirty flag set
//     on every write and cleared once the remote copy is known current
//   - pending_deletions: ids deleted locally whose remote delete has not
//     been applied yet
//
// # Write Semantics
//
//   - Put upserts with ON CONFLICT(id) DO UPDATE; writing the same track
//     twice is a no-op beyond re-marking it dirty
//   - Delete and ClearPendingDeletion are idempotent
//   - GetAll orders by created_at DESC, id ASC so listings are stable
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Schema Versions
//
// schema.sql holds the base tracks table. The dirty flag and the
// pending_deletions queue arrive through user_version migrations, each
// applied in its own transaction.
//
// Points are stored as a JSON array using the track package's field names.
package store
