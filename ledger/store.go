/*
store.go - Persistence interface for ledger snapshots

PURPOSE:
  The ledger keeps its whole state in memory and is agnostic to how it is
  persisted. A SnapshotStore loads the full state once at startup and is
  handed the full state after every mutating call.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests
  - store/file: One JSON document on disk
  - store/sqlite: SQLite tables, rewritten in one SQL transaction

LOAD CONTRACT:
  Load returns ErrSnapshotNotFound when nothing was ever saved. Any other
  error is treated by Open as a corrupt snapshot. In both cases the ledger
  starts empty instead of failing startup.
*/
package ledger

import "context"

type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
