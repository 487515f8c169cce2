/*
store.go - Persistence contract for clients and operations

PURPOSE:
  Defines the interface between the ledger and the durable store. Any
  keyed record store satisfies the contract (SQLite here, memory for
  tests).

APPEND-ONLY CONTRACT:
  The operations log is append-only:
  - AppendOperation(): the ONLY write on the log
  - No update or delete methods exist
  Insertion order must be preserved exactly as appended.

CLIENTS:
  PutClient upserts the whole record (profile + balance). The Engine is
  the only caller that changes Balance; the Directory only touches
  name/phone.

ATOMIC COMMIT:
  Stores that implement TxStore let the Engine write the new balance and
  append the operation as one unit. Without it, the Engine compensates:
  if the log append fails after the balance write, the balance is rolled
  back before the error is surfaced.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - ledger/store: in-memory store for tests/dev

SEE ALSO:
  - engine.go: Commit protocol built on this contract
*/
package ledger

import "context"

// =============================================================================
// STORE - Durable record store contract
// =============================================================================

// Store persists clients and the append-only operation log.
// I/O failures must be reported as errors wrapping ErrStorageUnavailable
// (implementations return *StorageError).
type Store interface {
	// GetClient returns the client record, or (nil, nil) if unknown.
	GetClient(ctx context.Context, id ClientID) (*Client, error)

	// PutClient inserts or fully replaces a client record.
	PutClient(ctx context.Context, c Client) error

	// AppendOperation appends one record to the operation log.
	// This is the only write on the log; order is preserved.
	AppendOperation(ctx context.Context, op Operation) error

	// ListClients returns all known clients, ordered by registration time.
	ListClients(ctx context.Context) ([]Client, error)

	// CountClients returns the number of known clients.
	CountClients(ctx context.Context) (int, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic balance write + log append
// =============================================================================

// TxStore extends Store with an all-or-nothing commit. If fn returns an
// error, every write made through the Store it received is discarded.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// OPERATION LISTING - Admin audit scan
// =============================================================================

// OperationLister is an optional extension for administrative listing of
// the raw log. Not required by the engine.
type OperationLister interface {
	// ListOperations returns the newest operations first, at most limit.
	ListOperations(ctx context.Context, limit int) ([]Operation, error)

	// ListOperationsByClient returns a client's operations in insertion order.
	ListOperationsByClient(ctx context.Context, id ClientID) ([]Operation, error)
}
