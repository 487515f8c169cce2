/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage contract.

PURPOSE:
  Implements ledger.Store, ledger.TxStore and ledger.OperationLister on
  SQLite. This is the production store; ledger/store has the in-memory
  one for tests.

KEY TABLES:
  clients:     One row per chat identity; profile + current balance
  operations:  Append-only audit log, rowid preserves insertion order

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the operations table.

CONCURRENCY:
  sync.RWMutex on top of SQLite; the engine additionally serializes
  balance mutations per client, so the mutex only guards connection use.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/cashback.db")
  defer store.Close()
  engine := ledger.NewEngine(store, cfg, log)

SEE ALSO:
  - ledger/store.go: Contract definitions
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/homequeen/cashback-ledger/ledger"
)

// Store implements the ledger storage contract using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Clients (one row per chat identity)
	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0,
		registered_at TEXT NOT NULL
	);

	-- Operations (append-only audit log; rowid is the insertion order)
	CREATE TABLE IF NOT EXISTS operations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		kind TEXT NOT NULL,
		client_id INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		purchase INTEGER,
		delta INTEGER,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		comment TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_operations_client
		ON operations(client_id, seq);
	CREATE INDEX IF NOT EXISTS idx_operations_at
		ON operations(at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENT STORE (ledger.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetClient returns the client record, or (nil, nil) if unknown.
func (s *Store) GetClient(ctx context.Context, id ledger.ClientID) (*ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getClient(ctx, s.db, id)
}

func getClient(ctx context.Context, db querier, id ledger.ClientID) (*ledger.Client, error) {
	var (
		c            ledger.Client
		registeredAt string
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, name, phone, balance, registered_at FROM clients WHERE id = ?",
		int64(id),
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Balance, &registeredAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get client", Cause: err}
	}

	c.RegisteredAt, err = time.Parse(time.RFC3339, registeredAt)
	if err != nil {
		return nil, &ledger.StorageError{Op: "get client", Cause: err}
	}
	return &c, nil
}

// PutClient inserts or fully replaces a client record.
func (s *Store) PutClient(ctx context.Context, c ledger.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putClient(ctx, s.db, c)
}

func putClient(ctx context.Context, db execer, c ledger.Client) error {
	query := `
		INSERT INTO clients (id, name, phone, balance, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			balance = excluded.balance
	`
	_, err := db.ExecContext(ctx, query,
		int64(c.ID), c.Name, c.Phone, int64(c.Balance),
		c.RegisteredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &ledger.StorageError{Op: "put client", Cause: err}
	}
	return nil
}

// AppendOperation appends one record to the log. This is the only write
// on the operations table.
func (s *Store) AppendOperation(ctx context.Context, op ledger.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendOperation(ctx, s.db, op)
}

func appendOperation(ctx context.Context, db execer, op ledger.Operation) error {
	query := `
		INSERT INTO operations
		(at, kind, client_id, name, phone, purchase, delta, balance_before, balance_after, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		op.At.UTC().Format(time.RFC3339),
		string(op.Kind),
		int64(op.ClientID),
		op.Name,
		op.Phone,
		nullMoney(op.Purchase),
		nullMoney(op.Delta),
		int64(op.BalanceBefore),
		int64(op.BalanceAfter),
		op.Comment,
	)
	if err != nil {
		return &ledger.StorageError{Op: "append operation", Cause: err}
	}
	return nil
}

// ListClients returns all clients ordered by registration time.
func (s *Store) ListClients(ctx context.Context) ([]ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listClients(ctx, s.db)
}

func listClients(ctx context.Context, db querier) ([]ledger.Client, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, phone, balance, registered_at FROM clients ORDER BY registered_at, id",
	)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list clients", Cause: err}
	}
	defer rows.Close()

	var clients []ledger.Client
	for rows.Next() {
		var (
			c            ledger.Client
			registeredAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Balance, &registeredAt); err != nil {
			return nil, &ledger.StorageError{Op: "list clients", Cause: err}
		}
		c.RegisteredAt, err = time.Parse(time.RFC3339, registeredAt)
		if err != nil {
			return nil, &ledger.StorageError{Op: "list clients", Cause: err}
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list clients", Cause: err}
	}
	return clients, nil
}

// CountClients returns the number of known clients.
func (s *Store) CountClients(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count)
	if err != nil {
		return 0, &ledger.StorageError{Op: "count clients", Cause: err}
	}
	return count, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The balance write
// and the log append of one ledger commit go through here.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.StorageError{Op: "begin tx", Cause: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &ledger.StorageError{Op: "commit tx", Cause: err}
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetClient(ctx context.Context, id ledger.ClientID) (*ledger.Client, error) {
	return getClient(ctx, ts.tx, id)
}

func (ts *txStore) PutClient(ctx context.Context, c ledger.Client) error {
	return putClient(ctx, ts.tx, c)
}

func (ts *txStore) AppendOperation(ctx context.Context, op ledger.Operation) error {
	return appendOperation(ctx, ts.tx, op)
}

func (ts *txStore) ListClients(ctx context.Context) ([]ledger.Client, error) {
	return listClients(ctx, ts.tx)
}

func (ts *txStore) CountClients(ctx context.Context) (int, error) {
	var count int
	err := ts.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count)
	if err != nil {
		return 0, &ledger.StorageError{Op: "count clients", Cause: err}
	}
	return count, nil
}

// =============================================================================
// OPERATION LISTING (ledger.OperationLister interface)
// =============================================================================

const operationColumns = "at, kind, client_id, name, phone, purchase, delta, balance_before, balance_after, comment"

// ListOperations returns the newest operations first, at most limit.
func (s *Store) ListOperations(ctx context.Context, limit int) ([]ledger.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := "SELECT " + operationColumns + " FROM operations ORDER BY seq DESC LIMIT ?"
	return s.queryOperations(ctx, query, limit)
}

// ListOperationsByClient returns a client's operations in insertion order.
func (s *Store) ListOperationsByClient(ctx context.Context, id ledger.ClientID) ([]ledger.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + operationColumns + " FROM operations WHERE client_id = ? ORDER BY seq ASC"
	return s.queryOperations(ctx, query, int64(id))
}

func (s *Store) queryOperations(ctx context.Context, query string, args ...any) ([]ledger.Operation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list operations", Cause: err}
	}
	defer rows.Close()

	var ops []ledger.Operation
	for rows.Next() {
		var (
			op              ledger.Operation
			at              string
			purchase, delta sql.NullInt64
		)
		if err := rows.Scan(
			&at, &op.Kind, &op.ClientID, &op.Name, &op.Phone,
			&purchase, &delta, &op.BalanceBefore, &op.BalanceAfter, &op.Comment,
		); err != nil {
			return nil, &ledger.StorageError{Op: "list operations", Cause: err}
		}
		op.At, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, &ledger.StorageError{Op: "list operations", Cause: err}
		}
		if purchase.Valid {
			m := ledger.Money(purchase.Int64)
			op.Purchase = &m
		}
		if delta.Valid {
			m := ledger.Money(delta.Int64)
			op.Delta = &m
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list operations", Cause: err}
	}
	return ops, nil
}

// Helper functions

func nullMoney(m *ledger.Money) any {
	if m == nil {
		return nil
	}
	return int64(*m)
}
