/*
Package ledger is the core cashback balance engine.

PURPOSE:
  Tracks a per-client cashback balance accrued from purchases and allows
  partial redemption of that balance against future purchases, under a
  capped redemption ratio. The package owns the transaction rules, the
  client directory, and the append-only operation log that makes every
  balance change auditable.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClientID: Stable external chat identity (int64)
  - Client: Profile (name, phone) plus current balance
  - Operation: Immutable audit record of one accepted transaction

DESIGN PRINCIPLES:
  1. Immutability: Operations are appended, never modified or deleted
  2. Precision: All amounts are integer minor units (see money.go)
  3. Consistency: Client.Balance always equals the BalanceAfter of the
     client's most recent Operation (or 0 if none exist)
  4. Auditability: Every operation snapshots name/phone and both balances

SEE ALSO:
  - engine.go: Transaction rules that produce Operations
  - store.go: Persistence contract for clients and operations
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ClientID is the stable external user identity (chat user ID).
type ClientID int64

// =============================================================================
// CLIENT - Directory entry with current balance
// =============================================================================

// Client is created implicitly on first contact with a zero balance and
// empty name/phone. Name and phone are filled during registration and
// may be overwritten by a later registration attempt. Balance is mutated
// only through the Engine, never directly.
type Client struct {
	ID           ClientID
	Name         string
	Phone        string
	Balance      Money
	RegisteredAt time.Time
}

// Registered reports whether the registration dialogue completed:
// both name and phone are non-empty.
func (c Client) Registered() bool {
	return c.Name != "" && c.Phone != ""
}

// =============================================================================
// OPERATION - Immutable audit record
// =============================================================================

type OperationKind string

const (
	OpAccrue   OperationKind = "ACCRUE"    // Admin credited cashback for a purchase
	OpRedeem   OperationKind = "REDEEM"    // Client redeemed balance against a purchase
	OpAdminSet OperationKind = "ADMIN_SET" // Admin overrode the balance
)

// Operation records exactly one accepted ledger transaction.
// Purchase and Delta are nil for ADMIN_SET. Insertion order in the log
// is chronological and preserved forever.
type Operation struct {
	At            time.Time
	Kind          OperationKind
	ClientID      ClientID
	Name          string // snapshot at time of operation
	Phone         string // snapshot at time of operation
	Purchase      *Money
	Delta         *Money
	BalanceBefore Money
	BalanceAfter  Money
	Comment       string
}
