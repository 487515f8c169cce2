/*
engine.go - Transaction rules for the cashback ledger

PURPOSE:
  The Engine decides accept/reject for the three transaction kinds and
  commits accepted ones: write the new balance, append the audit record.

TRANSACTION KINDS:
  Accrue (admin):     cashback = round(purchase x rate), balance += cashback
  Redeem (client):    cap = round(purchase x ratio); reject if use > balance
                      or use > cap; balance -= use
  AdminSetBalance:    balance = target, unconditionally (target >= 0)

AUTHORIZATION:
  Accrue and AdminSetBalance require the caller to be the single
  configured administrator. The check happens before the transaction is
  evaluated, independent of the transport layer.

CONCURRENCY:
  The read-modify-write sequence is the correctness risk: two concurrent
  redemptions reading the same stale balance could both succeed and
  over-redeem. The Engine serializes all balance mutations PER CLIENT
  with a lock keyed by ClientID. Cross-client transactions run fully in
  parallel; there is no global lock.

COMMIT PROTOCOL:
  read balance -> compute -> write client -> append operation.
  With a TxStore both writes are one database transaction. Otherwise the
  Engine rolls the balance write back if the append fails, so a failed
  transaction has no partial effect either way.

SEE ALSO:
  - directory.go: Profile/balance reads the Engine builds on
  - errors.go: Rejection types returned to the router
*/
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Default policy constants, overridable via EngineConfig.
var (
	DefaultCashbackRate   = decimal.NewFromFloat(0.03) // 3% accrual
	DefaultMaxRedeemRatio = decimal.NewFromFloat(0.5)  // redeem up to 50% of a purchase
)

// =============================================================================
// ENGINE
// =============================================================================

// EngineConfig carries the policy knobs and the administrator identity.
type EngineConfig struct {
	AdminID        ClientID
	CashbackRate   decimal.Decimal
	MaxRedeemRatio decimal.Decimal
}

// Engine validates and commits balance-mutating transactions.
type Engine struct {
	store Store
	dir   *Directory
	cfg   EngineConfig
	log   zerolog.Logger
	now   func() time.Time

	mu    sync.Mutex
	locks map[ClientID]*sync.Mutex
}

// NewEngine creates an engine over the given store. Zero rate/ratio in
// cfg fall back to the defaults (3% / 50%).
func NewEngine(store Store, cfg EngineConfig, log zerolog.Logger) *Engine {
	if cfg.CashbackRate.IsZero() {
		cfg.CashbackRate = DefaultCashbackRate
	}
	if cfg.MaxRedeemRatio.IsZero() {
		cfg.MaxRedeemRatio = DefaultMaxRedeemRatio
	}
	return &Engine{
		store: store,
		dir:   NewDirectory(store),
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		locks: make(map[ClientID]*sync.Mutex),
	}
}

// Directory exposes the directory sharing this engine's store.
func (e *Engine) Directory() *Directory { return e.dir }

// IsAdmin reports whether the identity is the configured administrator.
func (e *Engine) IsAdmin(id ClientID) bool {
	return e.cfg.AdminID != 0 && id == e.cfg.AdminID
}

// clientLock returns the mutex serializing mutations for one client.
// Locks are never removed; the map grows with the client base, which is
// bounded by the directory size.
func (e *Engine) clientLock(id ClientID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Register records the client's profile. It takes the same per-client
// lock as the transaction path: Ensure re-writes the whole record, so an
// unserialized registration racing a commit could write back a stale
// balance.
func (e *Engine) Register(ctx context.Context, id ClientID, name, phone string) (Client, error) {
	lock := e.clientLock(id)
	lock.Lock()
	defer lock.Unlock()
	return e.dir.Ensure(ctx, id, name, phone)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Accrue credits cashback for a purchase. Admin only.
// Returns the committed operation on success.
func (e *Engine) Accrue(ctx context.Context, actor, clientID ClientID, purchase Money) (Operation, error) {
	if !e.IsAdmin(actor) {
		return Operation{}, ErrForbidden
	}
	if purchase <= 0 {
		return Operation{}, ErrInvalidAmount
	}
	if !purchase.InRange() {
		return Operation{}, ErrAmountOutOfRange
	}

	lock := e.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	client, err := e.dir.Ensure(ctx, clientID, "", "")
	if err != nil {
		return Operation{}, err
	}

	cashback := purchase.MulRate(e.cfg.CashbackRate)
	before := client.Balance
	after := before + cashback
	if !after.InRange() {
		return Operation{}, ErrAmountOutOfRange
	}

	op := Operation{
		At:            e.now().UTC(),
		Kind:          OpAccrue,
		ClientID:      clientID,
		Name:          client.Name,
		Phone:         client.Phone,
		Purchase:      &purchase,
		Delta:         &cashback,
		BalanceBefore: before,
		BalanceAfter:  after,
		Comment:       "admin accrual",
	}

	if err := e.commit(ctx, client, after, op); err != nil {
		return Operation{}, err
	}
	e.logOp(op)
	return op, nil
}

// Redeem deducts part of the balance against a purchase.
// Rejects with InsufficientBalanceError if use exceeds the balance, and
// with RedeemCapError if use exceeds round(purchase x MaxRedeemRatio).
// The cap uses the purchase of THIS request only; no history is consulted.
func (e *Engine) Redeem(ctx context.Context, clientID ClientID, purchase, use Money) (Operation, error) {
	if purchase <= 0 || use <= 0 {
		return Operation{}, ErrInvalidAmount
	}
	if !purchase.InRange() || !use.InRange() {
		return Operation{}, ErrAmountOutOfRange
	}

	lock := e.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	client, err := e.dir.Ensure(ctx, clientID, "", "")
	if err != nil {
		return Operation{}, err
	}

	before := client.Balance
	if use > before {
		return Operation{}, &InsufficientBalanceError{ClientID: clientID, Balance: before, Requested: use}
	}
	maxUse := purchase.MulRate(e.cfg.MaxRedeemRatio)
	if use > maxUse {
		return Operation{}, &RedeemCapError{ClientID: clientID, Cap: maxUse, Requested: use}
	}

	after := before - use
	op := Operation{
		At:            e.now().UTC(),
		Kind:          OpRedeem,
		ClientID:      clientID,
		Name:          client.Name,
		Phone:         client.Phone,
		Purchase:      &purchase,
		Delta:         &use,
		BalanceBefore: before,
		BalanceAfter:  after,
		Comment:       "client redemption",
	}

	if err := e.commit(ctx, client, after, op); err != nil {
		return Operation{}, err
	}
	e.logOp(op)
	return op, nil
}

// AdminSetBalance overrides the balance unconditionally. Admin only.
// The record carries no purchase or delta, only before/after.
func (e *Engine) AdminSetBalance(ctx context.Context, actor, clientID ClientID, target Money) (Operation, error) {
	if !e.IsAdmin(actor) {
		return Operation{}, ErrForbidden
	}
	if target < 0 {
		return Operation{}, ErrInvalidAmount
	}
	if !target.InRange() {
		return Operation{}, ErrAmountOutOfRange
	}

	lock := e.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	client, err := e.dir.Ensure(ctx, clientID, "", "")
	if err != nil {
		return Operation{}, err
	}

	op := Operation{
		At:            e.now().UTC(),
		Kind:          OpAdminSet,
		ClientID:      clientID,
		Name:          client.Name,
		Phone:         client.Phone,
		BalanceBefore: client.Balance,
		BalanceAfter:  target,
		Comment:       "admin balance override",
	}

	if err := e.commit(ctx, client, target, op); err != nil {
		return Operation{}, err
	}
	e.logOp(op)
	return op, nil
}

// =============================================================================
// COMMIT
// =============================================================================

// commit writes the new balance and appends the operation as one logical
// transaction. Caller holds the client lock.
func (e *Engine) commit(ctx context.Context, client Client, newBalance Money, op Operation) error {
	updated := client
	updated.Balance = newBalance

	if txs, ok := e.store.(TxStore); ok {
		return txs.WithTx(ctx, func(s Store) error {
			if err := s.PutClient(ctx, updated); err != nil {
				return err
			}
			return s.AppendOperation(ctx, op)
		})
	}

	// No transactional store: compensate on append failure so the
	// balance never diverges from the log.
	if err := e.store.PutClient(ctx, updated); err != nil {
		return err
	}
	if err := e.store.AppendOperation(ctx, op); err != nil {
		if rbErr := e.store.PutClient(ctx, client); rbErr != nil {
			e.log.Error().
				Int64("client_id", int64(client.ID)).
				AnErr("append_err", err).
				AnErr("rollback_err", rbErr).
				Msg("balance rollback failed; ledger needs reconciliation")
		}
		return err
	}
	return nil
}

func (e *Engine) logOp(op Operation) {
	ev := e.log.Info().
		Str("kind", string(op.Kind)).
		Int64("client_id", int64(op.ClientID)).
		Str("balance_before", op.BalanceBefore.String()).
		Str("balance_after", op.BalanceAfter.String())
	if op.Purchase != nil {
		ev = ev.Str("purchase", op.Purchase.String())
	}
	if op.Delta != nil {
		ev = ev.Str("delta", op.Delta.String())
	}
	ev.Msg("operation committed")
}
