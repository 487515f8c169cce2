/*
directory.go - Client directory with get-or-create semantics

PURPOSE:
  Maps a chat identity to its profile and current balance. Clients are
  created implicitly on first interaction ("ensure" semantics) with a
  zero balance; the registration dialogue fills name and phone later.

CONTRACT:
  - Ensure is idempotent: calling it twice with no profile change leaves
    the record untouched and never duplicates it.
  - Non-empty name/phone arguments overwrite stored fields
    (last-write-wins); empty arguments leave them alone.
  - Balance reads return 0 for unknown identities, never an error about
    absence.
  - Clients are never deleted; the operation log references them forever.

SEE ALSO:
  - engine.go: The only component that mutates Balance
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory provides profile and balance lookups over a Store.
type Directory struct {
	store Store
	now   func() time.Time
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

// Ensure returns the client record for id, creating it with a zero
// balance if it does not exist. Non-empty name/phone overwrite the
// stored profile fields.
//
// Ensure is a read-modify-write of the whole record, balance included.
// Callers that can race a balance commit must hold the engine's
// per-client lock; use Engine.Register instead of calling this directly.
func (d *Directory) Ensure(ctx context.Context, id ClientID, name, phone string) (Client, error) {
	existing, err := d.store.GetClient(ctx, id)
	if err != nil {
		return Client{}, err
	}

	if existing == nil {
		c := Client{
			ID:           id,
			Name:         name,
			Phone:        phone,
			Balance:      0,
			RegisteredAt: d.now().UTC(),
		}
		if err := d.store.PutClient(ctx, c); err != nil {
			return Client{}, err
		}
		return c, nil
	}

	c := *existing
	changed := false
	if name != "" && name != c.Name {
		c.Name = name
		changed = true
	}
	if phone != "" && phone != c.Phone {
		c.Phone = phone
		changed = true
	}
	if changed {
		if err := d.store.PutClient(ctx, c); err != nil {
			return Client{}, err
		}
	}
	return c, nil
}

// Balance returns the current balance, 0 for an unknown identity.
func (d *Directory) Balance(ctx context.Context, id ClientID) (Money, error) {
	c, err := d.store.GetClient(ctx, id)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, nil
	}
	return c.Balance, nil
}

// IsRegistered reports whether both name and phone are on file.
func (d *Directory) IsRegistered(ctx context.Context, id ClientID) (bool, error) {
	c, err := d.store.GetClient(ctx, id)
	if err != nil {
		return false, err
	}
	return c != nil && c.Registered(), nil
}

// Count returns the total number of known clients.
func (d *Directory) Count(ctx context.Context) (int, error) {
	return d.store.CountClients(ctx)
}

// List returns all known clients.
func (d *Directory) List(ctx context.Context) ([]Client, error) {
	return d.store.ListClients(ctx)
}
