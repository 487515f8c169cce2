package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homequeen/cashback-ledger/ledger"
	"github.com/homequeen/cashback-ledger/ledger/store"
)

// =============================================================================
// ENSURE SEMANTICS
// =============================================================================

func TestDirectory_Ensure_CreatesWithZeroBalance(t *testing.T) {
	// GIVEN: An empty directory
	// WHEN: Ensuring an identity for the first time
	// THEN: A record exists with zero balance and the given profile

	dir := ledger.NewDirectory(store.NewMemory())
	ctx := context.Background()

	c, err := dir.Ensure(ctx, 42, "Aigerim", "+7 701 000 00 00")
	require.NoError(t, err)

	assert.Equal(t, ledger.ClientID(42), c.ID)
	assert.Equal(t, "Aigerim", c.Name)
	assert.Equal(t, ledger.Money(0), c.Balance)
	assert.True(t, c.Registered())
	assert.False(t, c.RegisteredAt.IsZero())
}

func TestDirectory_Ensure_Idempotent(t *testing.T) {
	// GIVEN: An existing client
	// WHEN: Ensuring the same identity again with no profile change
	// THEN: The record is unchanged and not duplicated

	dir := ledger.NewDirectory(store.NewMemory())
	ctx := context.Background()

	first, err := dir.Ensure(ctx, 42, "Aigerim", "+7 701 000 00 00")
	require.NoError(t, err)

	second, err := dir.Ensure(ctx, 42, "", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	count, err := dir.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDirectory_Ensure_LastWriteWins(t *testing.T) {
	// GIVEN: A registered client
	// WHEN: A later registration supplies a different name
	// THEN: The name is overwritten; the untouched phone survives

	dir := ledger.NewDirectory(store.NewMemory())
	ctx := context.Background()

	_, err := dir.Ensure(ctx, 42, "Aigerim", "+7 701 000 00 00")
	require.NoError(t, err)

	c, err := dir.Ensure(ctx, 42, "Aigerim S.", "")
	require.NoError(t, err)

	assert.Equal(t, "Aigerim S.", c.Name)
	assert.Equal(t, "+7 701 000 00 00", c.Phone)
}

func TestDirectory_Ensure_PreservesBalance(t *testing.T) {
	// GIVEN: A client carrying a balance
	// WHEN: A registration attempt updates the profile
	// THEN: The balance is untouched

	st := store.NewMemory()
	dir := ledger.NewDirectory(st)
	ctx := context.Background()

	c, err := dir.Ensure(ctx, 42, "Aigerim", "")
	require.NoError(t, err)
	c.Balance = 5000
	require.NoError(t, st.PutClient(ctx, c))

	updated, err := dir.Ensure(ctx, 42, "Aigerim", "+7 701 000 00 00")
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(5000), updated.Balance)
}

// =============================================================================
// READS
// =============================================================================

func TestDirectory_Balance_ZeroForUnknown(t *testing.T) {
	dir := ledger.NewDirectory(store.NewMemory())

	bal, err := dir.Balance(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(0), bal)
}

func TestDirectory_IsRegistered(t *testing.T) {
	// Registration means both name AND phone are on file.

	dir := ledger.NewDirectory(store.NewMemory())
	ctx := context.Background()

	reg, err := dir.IsRegistered(ctx, 42)
	require.NoError(t, err)
	assert.False(t, reg, "unknown identity is not registered")

	_, err = dir.Ensure(ctx, 42, "Aigerim", "")
	require.NoError(t, err)
	reg, err = dir.IsRegistered(ctx, 42)
	require.NoError(t, err)
	assert.False(t, reg, "name without phone is not registered")

	_, err = dir.Ensure(ctx, 42, "", "+7 701 000 00 00")
	require.NoError(t, err)
	reg, err = dir.IsRegistered(ctx, 42)
	require.NoError(t, err)
	assert.True(t, reg)
}

func TestDirectory_CountAndList(t *testing.T) {
	dir := ledger.NewDirectory(store.NewMemory())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := dir.Ensure(ctx, ledger.ClientID(i), "", "")
		require.NoError(t, err)
	}

	count, err := dir.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	clients, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 3)
}
