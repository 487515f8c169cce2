package bot_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homequeen/cashback-ledger/bot"
	"github.com/homequeen/cashback-ledger/ledger"
	"github.com/homequeen/cashback-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	adminID  ledger.ClientID = 1
	clientID ledger.ClientID = 42
)

func newTestRouter(t *testing.T) (*bot.Router, *ledger.Engine) {
	t.Helper()
	engine := ledger.NewEngine(store.NewTxMemory(), ledger.EngineConfig{AdminID: adminID}, zerolog.Nop())
	return bot.NewRouter(engine, zerolog.Nop()), engine
}

func seedBalance(t *testing.T, e *ledger.Engine, id ledger.ClientID, balance ledger.Money) {
	t.Helper()
	_, err := e.AdminSetBalance(context.Background(), adminID, id, balance)
	require.NoError(t, err)
}

// =============================================================================
// REGISTRATION DIALOGUE
// =============================================================================

func TestRouter_Registration_FullDialogue(t *testing.T) {
	// GIVEN: An unknown identity
	// WHEN: /start, then a name, then a phone number
	// THEN: The client ends up registered with both fields on file

	router, engine := newTestRouter(t)
	ctx := context.Background()

	reply := router.Handle(ctx, clientID, "/start")
	assert.Contains(t, reply.Text, "full name")
	assert.Empty(t, reply.Buttons, "keyboard hidden during the dialogue")

	reply = router.Handle(ctx, clientID, "Aigerim Seitova")
	assert.Contains(t, reply.Text, "phone")

	reply = router.Handle(ctx, clientID, "+7 701 000 00 00")
	assert.Contains(t, reply.Text, "Registration complete")
	assert.NotEmpty(t, reply.Buttons, "menu returns once registration finishes")

	registered, err := engine.Directory().IsRegistered(ctx, clientID)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestRouter_Registration_RejectsTooShortName(t *testing.T) {
	// A one-rune name re-prompts without leaving the dialogue.

	router, _ := newTestRouter(t)
	ctx := context.Background()

	router.Handle(ctx, clientID, "/start")
	reply := router.Handle(ctx, clientID, "A")
	assert.Contains(t, reply.Text, "valid full name")

	// Still awaiting the name; a proper one moves the dialogue forward.
	reply = router.Handle(ctx, clientID, "Aigerim")
	assert.Contains(t, reply.Text, "phone")
}

func TestRouter_Start_RegisteredClientSkipsDialogue(t *testing.T) {
	router, engine := newTestRouter(t)
	ctx := context.Background()

	_, err := engine.Directory().Ensure(ctx, clientID, "Aigerim", "+7 701 000 00 00")
	require.NoError(t, err)

	reply := router.Handle(ctx, clientID, "/start")
	assert.Contains(t, reply.Text, "Good to see you again")
	assert.NotEmpty(t, reply.Buttons)
}

func TestRouter_DialogueTakesPriorityOverCommands(t *testing.T) {
	// A menu label typed mid-registration is treated as the name, not a command.

	router, _ := newTestRouter(t)
	ctx := context.Background()

	router.Handle(ctx, clientID, "/start")
	reply := router.Handle(ctx, clientID, bot.BtnCheckBalance)
	assert.Contains(t, reply.Text, "phone", "button text is consumed as the name")
}

// =============================================================================
// MENU COMMANDS
// =============================================================================

func TestRouter_CheckBalance(t *testing.T) {
	router, engine := newTestRouter(t)
	seedBalance(t, engine, clientID, 250000)

	reply := router.Handle(context.Background(), clientID, bot.BtnCheckBalance)
	assert.Contains(t, reply.Text, "2500.00")
}

func TestRouter_Menu_AdminSeesExtraButtons(t *testing.T) {
	router, _ := newTestRouter(t)
	ctx := context.Background()

	clientReply := router.Handle(ctx, clientID, bot.BtnHowTo)
	adminReply := router.Handle(ctx, adminID, bot.BtnHowTo)

	assert.NotContains(t, clientReply.Buttons, bot.BtnAccrue)
	assert.Contains(t, adminReply.Buttons, bot.BtnAccrue)
	assert.Contains(t, adminReply.Buttons, bot.BtnSetBalance)
	assert.Contains(t, adminReply.Buttons, bot.BtnListClients)
}

func TestRouter_UnrecognizedInput_ShowsMenu(t *testing.T) {
	router, _ := newTestRouter(t)

	reply := router.Handle(context.Background(), clientID, "what is this")
	assert.Contains(t, reply.Text, "Choose an action")
	assert.NotEmpty(t, reply.Buttons)
}

// =============================================================================
// REDEMPTION
// =============================================================================

func TestRouter_Redeem_Success(t *testing.T) {
	// GIVEN: Balance 2000.00
	// WHEN: "10000 2000" (purchase and redemption amount)
	// THEN: Redeemed, new balance rendered

	router, engine := newTestRouter(t)
	seedBalance(t, engine, clientID, 200000)

	reply := router.Handle(context.Background(), clientID, "10000 2000")
	assert.Contains(t, reply.Text, "Redeemed 2000.00")
	assert.Contains(t, reply.Text, "0.00")
}

func TestRouter_Redeem_InsufficientBalance_ShowsBalance(t *testing.T) {
	router, engine := newTestRouter(t)
	seedBalance(t, engine, clientID, 10000)

	reply := router.Handle(context.Background(), clientID, "10000 500")
	assert.Contains(t, reply.Text, "Not enough cashback")
	assert.Contains(t, reply.Text, "100.00")
}

func TestRouter_Redeem_CapExceeded_ShowsCap(t *testing.T) {
	router, engine := newTestRouter(t)
	seedBalance(t, engine, clientID, 600000)

	reply := router.Handle(context.Background(), clientID, "10000 5500")
	assert.Contains(t, reply.Text, "5000.00")
}

func TestRouter_Redeem_MalformedAmounts_NoMutation(t *testing.T) {
	// Unparsable amounts never reach the engine.

	router, engine := newTestRouter(t)
	seedBalance(t, engine, clientID, 10000)
	ctx := context.Background()

	for _, input := range []string{"abc def", "100 xyz", "-100 50", "0 0"} {
		reply := router.Handle(ctx, clientID, input)
		assert.Contains(t, reply.Text, "Choose an action", "input %q", input)
	}

	bal, err := engine.Directory().Balance(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(10000), bal)
}

// =============================================================================
// ADMIN COMMANDS
// =============================================================================

func TestRouter_AdminAccrue(t *testing.T) {
	// "accrue 42 10000" credits 3% of 10000.00 to client 42.

	router, engine := newTestRouter(t)
	ctx := context.Background()

	reply := router.Handle(ctx, adminID, "accrue 42 10000")
	assert.Contains(t, reply.Text, "Credited 300.00")

	bal, err := engine.Directory().Balance(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(30000), bal)
}

func TestRouter_AdminSetBalance(t *testing.T) {
	router, engine := newTestRouter(t)
	ctx := context.Background()

	reply := router.Handle(ctx, adminID, "setbal 42 2500")
	assert.Contains(t, reply.Text, "2500.00")

	bal, err := engine.Directory().Balance(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(250000), bal)
}

func TestRouter_AdminCommands_DeniedForClients(t *testing.T) {
	// GIVEN: A non-admin identity
	// WHEN: It issues admin keywords or presses admin buttons
	// THEN: Access denied, no balance change anywhere

	router, engine := newTestRouter(t)
	ctx := context.Background()

	for _, input := range []string{"accrue 42 10000", "setbal 42 2500", bot.BtnAccrue, bot.BtnSetBalance, bot.BtnListClients} {
		reply := router.Handle(ctx, clientID, input)
		assert.Contains(t, reply.Text, "No access", "input %q", input)
	}

	bal, err := engine.Directory().Balance(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(0), bal)
}

func TestRouter_AdminListClients(t *testing.T) {
	router, engine := newTestRouter(t)
	ctx := context.Background()

	_, err := engine.Directory().Ensure(ctx, clientID, "Aigerim", "+7 701 000 00 00")
	require.NoError(t, err)

	reply := router.Handle(ctx, adminID, bot.BtnListClients)
	assert.Contains(t, reply.Text, "1")
}

func TestRouter_AdminAccrue_BadTarget(t *testing.T) {
	router, _ := newTestRouter(t)
	ctx := context.Background()

	reply := router.Handle(ctx, adminID, "accrue abc 10000")
	assert.Contains(t, reply.Text, "Client ID must be a number")

	reply = router.Handle(ctx, adminID, "accrue 42 -5")
	assert.Contains(t, reply.Text, "positive number")

	reply = router.Handle(ctx, adminID, "setbal 42 -5")
	assert.Contains(t, reply.Text, "non-negative")
}
