/*
router.go - Free-text and menu input to typed ledger commands

PURPOSE:
  The router is the conversational surface over the ledger engine. It
  turns chat input (menu buttons, slash commands, free-form "amount
  amount" lines) into exactly one typed engine call and renders the
  result or rejection as a reply. Malformed input never reaches the
  engine and never mutates state.

COMMAND SURFACE:
  /start                 Greet; start registration if name/phone missing
  Check balance          Current balance
  Redeem cashback        Prompt for "<purchase> <use>"
  How to use cashback    Static help
  About the shop         Static info
  <purchase> <use>       Redeem (two positive amounts)
  accrue <id> <purchase> Admin: credit 3% cashback
  setbal <id> <balance>  Admin: balance override
  List clients           Admin: client count

  The two admin mutations use distinct keywords; there is no positional
  guessing between accrual and override.

ERROR RENDERING:
  Known rejections render a specific message (current balance for
  InsufficientBalance, the cap for RedeemCapExceeded). Anything the
  router does not recognize renders a generic failure notice - it never
  guesses the cause.

SEE ALSO:
  - session.go: Registration dialogue state
  - ledger/engine.go: The typed commands this maps onto
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/homequeen/cashback-ledger/ledger"
)

// Menu labels. The transport renders Buttons as a reply keyboard.
const (
	BtnCheckBalance = "📊 Check balance"
	BtnRedeem       = "💳 Redeem cashback"
	BtnHowTo        = "📖 How to use cashback"
	BtnAbout        = "ℹ About the shop"
	BtnAccrue       = "➕ Accrue cashback"
	BtnSetBalance   = "🔄 Set balance"
	BtnListClients  = "📋 List clients"
)

// Reply is what the transport should send back to the chat.
type Reply struct {
	Text    string
	Buttons []string // main menu; empty means hide the keyboard
}

// =============================================================================
// ROUTER
// =============================================================================

// Router dispatches one chat message to the ledger engine.
type Router struct {
	engine   *ledger.Engine
	sessions *Sessions
	log      zerolog.Logger
}

func NewRouter(engine *ledger.Engine, log zerolog.Logger) *Router {
	return &Router{
		engine:   engine,
		sessions: NewSessions(),
		log:      log,
	}
}

// Handle processes one message from the given chat identity.
// It is safe for concurrent use; the engine serializes balance
// mutations per client.
func (r *Router) Handle(ctx context.Context, id ledger.ClientID, text string) Reply {
	text = strings.TrimSpace(text)
	dir := r.engine.Directory()

	// Registration dialogue takes priority over command parsing.
	sess := r.sessions.get(id)
	switch sess.state {
	case StateAwaitingName:
		return r.handleName(ctx, id, text)
	case StateAwaitingPhone:
		return r.handlePhone(ctx, id, sess.name, text)
	}

	switch text {
	case "/start":
		return r.handleStart(ctx, id)
	case BtnCheckBalance:
		bal, err := dir.Balance(ctx, id)
		if err != nil {
			return r.failure(id, err)
		}
		return r.menuReply(id, fmt.Sprintf("💳 Your cashback balance: %s ₸", bal))
	case BtnHowTo:
		return r.menuReply(id, howToText)
	case BtnAbout:
		return r.menuReply(id, aboutText)
	case BtnRedeem:
		return Reply{Text: "Enter the purchase amount and how much cashback to redeem, separated by a space.\nExample: 10000 2000"}
	case BtnAccrue:
		if !r.engine.IsAdmin(id) {
			return r.menuReply(id, "❌ No access.")
		}
		return Reply{Text: "Enter: accrue <client_id> <purchase>\nExample: accrue 123456789 10000"}
	case BtnSetBalance:
		if !r.engine.IsAdmin(id) {
			return r.menuReply(id, "❌ No access.")
		}
		return Reply{Text: "Enter: setbal <client_id> <new_balance>\nExample: setbal 123456789 2500"}
	case BtnListClients:
		if !r.engine.IsAdmin(id) {
			return r.menuReply(id, "❌ No access.")
		}
		count, err := dir.Count(ctx)
		if err != nil {
			return r.failure(id, err)
		}
		return r.menuReply(id, fmt.Sprintf("👥 Clients on file: %d", count))
	}

	parts := strings.Fields(text)

	// Admin mutations carry a distinguishing keyword.
	if len(parts) == 3 && (parts[0] == "accrue" || parts[0] == "setbal") {
		return r.handleAdmin(ctx, id, parts)
	}

	// Client redemption: "<purchase> <use>".
	if len(parts) == 2 {
		return r.handleRedeem(ctx, id, parts[0], parts[1])
	}

	return r.menuReply(id, "Choose an action:")
}

// =============================================================================
// REGISTRATION
// =============================================================================

func (r *Router) handleStart(ctx context.Context, id ledger.ClientID) Reply {
	registered, err := r.engine.Directory().IsRegistered(ctx, id)
	if err != nil {
		return r.failure(id, err)
	}
	if !registered {
		r.sessions.set(id, session{state: StateAwaitingName})
		return Reply{Text: "💫 Welcome to Home Queen Astana!\n\nTo start collecting cashback, please enter your full name."}
	}
	return r.menuReply(id, "✨ Good to see you again! Choose an action:")
}

func (r *Router) handleName(ctx context.Context, id ledger.ClientID, name string) Reply {
	if len([]rune(name)) < 2 {
		return Reply{Text: "Please enter a valid full name."}
	}
	if _, err := r.engine.Register(ctx, id, name, ""); err != nil {
		return r.failure(id, err)
	}
	r.sessions.set(id, session{state: StateAwaitingPhone, name: name})
	return Reply{Text: "Great! Now please send your phone number."}
}

func (r *Router) handlePhone(ctx context.Context, id ledger.ClientID, name, phone string) Reply {
	if phone == "" {
		return Reply{Text: "Please send a phone number."}
	}
	if _, err := r.engine.Register(ctx, id, name, phone); err != nil {
		return r.failure(id, err)
	}
	r.sessions.clear(id)
	return r.menuReply(id, "✅ Registration complete!")
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (r *Router) handleRedeem(ctx context.Context, id ledger.ClientID, purchaseText, useText string) Reply {
	purchase, err := ledger.ParsePositiveMoney(purchaseText)
	if err != nil {
		return r.menuReply(id, "Choose an action:")
	}
	use, err := ledger.ParsePositiveMoney(useText)
	if err != nil {
		return r.menuReply(id, "Choose an action:")
	}

	op, err := r.engine.Redeem(ctx, id, purchase, use)
	if err != nil {
		var insErr *ledger.InsufficientBalanceError
		if errors.As(err, &insErr) {
			return r.menuReply(id, fmt.Sprintf("⚠ Not enough cashback. Balance: %s ₸", insErr.Balance))
		}
		var capErr *ledger.RedeemCapError
		if errors.As(err, &capErr) {
			return r.menuReply(id, fmt.Sprintf("⚠ At most %s ₸ can be redeemed for this purchase.", capErr.Cap))
		}
		return r.failure(id, err)
	}

	return r.menuReply(id, fmt.Sprintf("✅ Redeemed %s ₸.\nNew balance: %s ₸", *op.Delta, op.BalanceAfter))
}

func (r *Router) handleAdmin(ctx context.Context, id ledger.ClientID, parts []string) Reply {
	if !r.engine.IsAdmin(id) {
		return r.menuReply(id, "❌ No access.")
	}

	target, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return r.menuReply(id, "Client ID must be a number.")
	}
	clientID := ledger.ClientID(target)

	switch parts[0] {
	case "accrue":
		purchase, err := ledger.ParsePositiveMoney(parts[2])
		if err != nil {
			return r.menuReply(id, "Purchase amount must be a positive number.")
		}
		op, err := r.engine.Accrue(ctx, id, clientID, purchase)
		if err != nil {
			return r.failure(id, err)
		}
		return r.menuReply(id, fmt.Sprintf(
			"✅ Credited %s ₸ to client %d (3%% of %s ₸).\nBalance: %s ₸",
			*op.Delta, clientID, *op.Purchase, op.BalanceAfter))

	case "setbal":
		balance, err := ledger.ParseMoney(parts[2])
		if err != nil || balance < 0 {
			return r.menuReply(id, "Balance must be a non-negative number.")
		}
		op, err := r.engine.AdminSetBalance(ctx, id, clientID, balance)
		if err != nil {
			return r.failure(id, err)
		}
		return r.menuReply(id, fmt.Sprintf("🔄 Client %d balance set to %s ₸.", clientID, op.BalanceAfter))
	}

	return r.menuReply(id, "Choose an action:")
}

// =============================================================================
// RENDERING
// =============================================================================

func (r *Router) menuReply(id ledger.ClientID, text string) Reply {
	return Reply{Text: text, Buttons: r.menu(id)}
}

func (r *Router) menu(id ledger.ClientID) []string {
	buttons := []string{BtnCheckBalance, BtnRedeem, BtnHowTo, BtnAbout}
	if r.engine.IsAdmin(id) {
		buttons = append(buttons, BtnAccrue, BtnSetBalance, BtnListClients)
	}
	return buttons
}

// failure renders errors the router cannot interpret. It never guesses:
// anything unrecognized gets the generic notice.
func (r *Router) failure(id ledger.ClientID, err error) Reply {
	if errors.Is(err, ledger.ErrForbidden) {
		return r.menuReply(id, "❌ No access.")
	}
	if ledger.IsClientError(err) {
		return r.menuReply(id, "⚠ Invalid amount. Please check the input and try again.")
	}
	if ledger.IsRetryable(err) {
		r.log.Warn().Err(err).Int64("client_id", int64(id)).Msg("storage unavailable")
		return r.menuReply(id, "⏳ Service temporarily unavailable, please try again.")
	}
	r.log.Error().Err(err).Int64("client_id", int64(id)).Msg("unhandled router error")
	return r.menuReply(id, "Something went wrong. Please try again later.")
}

const howToText = "📖 How to use cashback\n\n" +
	"1️⃣ Shop at Home Queen Astana.\n" +
	"2️⃣ Get 3% of every purchase back as cashback.\n" +
	"3️⃣ On your next purchase, pay up to 50% of the bill with cashback.\n" +
	"4️⃣ The rest is paid in cash or by card.\n\n" +
	"✨ The more you shop, the more you save!"

const aboutText = "🏠 Home Queen Astana\nStylish goods for your home ✨\n📱 Instagram: @home_queen_astana"
