/*
session.go - Per-chat conversation state

PURPOSE:
  The registration dialogue is a two-step exchange: the bot asks for the
  client's full name, then for a phone number. That position in the
  dialogue is per-session state, held here as an explicit value instead
  of shared mutable flags.

STATES:
  Idle          No dialogue in progress; free text is command input
  AwaitingName  /start issued by an unregistered client
  AwaitingPhone Name received, waiting for the phone number

Sessions hold only conversational position. Balances and profiles live
in the ledger; losing session state loses at most a half-finished
registration prompt.
*/
package bot

import (
	"sync"

	"github.com/homequeen/cashback-ledger/ledger"
)

// =============================================================================
// SESSION STATE
// =============================================================================

type State string

const (
	StateIdle          State = "idle"
	StateAwaitingName  State = "awaiting_name"
	StateAwaitingPhone State = "awaiting_phone"
)

type session struct {
	state State
	name  string // captured during registration, pending the phone step
}

// Sessions tracks conversation state per chat identity.
type Sessions struct {
	mu       sync.Mutex
	sessions map[ledger.ClientID]*session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[ledger.ClientID]*session)}
}

func (s *Sessions) get(id ledger.ClientID) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return *sess
	}
	return session{state: StateIdle}
}

func (s *Sessions) set(id ledger.ClientID, sess session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sess
}

func (s *Sessions) clear(id ledger.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
