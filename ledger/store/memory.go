// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/homequeen/cashback-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	clients    map[ledger.ClientID]ledger.Client
	operations []ledger.Operation
}

func NewMemory() *Memory {
	return &Memory{clients: make(map[ledger.ClientID]ledger.Client)}
}

func (m *Memory) GetClient(_ context.Context, id ledger.ClientID) (*ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) PutClient(_ context.Context, c ledger.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

// AppendOperation appends one record. Append-only: nothing is ever
// updated or removed.
func (m *Memory) AppendOperation(_ context.Context, op ledger.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, op)
	return nil
}

func (m *Memory) ListClients(_ context.Context) ([]ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listClientsLocked(), nil
}

// listClientsLocked orders by registration time; caller holds the lock.
func (m *Memory) listClientsLocked() []ledger.Client {
	result := make([]ledger.Client, 0, len(m.clients))
	for _, c := range m.clients {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RegisteredAt.Equal(result[j].RegisteredAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].RegisteredAt.Before(result[j].RegisteredAt)
	})
	return result
}

func (m *Memory) CountClients(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients), nil
}

// ListOperations returns the newest operations first, at most limit.
func (m *Memory) ListOperations(_ context.Context, limit int) ([]ledger.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.operations)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]ledger.Operation, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, m.operations[i])
	}
	return result, nil
}

// ListOperationsByClient returns a client's operations in insertion order.
func (m *Memory) ListOperationsByClient(_ context.Context, id ledger.ClientID) ([]ledger.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Operation
	for _, op := range m.operations {
		if op.ClientID == id {
			result = append(result, op)
		}
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against a snapshot view; on error all writes are
// rolled back.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	clients    map[ledger.ClientID]ledger.Client
	operations []ledger.Operation
}

func (tm *TxMemory) snapshot() memorySnapshot {
	clients := make(map[ledger.ClientID]ledger.Client, len(tm.clients))
	for k, v := range tm.clients {
		clients[k] = v
	}
	ops := append([]ledger.Operation{}, tm.operations...)
	return memorySnapshot{clients: clients, operations: ops}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.clients = s.clients
	tm.operations = s.operations
}

// txMemoryView writes directly to the parent while the parent lock is
// held by WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetClient(_ context.Context, id ledger.ClientID) (*ledger.Client, error) {
	c, ok := tv.parent.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tv *txMemoryView) PutClient(_ context.Context, c ledger.Client) error {
	tv.parent.clients[c.ID] = c
	return nil
}

func (tv *txMemoryView) AppendOperation(_ context.Context, op ledger.Operation) error {
	tv.parent.operations = append(tv.parent.operations, op)
	return nil
}

func (tv *txMemoryView) ListClients(_ context.Context) ([]ledger.Client, error) {
	return tv.parent.listClientsLocked(), nil
}

func (tv *txMemoryView) CountClients(_ context.Context) (int, error) {
	return len(tv.parent.clients), nil
}
