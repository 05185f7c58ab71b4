// Package store provides Store implementations.
package store

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/bancocpm/teller-engine/bank"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	clients   map[string]bank.Client
	accounts  map[string]bank.Account
	movements map[string][]bank.Movement
}

func NewMemory() *Memory {
	return &Memory{
		clients:   make(map[string]bank.Client),
		accounts:  make(map[string]bank.Account),
		movements: make(map[string][]bank.Movement),
	}
}

func (m *Memory) FindByNumber(_ context.Context, number string) (*bank.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findAccount(m.accounts, number)
}

func (m *Memory) FindClientByIdentity(_ context.Context, identity string) (*bank.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findClient(m.clients, identity)
}

func (m *Memory) FindAccountsByClient(_ context.Context, identity string) ([]bank.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return accountsByClient(m.accounts, identity), nil
}

func (m *Memory) SaveClient(_ context.Context, c bank.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.Identity] = c
	return nil
}

func (m *Memory) SaveAccount(_ context.Context, a bank.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.Number] = a
	return nil
}

func (m *Memory) Append(_ context.Context, mv bank.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appendMovement(m.movements, mv)
	return nil
}

func (m *Memory) ListByAccount(_ context.Context, accountNumber string) ([]bank.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return listMovements(m.movements, accountNumber), nil
}

// WithTx runs fn against a staged copy of the store. The stage only
// replaces the live maps if fn succeeds, so an error from fn discards
// every write it made. The store lock is held for the whole unit.
func (m *Memory) WithTx(ctx context.Context, fn func(bank.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stage := &memTx{
		clients:   maps.Clone(m.clients),
		accounts:  maps.Clone(m.accounts),
		// Slice headers are shared with the live map; appendMovement
		// copies before appending so staged writes stay isolated.
		movements: maps.Clone(m.movements),
	}
	if err := fn(stage); err != nil {
		return err
	}

	m.clients = stage.clients
	m.accounts = stage.accounts
	m.movements = stage.movements
	return nil
}

// memTx is the transaction-scoped view. It is only ever used while the
// parent's lock is held, so it needs no locking of its own.
type memTx struct {
	clients   map[string]bank.Client
	accounts  map[string]bank.Account
	movements map[string][]bank.Movement
}

func (t *memTx) FindByNumber(_ context.Context, number string) (*bank.Account, error) {
	return findAccount(t.accounts, number)
}

func (t *memTx) FindClientByIdentity(_ context.Context, identity string) (*bank.Client, error) {
	return findClient(t.clients, identity)
}

func (t *memTx) FindAccountsByClient(_ context.Context, identity string) ([]bank.Account, error) {
	return accountsByClient(t.accounts, identity), nil
}

func (t *memTx) SaveClient(_ context.Context, c bank.Client) error {
	t.clients[c.Identity] = c
	return nil
}

func (t *memTx) SaveAccount(_ context.Context, a bank.Account) error {
	t.accounts[a.Number] = a
	return nil
}

func (t *memTx) Append(_ context.Context, mv bank.Movement) error {
	appendMovement(t.movements, mv)
	return nil
}

func (t *memTx) ListByAccount(_ context.Context, accountNumber string) ([]bank.Movement, error) {
	return listMovements(t.movements, accountNumber), nil
}

// =============================================================================
// SHARED HELPERS - Operate on raw maps, caller holds the lock
// =============================================================================

func findAccount(accounts map[string]bank.Account, number string) (*bank.Account, error) {
	a, ok := accounts[number]
	if !ok {
		return nil, bank.ErrAccountNotFound
	}
	cp := a
	return &cp, nil
}

func findClient(clients map[string]bank.Client, identity string) (*bank.Client, error) {
	c, ok := clients[identity]
	if !ok {
		return nil, bank.ErrClientNotFound
	}
	cp := c
	return &cp, nil
}

func accountsByClient(accounts map[string]bank.Account, identity string) []bank.Account {
	var result []bank.Account
	for _, a := range accounts {
		if a.OwnerIdentity == identity {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result
}

func appendMovement(movements map[string][]bank.Movement, mv bank.Movement) {
	// Copy before appending: a staged map may still share the slice
	// backing array with the live store.
	existing := movements[mv.AccountNumber]
	ms := make([]bank.Movement, len(existing), len(existing)+1)
	copy(ms, existing)
	movements[mv.AccountNumber] = append(ms, mv)
}

func listMovements(movements map[string][]bank.Movement, accountNumber string) []bank.Movement {
	result := make([]bank.Movement, len(movements[accountNumber]))
	copy(result, movements[accountNumber])
	return result
}

