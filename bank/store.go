/*
store.go - Persistence interfaces for clients, accounts and movements

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  consumes these interfaces and does not care whether they are backed by
  SQLite, another database, or memory.

KEY INTERFACES:
  AccountStore: Keyed storage of Client and Account records
  MovementLog:  Append-only storage of Movement records
  Store:        Both, as one handle
  TxStore:      Store plus all-or-nothing multi-write units

APPEND-ONLY CONTRACT:
  MovementLog has Append and ListByAccount only. No Update, no Delete.
  Movements are immutable audit records.

ATOMIC UNITS:
  Every balance change commits the account write and the movement write
  in a single WithTx unit. A crash or storage failure mid-operation must
  not leave an updated balance without its audit record, or vice versa.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - bank/store:   In-memory for tests and dev

SEE ALSO:
  - ledger.go, transfer.go: Mutate accounts through WithTx
  - recorder.go: Appends movements
*/
package bank

import "context"

// AccountStore is durable keyed storage of Client and Account records.
// Lookups return ErrAccountNotFound / ErrClientNotFound for missing keys.
// Saves are upserts, durable and all-or-nothing per call.
type AccountStore interface {
	FindByNumber(ctx context.Context, number string) (*Account, error)
	FindClientByIdentity(ctx context.Context, identity string) (*Client, error)

	// FindAccountsByClient returns all accounts owned by the client,
	// ordered by number. Empty slice if the client has none.
	FindAccountsByClient(ctx context.Context, identity string) ([]Account, error)

	SaveClient(ctx context.Context, c Client) error
	SaveAccount(ctx context.Context, a Account) error
}

// MovementLog is durable append-only storage of Movement records.
type MovementLog interface {
	// Append persists a movement. This is the ONLY write operation.
	Append(ctx context.Context, m Movement) error

	// ListByAccount returns the account's movements ordered by creation
	// time ascending. Empty slice for an account with no movements.
	ListByAccount(ctx context.Context, accountNumber string) ([]Movement, error)
}

// Store combines both boundary contracts into one handle.
type Store interface {
	AccountStore
	MovementLog
}

// TxStore extends Store with transactional units.
type TxStore interface {
	Store

	// WithTx executes fn against a transaction-scoped Store.
	// If fn returns an error, every write made through it is discarded.
	// If fn returns nil, all writes commit together.
	WithTx(ctx context.Context, fn func(Store) error) error
}
