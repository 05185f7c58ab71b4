/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements bank.AccountStore, bank.MovementLog and bank.TxStore using
  SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The movements table is append-only:
  - No UPDATE statements on movements
  - No DELETE statements on movements

KEY TABLES:
  clients:   Client records (identity, PIN, attempt counter, lock flag)
  accounts:  Account records with their current balance
  movements: Immutable audit log of all balance changes

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex to serialize writers at the process level. The
  engine additionally holds per-account locks around every mutation.

MONEY REPRESENTATION:
  Balances and amounts are stored as decimal strings and parsed back
  through shopspring/decimal. Never floats.

USAGE:
  store, err := sqlite.New("./data/teller.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - bank/store.go: Interface definitions
  - bank/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bancocpm/teller-engine/bank"
)

// Store implements bank.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		identity        TEXT PRIMARY KEY,
		full_name       TEXT NOT NULL,
		pin             TEXT NOT NULL,
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		locked          INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		number         TEXT PRIMARY KEY,
		account_type   TEXT NOT NULL,
		balance        TEXT NOT NULL,
		owner_identity TEXT NOT NULL REFERENCES clients(identity),
		created_at     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_owner
		ON accounts(owner_identity);

	-- Movements (append-only audit log)
	CREATE TABLE IF NOT EXISTS movements (
		id                TEXT PRIMARY KEY,
		account_number    TEXT NOT NULL REFERENCES accounts(number),
		kind              TEXT NOT NULL,
		amount            TEXT NOT NULL,
		resulting_balance TEXT NOT NULL,
		transfer_id       TEXT,
		created_at        TEXT NOT NULL
	);

	-- History queries (hot path): rowid breaks same-timestamp ties
	CREATE INDEX IF NOT EXISTS idx_movements_account_created
		ON movements(account_number, created_at);

	-- Transfer leg pairing
	CREATE INDEX IF NOT EXISTS idx_movements_transfer
		ON movements(transfer_id) WHERE transfer_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve plain calls and WithTx units.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNT STORE (bank.AccountStore interface)
// =============================================================================

func (s *Store) FindByNumber(ctx context.Context, number string) (*bank.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findAccount(ctx, s.db, number)
}

func (s *Store) FindClientByIdentity(ctx context.Context, identity string) (*bank.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findClient(ctx, s.db, identity)
}

func (s *Store) FindAccountsByClient(ctx context.Context, identity string) ([]bank.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findAccountsByClient(ctx, s.db, identity)
}

func (s *Store) SaveClient(ctx context.Context, c bank.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveClient(ctx, s.db, c)
}

func (s *Store) SaveAccount(ctx context.Context, a bank.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAccount(ctx, s.db, a)
}

func findAccount(ctx context.Context, db dbtx, number string) (*bank.Account, error) {
	row := db.QueryRowContext(ctx, `
		SELECT number, account_type, balance, owner_identity, created_at
		FROM accounts WHERE number = ?`, number)

	var a bank.Account
	var balance, createdAt string
	err := row.Scan(&a.Number, &a.Type, &balance, &a.OwnerIdentity, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrAccountNotFound
	}
	if err != nil {
		return nil, &bank.StorageError{Op: "find account", Err: err}
	}
	a.Balance = bank.MustParseMoney(balance)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func findClient(ctx context.Context, db dbtx, identity string) (*bank.Client, error) {
	row := db.QueryRowContext(ctx, `
		SELECT identity, full_name, pin, failed_attempts, locked, created_at
		FROM clients WHERE identity = ?`, identity)

	var c bank.Client
	var createdAt string
	err := row.Scan(&c.Identity, &c.FullName, &c.PIN, &c.FailedAttempts, &c.Locked, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrClientNotFound
	}
	if err != nil {
		return nil, &bank.StorageError{Op: "find client", Err: err}
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func findAccountsByClient(ctx context.Context, db dbtx, identity string) ([]bank.Account, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT number, account_type, balance, owner_identity, created_at
		FROM accounts WHERE owner_identity = ? ORDER BY number ASC`, identity)
	if err != nil {
		return nil, &bank.StorageError{Op: "list accounts", Err: err}
	}
	defer rows.Close()

	var accounts []bank.Account
	for rows.Next() {
		var a bank.Account
		var balance, createdAt string
		if err := rows.Scan(&a.Number, &a.Type, &balance, &a.OwnerIdentity, &createdAt); err != nil {
			return nil, &bank.StorageError{Op: "scan account", Err: err}
		}
		a.Balance = bank.MustParseMoney(balance)
		a.CreatedAt = parseTime(createdAt)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &bank.StorageError{Op: "list accounts", Err: err}
	}
	return accounts, nil
}

func saveClient(ctx context.Context, db dbtx, c bank.Client) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (identity, full_name, pin, failed_attempts, locked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			full_name = excluded.full_name,
			pin = excluded.pin,
			failed_attempts = excluded.failed_attempts,
			locked = excluded.locked`,
		c.Identity, c.FullName, c.PIN, c.FailedAttempts, c.Locked,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &bank.StorageError{Op: "save client", Err: err}
	}
	return nil
}

func saveAccount(ctx context.Context, db dbtx, a bank.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (number, account_type, balance, owner_identity, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			balance = excluded.balance`,
		a.Number, a.Type, a.Balance.String(), a.OwnerIdentity,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &bank.StorageError{Op: "save account", Err: err}
	}
	return nil
}

// =============================================================================
// MOVEMENT LOG (bank.MovementLog interface)
// =============================================================================

// Append adds a movement to the audit log. Append-only.
func (s *Store) Append(ctx context.Context, m bank.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendMovement(ctx, s.db, m)
}

func (s *Store) ListByAccount(ctx context.Context, accountNumber string) ([]bank.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMovements(ctx, s.db, accountNumber)
}

func appendMovement(ctx context.Context, db dbtx, m bank.Movement) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO movements (id, account_number, kind, amount, resulting_balance, transfer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AccountNumber, m.Kind, m.Amount.String(), m.ResultingBalance.String(),
		nullString(string(m.TransferID)),
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &bank.StorageError{Op: "append movement", Err: err}
	}
	return nil
}

func listMovements(ctx context.Context, db dbtx, accountNumber string) ([]bank.Movement, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, account_number, kind, amount, resulting_balance, transfer_id, created_at
		FROM movements
		WHERE account_number = ?
		ORDER BY created_at ASC, rowid ASC`, accountNumber)
	if err != nil {
		return nil, &bank.StorageError{Op: "list movements", Err: err}
	}
	defer rows.Close()

	var movements []bank.Movement
	for rows.Next() {
		var m bank.Movement
		var amount, resulting, createdAt string
		var transferID sql.NullString
		if err := rows.Scan(&m.ID, &m.AccountNumber, &m.Kind, &amount, &resulting, &transferID, &createdAt); err != nil {
			return nil, &bank.StorageError{Op: "scan movement", Err: err}
		}
		m.Amount = bank.MustParseMoney(amount)
		m.ResultingBalance = bank.MustParseMoney(resulting)
		m.TransferID = bank.TransferID(transferID.String)
		m.CreatedAt = parseTime(createdAt)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &bank.StorageError{Op: "list movements", Err: err}
	}
	return movements, nil
}

// =============================================================================
// TRANSACTIONAL STORE (bank.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. An error from fn
// rolls back every write it made; begin/commit failures surface as
// storage errors.
func (s *Store) WithTx(ctx context.Context, fn func(bank.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &bank.StorageError{Op: "begin tx", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &bank.StorageError{Op: "commit tx", Err: err}
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) FindByNumber(ctx context.Context, number string) (*bank.Account, error) {
	return findAccount(ctx, ts.tx, number)
}

func (ts *txStore) FindClientByIdentity(ctx context.Context, identity string) (*bank.Client, error) {
	return findClient(ctx, ts.tx, identity)
}

func (ts *txStore) FindAccountsByClient(ctx context.Context, identity string) ([]bank.Account, error) {
	return findAccountsByClient(ctx, ts.tx, identity)
}

func (ts *txStore) SaveClient(ctx context.Context, c bank.Client) error {
	return saveClient(ctx, ts.tx, c)
}

func (ts *txStore) SaveAccount(ctx context.Context, a bank.Account) error {
	return saveAccount(ctx, ts.tx, a)
}

func (ts *txStore) Append(ctx context.Context, m bank.Movement) error {
	return appendMovement(ctx, ts.tx, m)
}

func (ts *txStore) ListByAccount(ctx context.Context, accountNumber string) ([]bank.Movement, error) {
	return listMovements(ctx, ts.tx, accountNumber)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
