/*
Package bank provides the core transactional account engine.

PURPOSE:
  This package contains the domain types and algorithms for a teller/ATM
  system: PIN-based authentication with failed-attempt lockout, and
  balance mutations (withdraw, deposit, transfer) that preserve account
  invariants under concurrent access and record an auditable movement
  history.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An exact decimal monetary amount
  - Client: The human account holder (identity, PIN, lock state)
  - Account: A numbered balance-holding record owned by a Client
  - Movement: An immutable audit record of one balance change

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Immutability: Movements are never modified after creation
  3. Auditability: Every balance change produces exactly one Movement
  4. Invariant: Account balances are never negative, enforced at every
     mutation

SEE ALSO:
  - ledger.go: Single-account withdraw/deposit
  - transfer.go: Atomic cross-account transfer
  - auth.go: PIN verification and lockout
  - recorder.go: Movement history
*/
package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact decimal monetary amount
// =============================================================================

// Money is a monetary amount with exact decimal semantics. Amounts cross
// every boundary of this package as Money, never as binary floats, so
// repeated operations accumulate no rounding drift.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// MustParseMoney parses a decimal string, returning zero on malformed input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) String() string           { return m.Value.String() }

// =============================================================================
// CLIENT - Account holder with authentication state
// =============================================================================

// Client is the human account holder. Identity is immutable after
// provisioning; PIN, FailedAttempts and Locked are mutated only by the
// Authenticator under the client's exclusive lock.
type Client struct {
	Identity       string
	FullName       string
	PIN            string
	FailedAttempts int
	Locked         bool
	CreatedAt      time.Time
}

// =============================================================================
// ACCOUNT - Numbered balance record
// =============================================================================

type AccountType string

const (
	AccountSavings  AccountType = "savings"
	AccountChecking AccountType = "checking"
)

// Account holds a non-negative balance owned by exactly one Client.
// Number and Type are fixed at creation; Balance is mutated only by
// Ledger and TransferEngine under the account's exclusive lock.
type Account struct {
	Number        string
	Type          AccountType
	Balance       Money
	OwnerIdentity string
	CreatedAt     time.Time
}

// =============================================================================
// MOVEMENT - Append-only audit record
// =============================================================================

type MovementKind string

const (
	MovementWithdrawal  MovementKind = "withdrawal"
	MovementDeposit     MovementKind = "deposit"
	MovementTransferOut MovementKind = "transfer_out"
	MovementTransferIn  MovementKind = "transfer_in"
)

type MovementID string

// TransferID links the two legs of one transfer. Empty for withdrawals
// and deposits.
type TransferID string

// Movement records one balance change. Created exactly once per
// successful mutation, immutable thereafter. ResultingBalance is the
// balance snapshot immediately after the change, for audit.
type Movement struct {
	ID               MovementID
	AccountNumber    string
	Kind             MovementKind
	Amount           Money
	ResultingBalance Money
	TransferID       TransferID
	CreatedAt        time.Time
}
