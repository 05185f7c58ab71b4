/*
ledger.go - Single-account debit and credit

PURPOSE:
  Withdraw and Deposit are the two single-account balance mutations.
  Both enforce the non-negative-balance invariant and record exactly one
  Movement per successful change.

EXECUTION MODEL:
  1. Validate the amount (before any lock, never causes partial state)
  2. Acquire the account's exclusive lock (bounded wait, ErrBusy)
  3. Inside one WithTx unit: re-read the account, check the invariant,
     write the new balance, append the movement
  4. Release the lock

  The balance is always re-read inside the unit; no cached copy is
  trusted, so concurrent mutations on the same account can never observe
  a stale balance.

SEE ALSO:
  - transfer.go: The cross-account composition of these steps
  - recorder.go: Movement creation
*/
package bank

import "context"

// Ledger performs single-account balance mutations.
type Ledger struct {
	store    TxStore
	locks    *LockTable
	recorder *Recorder
}

func NewLedger(store TxStore, locks *LockTable, recorder *Recorder) *Ledger {
	return &Ledger{store: store, locks: locks, recorder: recorder}
}

// Withdraw debits amount from the account. ErrInvalidAmount for a
// non-positive amount; InsufficientFundsError if amount exceeds the
// balance, leaving the account unmodified. On success the balance
// decreases by amount and a WITHDRAWAL movement is recorded and
// returned.
func (l *Ledger) Withdraw(ctx context.Context, accountNumber string, amount Money) (Movement, error) {
	if !amount.IsPositive() {
		return Movement{}, ErrInvalidAmount
	}

	release, err := l.locks.Acquire(ctx, accountKey(accountNumber))
	if err != nil {
		return Movement{}, err
	}
	defer release()

	var out Movement
	err = l.store.WithTx(ctx, func(s Store) error {
		acct, err := s.FindByNumber(ctx, accountNumber)
		if err != nil {
			return err
		}
		if acct.Balance.LessThan(amount) {
			return &InsufficientFundsError{
				AccountNumber: acct.Number,
				Available:     acct.Balance,
				Requested:     amount,
			}
		}

		acct.Balance = acct.Balance.Sub(amount)
		if err := s.SaveAccount(ctx, *acct); err != nil {
			return err
		}

		out, err = l.recorder.Record(ctx, s, acct, MovementWithdrawal, amount, "")
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	return out, nil
}

// Deposit credits amount to the account. ErrInvalidAmount for a
// non-positive amount. On success the balance increases by amount and a
// DEPOSIT movement is recorded and returned.
func (l *Ledger) Deposit(ctx context.Context, accountNumber string, amount Money) (Movement, error) {
	if !amount.IsPositive() {
		return Movement{}, ErrInvalidAmount
	}

	release, err := l.locks.Acquire(ctx, accountKey(accountNumber))
	if err != nil {
		return Movement{}, err
	}
	defer release()

	var out Movement
	err = l.store.WithTx(ctx, func(s Store) error {
		acct, err := s.FindByNumber(ctx, accountNumber)
		if err != nil {
			return err
		}

		acct.Balance = acct.Balance.Add(amount)
		if err := s.SaveAccount(ctx, *acct); err != nil {
			return err
		}

		out, err = l.recorder.Record(ctx, s, acct, MovementDeposit, amount, "")
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	return out, nil
}
