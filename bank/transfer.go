/*
transfer.go - Atomic cross-account transfer

PURPOSE:
  Composes a debit on the source account and a credit on the destination
  into one atomic unit: two balance writes and two movement appends
  either all commit or none do. A failure mid-operation never leaves one
  leg applied.

LOCK ORDERING:
  Both account locks are taken before the invariant check and held until
  the unit commits, always in lexicographic account-number order
  regardless of direction. Two transfers crossing the same pair of
  accounts in opposite directions therefore cannot deadlock.

TRANSFER IDENTITY:
  The TRANSFER_OUT and TRANSFER_IN movements share one TransferID so the
  two legs stay traceable to a single logical transfer.

SEE ALSO:
  - ledger.go: Single-account operations
  - locks.go: AcquirePair ordering
*/
package bank

import (
	"context"

	"github.com/google/uuid"
)

// TransferResult carries the two movement legs of one transfer.
type TransferResult struct {
	TransferID TransferID
	Out        Movement
	In         Movement
}

// TransferEngine moves money between two accounts atomically.
type TransferEngine struct {
	store    TxStore
	locks    *LockTable
	recorder *Recorder
}

func NewTransferEngine(store TxStore, locks *LockTable, recorder *Recorder) *TransferEngine {
	return &TransferEngine{store: store, locks: locks, recorder: recorder}
}

// Transfer debits amount from the source account and credits it to the
// destination. ErrInvalidAmount for a non-positive amount, ErrSameAccount
// when the two numbers match, InsufficientFundsError when the source
// balance is short; in every failure case neither account is mutated.
func (e *TransferEngine) Transfer(ctx context.Context, sourceNumber, destNumber string, amount Money) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if sourceNumber == destNumber {
		return nil, ErrSameAccount
	}

	release, err := e.locks.AcquirePair(ctx, accountKey(sourceNumber), accountKey(destNumber))
	if err != nil {
		return nil, err
	}
	defer release()

	result := &TransferResult{TransferID: TransferID(uuid.NewString())}
	err = e.store.WithTx(ctx, func(s Store) error {
		source, err := s.FindByNumber(ctx, sourceNumber)
		if err != nil {
			return err
		}
		dest, err := s.FindByNumber(ctx, destNumber)
		if err != nil {
			return err
		}
		if source.Balance.LessThan(amount) {
			return &InsufficientFundsError{
				AccountNumber: source.Number,
				Available:     source.Balance,
				Requested:     amount,
			}
		}

		source.Balance = source.Balance.Sub(amount)
		dest.Balance = dest.Balance.Add(amount)
		if err := s.SaveAccount(ctx, *source); err != nil {
			return err
		}
		if err := s.SaveAccount(ctx, *dest); err != nil {
			return err
		}

		result.Out, err = e.recorder.Record(ctx, s, source, MovementTransferOut, amount, result.TransferID)
		if err != nil {
			return err
		}
		result.In, err = e.recorder.Record(ctx, s, dest, MovementTransferIn, amount, result.TransferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
