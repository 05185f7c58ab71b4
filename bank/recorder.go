/*
recorder.go - Movement creation and history

PURPOSE:
  Every successful balance change goes through the Recorder before the
  operation is considered complete. Record is called inside the same
  WithTx unit as the balance write, so an append failure discards the
  tentative balance change instead of committing a mutation with no
  audit record.

TIMESTAMPS:
  Movements are stamped at creation. The recorder only runs under the
  affected account's exclusive lock, so per-account timestamps are
  monotonically non-decreasing; the store breaks exact ties by insertion
  order.

SEE ALSO:
  - ledger.go, transfer.go: Callers
  - store.go: MovementLog contract
*/
package bank

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recorder writes Movement entries for balance changes and serves the
// movement history.
type Recorder struct {
	store Store
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record appends one movement through log, which is the transaction-
// scoped store of the enclosing operation. The account carries its
// post-mutation balance; transferID is empty except for transfer legs.
func (r *Recorder) Record(ctx context.Context, log MovementLog, acct *Account, kind MovementKind, amount Money, transferID TransferID) (Movement, error) {
	m := Movement{
		ID:               MovementID(uuid.NewString()),
		AccountNumber:    acct.Number,
		Kind:             kind,
		Amount:           amount,
		ResultingBalance: acct.Balance,
		TransferID:       transferID,
		CreatedAt:        r.now().UTC(),
	}
	if err := log.Append(ctx, m); err != nil {
		return Movement{}, err
	}
	return m, nil
}

// History returns the account's movements ordered by timestamp
// ascending. ErrAccountNotFound if the account does not exist; an empty
// slice (not an error) if it exists but has no movements.
func (r *Recorder) History(ctx context.Context, accountNumber string) ([]Movement, error) {
	if _, err := r.store.FindByNumber(ctx, accountNumber); err != nil {
		return nil, err
	}
	movements, err := r.store.ListByAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []Movement{}
	}
	return movements, nil
}
