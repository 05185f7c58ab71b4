package bank_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancocpm/teller-engine/bank"
)

func TestHistory_OrderedAscending(t *testing.T) {
	// Movements come back oldest first, and the last resulting balance
	// is the account's current balance.

	e := newEngine(t)
	e.seedAccount(t, "001", 100)
	ctx := context.Background()

	_, err := e.ledger.Deposit(ctx, "001", money(10))
	require.NoError(t, err)
	_, err = e.ledger.Withdraw(ctx, "001", money(20))
	require.NoError(t, err)
	_, err = e.ledger.Deposit(ctx, "001", money(5))
	require.NoError(t, err)

	history, err := e.recorder.History(ctx, "001")

	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, bank.MovementDeposit, history[0].Kind)
	assert.Equal(t, bank.MovementWithdrawal, history[1].Kind)
	assert.Equal(t, bank.MovementDeposit, history[2].Kind)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.Before(history[i-1].CreatedAt),
			"timestamps must be non-decreasing")
	}
	assert.True(t, history[2].ResultingBalance.Equal(e.balance(t, "001")))
}

func TestHistory_EmptyForFreshAccount(t *testing.T) {
	// An existing account with no movements yields an empty sequence,
	// not an error.

	e := newEngine(t)
	e.seedAccount(t, "001", 100)

	history, err := e.recorder.History(context.Background(), "001")

	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistory_AccountNotFound(t *testing.T) {
	e := newEngine(t)

	_, err := e.recorder.History(context.Background(), "missing")

	assert.ErrorIs(t, err, bank.ErrAccountNotFound)
}

func TestHistory_ScopedToAccount(t *testing.T) {
	// Movements of other accounts never leak into an account's history.

	e := newEngine(t)
	e.seedAccount(t, "001", 100)
	e.seedAccount(t, "002", 100)
	ctx := context.Background()

	_, err := e.ledger.Deposit(ctx, "001", money(10))
	require.NoError(t, err)
	_, err = e.ledger.Deposit(ctx, "002", money(20))
	require.NoError(t, err)

	history, err := e.recorder.History(ctx, "001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "001", history[0].AccountNumber)
}
