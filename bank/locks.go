/*
locks.go - Per-record exclusive access with bounded wait

PURPOSE:
  Every state-changing operation on an Account or Client executes under
  an exclusive lock scoped to that record, so no two concurrent mutations
  interleave their read/check/write steps. Locks are keyed by account
  number or client identity.

BOUNDED WAIT:
  None of the engine's operations are long-running, so a caller that
  cannot acquire a lock within the configured wait gets ErrBusy instead
  of blocking indefinitely. Callers may retry.

DEADLOCK AVOIDANCE:
  A transfer needs both account locks. AcquirePair always takes them in
  lexicographic key order regardless of which is source or destination,
  so two transfers crossing the same pair in opposite directions cannot
  circular-wait.

SEE ALSO:
  - ledger.go, transfer.go, auth.go: Lock holders
*/
package bank

import (
	"context"
	"sync"
	"time"
)

// DefaultLockWait bounds how long an operation waits for exclusive
// access before failing with ErrBusy.
const DefaultLockWait = 3 * time.Second

// LockTable hands out one exclusive lock per key. Locks are created
// lazily and kept for the table's lifetime; the key space (accounts and
// clients) is small and bounded.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	wait  time.Duration
}

func NewLockTable(wait time.Duration) *LockTable {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &LockTable{
		locks: make(map[string]chan struct{}),
		wait:  wait,
	}
}

func (t *LockTable) lock(key string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[key] = ch
	}
	return ch
}

// Acquire takes the exclusive lock for key, waiting at most the table's
// bounded wait. It returns a release function, or ErrBusy / the context
// error if the lock could not be taken in time.
func (t *LockTable) Acquire(ctx context.Context, key string) (func(), error) {
	ch := t.lock(key)

	timer := time.NewTimer(t.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AcquirePair takes both locks in lexicographic key order and returns a
// single release for both. On failure to take the second lock the first
// is released before returning.
func (t *LockTable) AcquirePair(ctx context.Context, a, b string) (func(), error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	releaseFirst, err := t.Acquire(ctx, first)
	if err != nil {
		return nil, err
	}
	releaseSecond, err := t.Acquire(ctx, second)
	if err != nil {
		releaseFirst()
		return nil, err
	}
	return func() {
		releaseSecond()
		releaseFirst()
	}, nil
}

// Lock keys are namespaced so an account number can never collide with
// a client identity.

func accountKey(number string) string  { return "account:" + number }
func clientKey(identity string) string { return "client:" + identity }
