/*
auth.go - PIN verification, attempt counting and lockout

PURPOSE:
  Authenticates a client at a terminal by account number and PIN.
  After three consecutive mismatches the client is locked; once locked,
  even a correct PIN is refused until an administrative unlock.

ATTEMPT ACCOUNTING:
  Counter and lock mutations run under the client's exclusive lock, and
  the stored Client is always re-fetched inside it. Two concurrent
  wrong-PIN attempts can therefore never read the same stale counter and
  under-count the lockout. Every counted branch persists the Client
  before returning, so attempt counts survive across separate logins.

  An unknown account number is NOT a counted attempt, matching the
  behavior this engine replaces.

SEE ALSO:
  - locks.go: Client locks
  - provision.go: Client creation
*/
package bank

import "context"

// MaxPINAttempts is the number of consecutive mismatches that locks a
// client.
const MaxPINAttempts = 3

// Authenticator verifies PINs and manages the attempt counter and lock
// state of clients.
type Authenticator struct {
	store TxStore
	locks *LockTable
}

func NewAuthenticator(store TxStore, locks *LockTable) *Authenticator {
	return &Authenticator{store: store, locks: locks}
}

// Authenticate resolves the account by number and verifies the owning
// client's PIN, returning both on success. ErrAccountNotFound if the
// account is missing (no attempt counted). ErrClientLocked if the client
// is locked, or becomes locked by this attempt. ErrInvalidPIN on a
// mismatch below the lockout threshold. A match resets the counter.
func (a *Authenticator) Authenticate(ctx context.Context, accountNumber, pin string) (*Client, *Account, error) {
	acct, err := a.store.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, nil, err
	}

	release, err := a.locks.Acquire(ctx, clientKey(acct.OwnerIdentity))
	if err != nil {
		return nil, nil, err
	}
	defer release()

	client, err := a.store.FindClientByIdentity(ctx, acct.OwnerIdentity)
	if err != nil {
		return nil, nil, err
	}

	if client.Locked {
		return nil, nil, ErrClientLocked
	}

	if client.PIN != pin {
		client.FailedAttempts++
		if client.FailedAttempts >= MaxPINAttempts {
			client.Locked = true
		}
		if err := a.store.SaveClient(ctx, *client); err != nil {
			return nil, nil, err
		}
		if client.Locked {
			return nil, nil, ErrClientLocked
		}
		return nil, nil, ErrInvalidPIN
	}

	client.FailedAttempts = 0
	if err := a.store.SaveClient(ctx, *client); err != nil {
		return nil, nil, err
	}
	return client, acct, nil
}

// Unlock is the administrative operation that clears a lockout: it
// resets the attempt counter, clears the lock flag and replaces the PIN.
// Authorization of the caller is enforced by the surrounding system.
func (a *Authenticator) Unlock(ctx context.Context, clientIdentity, newPIN string) (*Client, error) {
	release, err := a.locks.Acquire(ctx, clientKey(clientIdentity))
	if err != nil {
		return nil, err
	}
	defer release()

	client, err := a.store.FindClientByIdentity(ctx, clientIdentity)
	if err != nil {
		return nil, err
	}

	client.Locked = false
	client.FailedAttempts = 0
	client.PIN = newPIN
	if err := a.store.SaveClient(ctx, *client); err != nil {
		return nil, err
	}
	return client, nil
}

// ChangePIN replaces the client's PIN after verifying the current one.
// ErrInvalidPIN on mismatch; lock state and attempt counter are not
// affected either way.
func (a *Authenticator) ChangePIN(ctx context.Context, clientIdentity, currentPIN, newPIN string) error {
	release, err := a.locks.Acquire(ctx, clientKey(clientIdentity))
	if err != nil {
		return err
	}
	defer release()

	client, err := a.store.FindClientByIdentity(ctx, clientIdentity)
	if err != nil {
		return err
	}

	if client.PIN != currentPIN {
		return ErrInvalidPIN
	}

	client.PIN = newPIN
	return a.store.SaveClient(ctx, *client)
}
