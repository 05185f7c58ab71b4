/*
provision.go - Administrative creation of clients and accounts

PURPOSE:
  The administrative actor provisions clients and accounts before any
  terminal operation can touch them. Identifiers are immutable after
  creation and duplicates are rejected; an initial balance may be zero
  but never negative.
*/
package bank

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Provisioner creates Client and Account records.
type Provisioner struct {
	store TxStore
	now   func() time.Time
}

func NewProvisioner(store TxStore) *Provisioner {
	return &Provisioner{store: store, now: time.Now}
}

// CreateClient provisions a client. The identity and PIN must be
// non-empty; a reused identity fails with ErrClientExists.
func (p *Provisioner) CreateClient(ctx context.Context, identity, fullName, pin string) (*Client, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || pin == "" {
		return nil, ErrInvalidInput
	}

	client := Client{
		Identity:  identity,
		FullName:  fullName,
		PIN:       pin,
		CreatedAt: p.now().UTC(),
	}

	err := p.store.WithTx(ctx, func(s Store) error {
		_, err := s.FindClientByIdentity(ctx, identity)
		if err == nil {
			return ErrClientExists
		}
		if !errors.Is(err, ErrClientNotFound) {
			return err
		}
		return s.SaveClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// CreateAccount provisions an account for an existing client with an
// initial balance. ErrClientNotFound if the owner does not exist,
// ErrAccountExists on a reused number, ErrInvalidAmount for a negative
// initial balance.
func (p *Provisioner) CreateAccount(ctx context.Context, ownerIdentity, number string, typ AccountType, initial Money) (*Account, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrInvalidInput
	}
	if initial.IsNegative() {
		return nil, ErrInvalidAmount
	}

	account := Account{
		Number:        number,
		Type:          typ,
		Balance:       initial,
		OwnerIdentity: ownerIdentity,
		CreatedAt:     p.now().UTC(),
	}

	err := p.store.WithTx(ctx, func(s Store) error {
		if _, err := s.FindClientByIdentity(ctx, ownerIdentity); err != nil {
			return err
		}
		_, err := s.FindByNumber(ctx, number)
		if err == nil {
			return ErrAccountExists
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return s.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
