/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers. Money amounts travel as decimal strings, never JSON floats.
*/
package api

import (
	"time"

	"github.com/bancocpm/teller-engine/bank"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type LoginRequest struct {
	AccountNumber string `json:"account_number"`
	PIN           string `json:"pin"`
}

type AmountRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
}

type TransferRequest struct {
	SourceNumber string `json:"source_number"`
	DestNumber   string `json:"dest_number"`
	Amount       string `json:"amount"`
}

type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

type CreateClientRequest struct {
	Identity string `json:"identity"`
	FullName string `json:"full_name"`
	PIN      string `json:"pin"`
}

type CreateAccountRequest struct {
	OwnerIdentity  string `json:"owner_identity"`
	Number         string `json:"number"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance"`
}

type UnlockRequest struct {
	Identity string `json:"identity"`
	NewPIN   string `json:"new_pin"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type LoginResponse struct {
	Token   string     `json:"token"`
	Client  ClientDTO  `json:"client"`
	Account AccountDTO `json:"account"`
}

type ClientDTO struct {
	Identity string `json:"identity"`
	FullName string `json:"full_name"`
	Locked   bool   `json:"locked"`
}

type AccountDTO struct {
	Number  string `json:"number"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
	Owner   string `json:"owner"`
}

type MovementDTO struct {
	ID               string `json:"id"`
	AccountNumber    string `json:"account_number"`
	Kind             string `json:"kind"`
	Amount           string `json:"amount"`
	ResultingBalance string `json:"resulting_balance"`
	TransferID       string `json:"transfer_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type TransferDTO struct {
	TransferID string      `json:"transfer_id"`
	Out        MovementDTO `json:"out"`
	In         MovementDTO `json:"in"`
}

type HolderDTO struct {
	FullName string `json:"full_name"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toClientDTO(c *bank.Client) ClientDTO {
	return ClientDTO{Identity: c.Identity, FullName: c.FullName, Locked: c.Locked}
}

func toAccountDTO(a *bank.Account) AccountDTO {
	return AccountDTO{
		Number:  a.Number,
		Type:    string(a.Type),
		Balance: a.Balance.String(),
		Owner:   a.OwnerIdentity,
	}
}

func toMovementDTO(m bank.Movement) MovementDTO {
	return MovementDTO{
		ID:               string(m.ID),
		AccountNumber:    m.AccountNumber,
		Kind:             string(m.Kind),
		Amount:           m.Amount.String(),
		ResultingBalance: m.ResultingBalance.String(),
		TransferID:       string(m.TransferID),
		CreatedAt:        m.CreatedAt.Format(time.RFC3339),
	}
}
