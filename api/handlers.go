/*
handlers.go - HTTP API handlers for the teller/ATM engine

PURPOSE:
  Exposes the account engine via a JSON API. Handles HTTP
  request/response, JSON serialization, session resolution, and
  delegates to the engine.

ENDPOINTS:
  Teller:
    POST /api/teller/login                       Authenticate, open session
    POST /api/teller/logout                      End session
    GET  /api/teller/accounts                    Accounts of the session client
    GET  /api/teller/accounts/{number}/movements Movement history
    POST /api/teller/withdraw                    Withdraw from own account
    POST /api/teller/deposit                     Deposit into any account
    POST /api/teller/transfer                    Transfer between accounts
    POST /api/teller/change-pin                  Change own PIN
    GET  /api/teller/holder?number=              Owner name of an account

  Admin:
    POST /api/admin/clients                      Provision a client
    POST /api/admin/accounts                     Provision an account
    POST /api/admin/unlock                       Unlock a client, reset PIN

ERROR HANDLING:
  Engine error kinds map to HTTP status codes:
  - 400: invalid amount / same account / malformed input
  - 401: invalid PIN or missing session
  - 404: account or client not found
  - 409: insufficient funds, duplicate identity/number
  - 423: client locked
  - 503: busy or storage unavailable (retryable)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - session.go: Token store
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bancocpm/teller-engine/bank"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       bank.TxStore
	Auth        *bank.Authenticator
	Ledger      *bank.Ledger
	Transfers   *bank.TransferEngine
	Recorder    *bank.Recorder
	Provisioner *bank.Provisioner
	Sessions    *SessionStore
	Log         *zap.Logger

	// AdminToken guards /api/admin when non-empty. Empty disables the
	// check for local development.
	AdminToken string
}

// NewHandler wires the engine components over one store.
func NewHandler(store bank.TxStore, log *zap.Logger) *Handler {
	locks := bank.NewLockTable(bank.DefaultLockWait)
	recorder := bank.NewRecorder(store)
	return &Handler{
		Store:       store,
		Auth:        bank.NewAuthenticator(store, locks),
		Ledger:      bank.NewLedger(store, locks, recorder),
		Transfers:   bank.NewTransferEngine(store, locks, recorder),
		Recorder:    recorder,
		Provisioner: bank.NewProvisioner(store),
		Sessions:    NewSessionStore(DefaultSessionTTL),
		Log:         log,
	}
}

// =============================================================================
// TELLER HANDLERS
// =============================================================================

// Login authenticates by account number and PIN and opens a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	client, acct, err := h.Auth.Authenticate(r.Context(), req.AccountNumber, req.PIN)
	LoginsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		h.Log.Info("login refused",
			zap.String("account", req.AccountNumber),
			zap.String("reason", outcomeLabel(err)))
		h.writeEngineError(w, err)
		return
	}

	token := h.Sessions.Create(client.Identity, acct.Number)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:   token,
		Client:  toClientDTO(client),
		Account: toAccountDTO(acct),
	})
}

// Logout revokes the session token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Revoke(sessionToken(r))
	w.WriteHeader(http.StatusNoContent)
}

// ListAccounts returns the accounts of the session client.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	identity := clientIdentity(r)

	accounts, err := h.Store.FindAccountsByClient(r.Context(), identity)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMovements returns the movement history of one of the session
// client's accounts.
func (h *Handler) GetMovements(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	acct, err := h.Store.FindByNumber(r.Context(), number)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if acct.OwnerIdentity != clientIdentity(r) {
		writeError(w, http.StatusForbidden, "account belongs to another client", nil)
		return
	}

	movements, err := h.Recorder.History(r.Context(), number)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = toMovementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Withdraw debits one of the session client's accounts.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	acct, err := h.Store.FindByNumber(r.Context(), req.AccountNumber)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if acct.OwnerIdentity != clientIdentity(r) {
		writeError(w, http.StatusForbidden, "account belongs to another client", nil)
		return
	}

	movement, err := h.Ledger.Withdraw(r.Context(), req.AccountNumber, amount)
	observeOp("withdraw", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(movement))
}

// Deposit credits an account. Any client may deposit into any account,
// as at a physical teller.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	movement, err := h.Ledger.Deposit(r.Context(), req.AccountNumber, amount)
	observeOp("deposit", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(movement))
}

// Transfer moves money from one of the session client's accounts to any
// destination account.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	source, err := h.Store.FindByNumber(r.Context(), req.SourceNumber)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if source.OwnerIdentity != clientIdentity(r) {
		writeError(w, http.StatusForbidden, "source account belongs to another client", nil)
		return
	}

	result, err := h.Transfers.Transfer(r.Context(), req.SourceNumber, req.DestNumber, amount)
	observeOp("transfer", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferDTO{
		TransferID: string(result.TransferID),
		Out:        toMovementDTO(result.Out),
		In:         toMovementDTO(result.In),
	})
}

// ChangePIN replaces the session client's PIN after verifying the
// current one and the confirmation.
func (h *Handler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req ChangePINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.NewPIN == "" || req.NewPIN != req.ConfirmPIN {
		writeError(w, http.StatusBadRequest, "new PINs do not match", nil)
		return
	}

	err := h.Auth.ChangePIN(r.Context(), clientIdentity(r), req.CurrentPIN, req.NewPIN)
	observeOp("change_pin", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHolder returns the display name of an account's owner, for
// confirming a transfer destination before sending.
func (h *Handler) GetHolder(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")

	acct, err := h.Store.FindByNumber(r.Context(), number)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	client, err := h.Store.FindClientByIdentity(r.Context(), acct.OwnerIdentity)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HolderDTO{FullName: client.FullName})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateClient provisions a client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	client, err := h.Provisioner.CreateClient(r.Context(), req.Identity, req.FullName, req.PIN)
	observeOp("create_client", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(client))
}

// CreateAccount provisions an account with an initial balance.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	typ := bank.AccountType(strings.ToLower(req.Type))
	if typ != bank.AccountSavings && typ != bank.AccountChecking {
		writeError(w, http.StatusBadRequest, "unknown account type", nil)
		return
	}

	initial := bank.Money{}
	if req.InitialBalance != "" {
		d, err := decimal.NewFromString(req.InitialBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed initial balance", err)
			return
		}
		initial = bank.Money{Value: d}
	}

	acct, err := h.Provisioner.CreateAccount(r.Context(), req.OwnerIdentity, req.Number, typ, initial)
	observeOp("create_account", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(acct))
}

// Unlock clears a client's lockout and sets a new PIN.
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	client, err := h.Auth.Unlock(r.Context(), req.Identity, req.NewPIN)
	observeOp("unlock", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.Log.Info("client unlocked", zap.String("identity", client.Identity))
	writeJSON(w, http.StatusOK, toClientDTO(client))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func parseAmount(w http.ResponseWriter, raw string) (bank.Money, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed amount", err)
		return bank.Money{}, false
	}
	return bank.Money{Value: d}, true
}

// writeEngineError maps engine error kinds to HTTP responses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case bank.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, bank.ErrClientLocked):
		status = http.StatusLocked
	case errors.Is(err, bank.ErrInvalidPIN):
		status = http.StatusUnauthorized
	case errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrClientExists),
		errors.Is(err, bank.ErrAccountExists):
		status = http.StatusConflict
	case errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrInvalidInput),
		errors.Is(err, bank.ErrSameAccount):
		status = http.StatusBadRequest
	case bank.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.Log.Error("unhandled engine error", zap.Error(err))
	}
	writeError(w, status, outcomeLabel(err), err)
}

// outcomeLabel names an error kind for metrics and messages.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, bank.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, bank.ErrClientNotFound):
		return "client_not_found"
	case errors.Is(err, bank.ErrClientLocked):
		return "client_locked"
	case errors.Is(err, bank.ErrInvalidPIN):
		return "invalid_pin"
	case errors.Is(err, bank.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, bank.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, bank.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, bank.ErrSameAccount):
		return "same_account"
	case errors.Is(err, bank.ErrClientExists):
		return "client_exists"
	case errors.Is(err, bank.ErrAccountExists):
		return "account_exists"
	case errors.Is(err, bank.ErrBusy):
		return "busy"
	case errors.Is(err, bank.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "internal_error"
	}
}
