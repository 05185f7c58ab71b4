/*
handlers_test.go - Tests for the teller/admin API surface

Tests for:
- Login, lockout and unlock over HTTP
- Session enforcement and account ownership checks
- Withdraw, deposit, transfer and history endpoints
- Admin provisioning
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bancocpm/teller-engine/bank/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	h := NewHandler(store.NewMemory(), zap.NewNop())
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, h
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// provision creates a client and account through the admin API.
func provision(t *testing.T, srv *httptest.Server, identity, number, pin string, balance string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/clients", "", CreateClientRequest{
		Identity: identity, FullName: "Holder " + identity, PIN: pin,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/accounts", "", CreateAccountRequest{
		OwnerIdentity: identity, Number: number, Type: "savings", InitialBalance: balance,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func login(t *testing.T, srv *httptest.Server, number, pin string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/login", "", LoginRequest{
		AccountNumber: number, PIN: pin,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[LoginResponse](t, resp).Token
}

// =============================================================================
// LOGIN / LOCKOUT
// =============================================================================

func TestLogin_Success(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/login", "", LoginRequest{
		AccountNumber: "001", PIN: "1234",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[LoginResponse](t, resp)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "cc-1", body.Client.Identity)
	assert.Equal(t, "100", body.Account.Balance)
}

func TestLogin_WrongPINThenLockout(t *testing.T) {
	// Three wrong PINs lock the client (423); the admin unlock with a
	// new PIN restores access.

	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/login", "", LoginRequest{
			AccountNumber: "001", PIN: "0000",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/login", "", LoginRequest{
		AccountNumber: "001", PIN: "0000",
	})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	// Correct PIN is still refused while locked.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/teller/login", "", LoginRequest{
		AccountNumber: "001", PIN: "1234",
	})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/unlock", "", UnlockRequest{
		Identity: "cc-1", NewPIN: "9999",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	login(t, srv, "001", "9999")
}

func TestLogin_UnknownAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/login", "", LoginRequest{
		AccountNumber: "missing", PIN: "1234",
	})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SESSION ENFORCEMENT
// =============================================================================

func TestTellerRoutes_RequireSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/withdraw", "", AmountRequest{
		AccountNumber: "001", Amount: "10",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_RevokesSession(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/teller/accounts", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWithdraw_ForeignAccountForbidden(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	provision(t, srv, "cc-2", "002", "5678", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/withdraw", token, AmountRequest{
		AccountNumber: "002", Amount: "10",
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestWithdrawDepositHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/withdraw", token, AmountRequest{
		AccountNumber: "001", Amount: "40",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	movement := decode[MovementDTO](t, resp)
	assert.Equal(t, "withdrawal", movement.Kind)
	assert.Equal(t, "60", movement.ResultingBalance)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/teller/deposit", token, AmountRequest{
		AccountNumber: "001", Amount: "15",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	movement = decode[MovementDTO](t, resp)
	assert.Equal(t, "75", movement.ResultingBalance)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/teller/accounts/001/movements", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]MovementDTO](t, resp)
	require.Len(t, history, 2)
	assert.Equal(t, "withdrawal", history[0].Kind)
	assert.Equal(t, "deposit", history[1].Kind)
}

func TestWithdraw_InsufficientFundsConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/withdraw", token, AmountRequest{
		AccountNumber: "001", Amount: "150",
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTransfer_EndToEnd(t *testing.T) {
	srv, h := newTestServer(t)
	provision(t, srv, "cc-1", "A", "1234", "50")
	provision(t, srv, "cc-2", "B", "5678", "20")
	token := login(t, srv, "A", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/transfer", token, TransferRequest{
		SourceNumber: "A", DestNumber: "B", Amount: "30",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[TransferDTO](t, resp)
	assert.NotEmpty(t, body.TransferID)
	assert.Equal(t, body.TransferID, body.Out.TransferID)
	assert.Equal(t, body.TransferID, body.In.TransferID)
	assert.Equal(t, "20", body.Out.ResultingBalance)
	assert.Equal(t, "50", body.In.ResultingBalance)

	// Balances visible through the store.
	acct, err := h.Store.FindByNumber(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "20", acct.Balance.String())
}

func TestTransfer_SourceMustBeOwn(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "A", "1234", "50")
	provision(t, srv, "cc-2", "B", "5678", "20")
	token := login(t, srv, "A", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/transfer", token, TransferRequest{
		SourceNumber: "B", DestNumber: "A", Amount: "10",
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChangePIN_ConfirmationMismatch(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/change-pin", token, ChangePINRequest{
		CurrentPIN: "1234", NewPIN: "1111", ConfirmPIN: "2222",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangePIN_Success(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/teller/change-pin", token, ChangePINRequest{
		CurrentPIN: "1234", NewPIN: "1111", ConfirmPIN: "1111",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	login(t, srv, "001", "1111")
}

func TestGetHolder(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")
	provision(t, srv, "cc-2", "002", "5678", "100")
	token := login(t, srv, "001", "1234")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/teller/holder?number=002", token, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Holder cc-2", decode[HolderDTO](t, resp).FullName)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAdmin_TokenEnforcedWhenConfigured(t *testing.T) {
	h := NewHandler(store.NewMemory(), zap.NewNop())
	h.AdminToken = "secret"
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/clients", "", CreateClientRequest{
		Identity: "cc-1", FullName: "Maria", PIN: "1234",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/clients",
		bytes.NewBufferString(`{"identity":"cc-1","full_name":"Maria","pin":"1234"}`))
	require.NoError(t, err)
	req.Header.Set("X-Admin-Token", "secret")
	ok, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer ok.Body.Close()
	assert.Equal(t, http.StatusCreated, ok.StatusCode)
}

func TestAdmin_DuplicateProvisioningConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	provision(t, srv, "cc-1", "001", "1234", "100")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/clients", "", CreateClientRequest{
		Identity: "cc-1", FullName: "Again", PIN: "0000",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/accounts", "", CreateAccountRequest{
		OwnerIdentity: "cc-1", Number: "001", Type: "savings", InitialBalance: "0",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
