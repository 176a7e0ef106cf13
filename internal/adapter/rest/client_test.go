package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/pkg/apperror"
)

func envelope(data any) map[string]any {
	return map[string]any{
		"data":       data,
		"request_id": "req-test",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "payer@trustpay.test", body["email"])

		writeJSON(t, w, http.StatusOK, envelope(LoginResult{
			AccessToken: "jwt-abc",
			TokenType:   "bearer",
			User:        domain.User{ID: "user-1", Email: "payer@trustpay.test"},
		}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	res, err := c.Login(context.Background(), "payer@trustpay.test", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", res.AccessToken)
	assert.Equal(t, "user-1", res.User.ID)
	assert.Equal(t, "jwt-abc", c.Token())
}

func TestClient_BearerTokenAttached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-abc", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, envelope(ports.ActionResult{Message: "ok"}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	c.SetToken("jwt-abc")
	_, err := c.Confirm(context.Background(), "esc-1")
	require.NoError(t, err)
}

func TestClient_Register(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/auth/register", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "payee@trustpay.test", body["email"])
		require.Equal(t, "payee@upi", body["vpa"])

		writeJSON(t, w, http.StatusCreated, envelope(domain.User{
			ID:    "user-2",
			Email: "payee@trustpay.test",
		}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	user, err := c.Register(context.Background(), "payee@trustpay.test", "hunter2", "Payee Person", "payee@upi")
	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)
}

func TestClient_GetEscrow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/escrows/esc-1", r.URL.Path)
		writeJSON(t, w, http.StatusOK, envelope(domain.Escrow{
			ID:     "esc-1",
			Status: domain.EscrowStatusHeld,
		}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	esc, err := c.GetEscrow(context.Background(), "esc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusHeld, esc.Status)
}

func TestClient_CreateEscrow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/escrows/create", r.URL.Path)

		var req ports.CreateEscrowRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(150000), req.Amount)

		writeJSON(t, w, http.StatusCreated, envelope(ports.CreateEscrowResult{
			Escrow: domain.Escrow{
				ID:         "esc-1",
				Status:     domain.EscrowStatusInitiated,
				EscrowCode: "7F2KQ1",
				Amount:     req.Amount,
			},
			PaymentOrder: ports.PaymentOrder{OrderID: "order_1", Amount: req.Amount, Currency: "INR"},
		}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	res, err := c.CreateEscrow(context.Background(), ports.CreateEscrowRequest{
		PayeeVPA: "payee@upi",
		Amount:   150000,
		Currency: "INR",
	})
	require.NoError(t, err)
	assert.Equal(t, "esc-1", res.Escrow.ID)
	assert.Equal(t, domain.EscrowStatusInitiated, res.Escrow.Status)
	assert.Equal(t, "order_1", res.PaymentOrder.OrderID)
}

func TestClient_CreateEscrowRejectsNonPositiveAmountLocally(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	_, err := c.CreateEscrow(context.Background(), ports.CreateEscrowRequest{Amount: 0})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ESC_001", appErr.Code)
	assert.Zero(t, hits, "invalid amount must not reach the network")
}

func TestClient_JoinByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/escrows/join", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "7F2KQ1", body["escrow_code"])

		writeJSON(t, w, http.StatusOK, envelope(domain.Escrow{
			ID:           "esc-1",
			PayeeID:      "user-2",
			Status:       domain.EscrowStatusInitiated,
			IsCodeActive: false,
		}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	esc, err := c.JoinByCode(context.Background(), "7F2KQ1")
	require.NoError(t, err)
	assert.Equal(t, "user-2", esc.PayeeID)
	assert.False(t, esc.IsCodeActive)
}

func TestClient_ErrorEnvelopeMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{
			"error_code": "MCH_002",
			"message":    "Invalid or inactive escrow code",
		})
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	_, err := c.JoinByCode(context.Background(), "ZZZZZZ")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "MCH_002", appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestClient_NonEnvelopeErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	_, err := c.GetPaymentStatus(context.Background(), "esc-1")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}

func TestClient_UnreachableCollaborator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(zerolog.Nop(), base, time.Second)
	_, err := c.Confirm(context.Background(), "esc-1")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TRN_001", appErr.Code)
}

func TestClient_DisputeSendsReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/escrows/esc-1/dispute", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "goods not delivered", body["reason"])

		writeJSON(t, w, http.StatusOK, envelope(ports.ActionResult{
			Message: "Dispute raised",
			Status:  domain.EscrowStatusDisputed,
		}))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), srv.URL, 0)
	res, err := c.RaiseDispute(context.Background(), "esc-1", "goods not delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusDisputed, res.Status)
}

func TestClient_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() { close(block); srv.Close() }()

	c := NewClient(zerolog.Nop(), srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetPaymentStatus(ctx, "esc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}
