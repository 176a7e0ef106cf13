package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/internal/service"
)

// capturePublisher records published envelopes instead of hitting Redis.
type capturePublisher struct {
	mu   sync.Mutex
	envs []domain.EventEnvelope
}

func (p *capturePublisher) PublishEscrowEvent(_ context.Context, env domain.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *capturePublisher) published() []domain.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventEnvelope, len(p.envs))
	copy(out, p.envs)
	return out
}

type apiFixture struct {
	t         *testing.T
	srv       *httptest.Server
	publisher *capturePublisher
	store     *Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := zerolog.Nop()
	tokenSvc := service.NewJWTTokenService("handlers-test-secret", time.Hour, "trustpay-sync")
	store := NewStore(log, service.NewArgon2HashService())
	publisher := &capturePublisher{}

	router := SetupRouter(RouterDeps{
		Store:     store,
		Hub:       NewHub(log, tokenSvc),
		TokenSvc:  tokenSvc,
		Publisher: publisher,
		Logger:    log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiFixture{t: t, srv: srv, publisher: publisher, store: store}
}

func (f *apiFixture) do(method, path, token string, body any) (*http.Response, json.RawMessage) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope.Data
}

// signup registers a user and returns their id and a bearer token.
func (f *apiFixture) signup(email string) (userID, token string) {
	f.t.Helper()
	resp, data := f.do(http.MethodPost, "/api/v1/auth/register", "", payload{
		"email": email, "password": "test-password", "full_name": "Test User",
	})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	var u domain.User
	require.NoError(f.t, json.Unmarshal(data, &u))

	resp, data = f.do(http.MethodPost, "/api/v1/auth/login", "", payload{
		"email": email, "password": "test-password",
	})
	require.Equal(f.t, http.StatusOK, resp.StatusCode)
	var login loginResponse
	require.NoError(f.t, json.Unmarshal(data, &login))
	return u.ID, login.AccessToken
}

func (f *apiFixture) createEscrow(token string) ports.CreateEscrowResult {
	f.t.Helper()
	resp, data := f.do(http.MethodPost, "/api/v1/escrows/create", token, payload{
		"payee_vpa": "payee@upi", "amount": 150000, "currency": "INR",
	})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	var result ports.CreateEscrowResult
	require.NoError(f.t, json.Unmarshal(data, &result))
	return result
}

type payload = map[string]any

func TestAPI_RegisterValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.do(http.MethodPost, "/api/v1/auth/register", "", payload{
		"email": "not-an-email", "password": "test-password",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(http.MethodPost, "/api/v1/auth/register", "", payload{
		"email": "short@trustpay.test", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_LoginRejectsBadPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.signup("payer@trustpay.test")

	resp, _ := f.do(http.MethodPost, "/api/v1/auth/login", "", payload{
		"email": "payer@trustpay.test", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_EscrowRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.do(http.MethodPost, "/api/v1/escrows/create", "", payload{"amount": 1000})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(http.MethodGet, "/api/v1/escrows/some-id", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CreateEscrow(t *testing.T) {
	f := newAPIFixture(t)
	payerID, token := f.signup("payer@trustpay.test")

	result := f.createEscrow(token)
	assert.Equal(t, payerID, result.Escrow.PayerID)
	assert.True(t, domain.ValidEscrowCode(result.Escrow.EscrowCode))
	assert.Equal(t, result.Escrow.OrderID, result.PaymentOrder.OrderID)
	assert.Empty(t, f.publisher.published(), "creation itself broadcasts nothing")
}

func TestAPI_JoinPublishesParticipantJoined(t *testing.T) {
	f := newAPIFixture(t)
	payerID, payerToken := f.signup("payer@trustpay.test")
	payeeID, payeeToken := f.signup("payee@trustpay.test")
	created := f.createEscrow(payerToken)

	resp, data := f.do(http.MethodPost, "/api/v1/escrows/join", payeeToken, payload{
		"escrow_code": created.Escrow.EscrowCode,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var esc domain.Escrow
	require.NoError(t, json.Unmarshal(data, &esc))
	assert.Equal(t, payeeID, esc.PayeeID)
	assert.False(t, esc.IsCodeActive)

	envs := f.publisher.published()
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventEscrowUpdate, envs[0].Type)
	assert.Equal(t, created.Escrow.ID, envs[0].EscrowID)

	evt, err := envs[0].DecodeData()
	require.NoError(t, err)
	assert.Equal(t, domain.EventParticipantJoined, evt.EventType)
	assert.Equal(t, payerID, evt.PayerID)
	assert.Equal(t, payeeID, evt.PayeeID)
}

func TestAPI_WebhookCapturedMovesEscrowToHeld(t *testing.T) {
	f := newAPIFixture(t)
	_, payerToken := f.signup("payer@trustpay.test")
	created := f.createEscrow(payerToken)

	resp, _ := f.do(http.MethodPost, "/api/v1/webhooks/payment", "", payload{
		"order_id": created.PaymentOrder.OrderID, "event": "payment.captured",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := f.do(http.MethodGet, "/api/v1/escrows/"+created.Escrow.ID, payerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var esc domain.Escrow
	require.NoError(t, json.Unmarshal(data, &esc))
	assert.Equal(t, domain.EscrowStatusHeld, esc.Status)

	envs := f.publisher.published()
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventPaymentStatus, envs[0].Type)
	assert.Equal(t, domain.EscrowStatusHeld, envs[0].Status)
}

func TestAPI_WebhookIgnoresOtherEvents(t *testing.T) {
	f := newAPIFixture(t)
	_, payerToken := f.signup("payer@trustpay.test")
	created := f.createEscrow(payerToken)

	resp, _ := f.do(http.MethodPost, "/api/v1/webhooks/payment", "", payload{
		"order_id": created.PaymentOrder.OrderID, "event": "payment.failed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, f.publisher.published())
}

func TestAPI_FullReleaseFlow(t *testing.T) {
	f := newAPIFixture(t)
	_, payerToken := f.signup("payer@trustpay.test")
	_, payeeToken := f.signup("payee@trustpay.test")
	created := f.createEscrow(payerToken)

	_, _ = f.do(http.MethodPost, "/api/v1/escrows/join", payeeToken, payload{
		"escrow_code": created.Escrow.EscrowCode,
	})
	_, _ = f.do(http.MethodPost, "/api/v1/webhooks/payment", "", payload{
		"order_id": created.PaymentOrder.OrderID, "event": "payment.captured",
	})

	confirmPath := fmt.Sprintf("/api/v1/escrows/%s/confirm", created.Escrow.ID)
	resp, data := f.do(http.MethodPost, confirmPath, payerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first ports.ActionResult
	require.NoError(t, json.Unmarshal(data, &first))
	assert.Empty(t, first.Status)

	resp, data = f.do(http.MethodPost, confirmPath, payeeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second ports.ActionResult
	require.NoError(t, json.Unmarshal(data, &second))
	assert.Equal(t, domain.EscrowStatusReleased, second.Status)

	// join broadcast + payment_status broadcast + release broadcast
	envs := f.publisher.published()
	require.Len(t, envs, 3)
	last := envs[2]
	assert.Equal(t, domain.EventStatusChange, last.Type)
	assert.Equal(t, domain.EscrowStatusReleased, last.Status)

	resp, data = f.do(http.MethodGet, "/api/v1/escrows/"+created.Escrow.ID+"/payment-status", payerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ps ports.PaymentStatusResult
	require.NoError(t, json.Unmarshal(data, &ps))
	assert.Equal(t, domain.EscrowStatusReleased, ps.Status)
	require.NotNil(t, ps.Payout)
	assert.Equal(t, "completed", ps.Payout.State)
}

func TestAPI_DisputeBroadcastsStatusChange(t *testing.T) {
	f := newAPIFixture(t)
	_, payerToken := f.signup("payer@trustpay.test")
	_, payeeToken := f.signup("payee@trustpay.test")
	created := f.createEscrow(payerToken)

	_, _ = f.do(http.MethodPost, "/api/v1/escrows/join", payeeToken, payload{
		"escrow_code": created.Escrow.EscrowCode,
	})

	resp, _ := f.do(http.MethodPost, "/api/v1/escrows/"+created.Escrow.ID+"/dispute", payeeToken, payload{
		"reason": "goods not delivered",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envs := f.publisher.published()
	require.Len(t, envs, 2)
	assert.Equal(t, domain.EventStatusChange, envs[1].Type)
	assert.Equal(t, domain.EscrowStatusDisputed, envs[1].Status)
}

func TestAPI_JoinWithConsumedCode(t *testing.T) {
	f := newAPIFixture(t)
	_, payerToken := f.signup("payer@trustpay.test")
	_, payeeToken := f.signup("payee@trustpay.test")
	_, thirdToken := f.signup("third@trustpay.test")
	created := f.createEscrow(payerToken)

	resp, _ := f.do(http.MethodPost, "/api/v1/escrows/join", payeeToken, payload{
		"escrow_code": created.Escrow.EscrowCode,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(http.MethodPost, "/api/v1/escrows/join", thirdToken, payload{
		"escrow_code": created.Escrow.EscrowCode,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_HealthWithoutRedis(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := f.srv.Client().Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
