package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/pkg/apperror"
)

const apiPrefix = "/api/v1"

// successEnvelope is the collaborator's standard success wrapper.
type successEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// errorEnvelope is the collaborator's standard error wrapper.
type errorEnvelope struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// LoginResult is the credential handed back by a successful login.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

// Client talks to the escrow collaborator's REST API. It implements
// ports.EscrowAPI and carries the bearer token across calls; SetToken and
// Token are safe for concurrent use so the websocket dialer can read the
// credential while a login refreshes it.
type Client struct {
	log  zerolog.Logger
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

var _ ports.EscrowAPI = (*Client)(nil)

// NewClient builds a Client for the collaborator at baseURL.
func NewClient(log zerolog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:  log,
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

// SetToken replaces the bearer credential used on subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer credential, or "" before login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account with the collaborator.
func (c *Client) Register(ctx context.Context, email, password, fullName, vpa string) (*domain.User, error) {
	body := map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
		"vpa":       vpa,
	}
	var out domain.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// CreateEscrow creates an escrow and returns it with its payment order.
func (c *Client) CreateEscrow(ctx context.Context, req ports.CreateEscrowRequest) (*ports.CreateEscrowResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	var out ports.CreateEscrowResult
	if err := c.do(ctx, http.MethodPost, "/escrows/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinByCode claims an escrow by its join code.
func (c *Client) JoinByCode(ctx context.Context, code string) (*domain.Escrow, error) {
	body := map[string]string{"escrow_code": code}
	var out domain.Escrow
	if err := c.do(ctx, http.MethodPost, "/escrows/join", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm records the caller's release confirmation on an escrow.
func (c *Client) Confirm(ctx context.Context, escrowID string) (*ports.ActionResult, error) {
	var out ports.ActionResult
	path := fmt.Sprintf("/escrows/%s/confirm", escrowID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RaiseDispute flags an escrow as disputed.
func (c *Client) RaiseDispute(ctx context.Context, escrowID, reason string) (*ports.ActionResult, error) {
	body := map[string]string{"reason": reason}
	var out ports.ActionResult
	path := fmt.Sprintf("/escrows/%s/dispute", escrowID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEscrow fetches the current escrow snapshot.
func (c *Client) GetEscrow(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	var out domain.Escrow
	if err := c.do(ctx, http.MethodGet, "/escrows/"+escrowID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPaymentStatus polls the payment view of an escrow.
func (c *Client) GetPaymentStatus(ctx context.Context, escrowID string) (*ports.PaymentStatusResult, error) {
	var out ports.PaymentStatusResult
	path := fmt.Sprintf("/escrows/%s/payment-status", escrowID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one API call: marshals body, attaches the bearer token,
// unwraps the success envelope into out, and maps error envelopes to
// *apperror.AppError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperror.InternalError(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+apiPrefix+path, reader)
	if err != nil {
		return apperror.InternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("api request failed")
		return apperror.ErrConnectFailed(err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusMultipleChoices {
		var e errorEnvelope
		if decodeErr := json.NewDecoder(res.Body).Decode(&e); decodeErr == nil && e.ErrorCode != "" {
			c.log.Debug().
				Str("path", path).
				Str("error_code", e.ErrorCode).
				Int("status", res.StatusCode).
				Msg("api error response")
			return apperror.New(e.ErrorCode, e.Message, res.StatusCode)
		}
		return apperror.FromStatus(res.StatusCode, fmt.Sprintf("%s %s failed", method, path))
	}

	if out == nil {
		return nil
	}
	var env successEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return apperror.InternalError(err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.InternalError(err)
	}
	return nil
}
