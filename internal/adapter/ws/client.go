package ws

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/pkg/apperror"
)

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = 3 * time.Second
	socketPath         = "/api/v1/ws"
	closeGrace         = time.Second
)

// ClientOptions configures a transport Client.
type ClientOptions struct {
	// BaseURL is the collaborator's HTTP base; the socket URL is derived
	// from it by swapping the scheme and appending the socket path.
	BaseURL string
	// Token supplies the bearer credential at dial time, so a client built
	// before login still picks up the credential on connect.
	Token func() string
	// MaxAttempts bounds automatic reconnects per outage. Zero means the
	// default of 5.
	MaxAttempts int
	// Delay is the fixed wait between reconnect attempts. Zero means the
	// default of 3s.
	Delay time.Duration
	// PingInterval spaces keepalive ping frames. Zero disables them.
	PingInterval time.Duration
	// OnConnect runs after each successful (re)connect, before the
	// connected event is emitted. Subscription replay hangs off this hook.
	OnConnect func()
	// OnDrop runs when an established connection is lost, before the
	// disconnected event is emitted.
	OnDrop func()
}

// Client maintains a websocket connection to the escrow collaborator and
// feeds inbound envelopes to the dispatcher. Lost connections reconnect
// automatically with a fixed delay until the attempt budget is spent;
// Disconnect stops the cycle for good until the next explicit Connect.
type Client struct {
	log  zerolog.Logger
	bus  *Dispatcher
	opts ClientOptions

	dialer *websocket.Dialer

	mu        sync.Mutex
	wmu       sync.Mutex
	conn      *websocket.Conn
	state     domain.ConnectionState
	attempts  int
	gen       uint64
	permanent bool
	retry     *time.Timer
}

// NewClient builds a Client routing inbound envelopes through bus. The
// base URL is validated up front; dialing happens on Connect.
func NewClient(log zerolog.Logger, bus *Dispatcher, opts ClientOptions) (*Client, error) {
	if _, err := socketURL(opts.BaseURL, ""); err != nil {
		return nil, err
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultRetryDelay
	}
	if opts.Token == nil {
		opts.Token = func() string { return "" }
	}
	return &Client{
		log:    log,
		bus:    bus,
		opts:   opts,
		dialer: websocket.DefaultDialer,
		state:  domain.ConnDisconnected,
	}, nil
}

// socketURL derives the websocket endpoint from an HTTP base URL.
func socketURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", apperror.ErrConnectFailed(err)
	}
	if u.Scheme == "https" || u.Scheme == "wss" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + socketPath
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Connect dials the collaborator. An explicit call resets the reconnect
// budget and clears any previous Disconnect. Calling while a connection is
// live or in progress is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.ConnDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.permanent = false
	c.attempts = 0
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.mu.Unlock()
	return c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.permanent || c.state != domain.ConnDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = domain.ConnConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	endpoint, err := socketURL(c.opts.BaseURL, c.opts.Token())
	if err != nil {
		c.mu.Lock()
		c.state = domain.ConnDisconnected
		c.mu.Unlock()
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("websocket dial failed")
		c.mu.Lock()
		stale := gen != c.gen
		c.state = domain.ConnDisconnected
		c.mu.Unlock()
		if !stale {
			c.scheduleRetry()
		}
		return apperror.ErrConnectFailed(err)
	}

	c.mu.Lock()
	if gen != c.gen || c.permanent {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.state = domain.ConnConnected
	c.attempts = 0
	c.mu.Unlock()

	c.log.Info().Msg("websocket connected")
	if c.opts.OnConnect != nil {
		c.opts.OnConnect()
	}
	c.bus.Route(domain.EventEnvelope{Type: domain.EventConnected})

	go c.readLoop(conn, gen)
	if c.opts.PingInterval > 0 {
		go c.pingLoop(conn, gen)
	}
	return nil
}

// Disconnect tears the connection down and suppresses reconnects until the
// next explicit Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.permanent = true
	c.gen++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	conn := c.conn
	c.conn = nil
	wasLive := c.state == domain.ConnConnected
	c.state = domain.ConnDisconnected
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(closeGrace)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
	}
	if wasLive {
		c.log.Info().Msg("websocket disconnected")
		if c.opts.OnDrop != nil {
			c.opts.OnDrop()
		}
		c.bus.Route(domain.EventEnvelope{Type: domain.EventDisconnected})
	}
}

// Send writes a frame to the live connection. Returns false when no
// connection is up or the write fails; the frame is dropped, not queued.
func (c *Client) Send(frame domain.Frame) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Debug().Str("type", frame.Type).Msg("frame dropped, not connected")
		return false
	}
	c.wmu.Lock()
	err := conn.WriteJSON(frame)
	c.wmu.Unlock()
	if err != nil {
		c.log.Warn().Err(err).Str("type", frame.Type).Msg("frame write failed")
		return false
	}
	return true
}

// State reports the current connection state.
func (c *Client) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts reports the reconnect attempts consumed in the current outage.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(conn, gen, err)
			return
		}
		var env domain.EventEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		c.bus.Route(env)
	}
}

func (c *Client) handleDrop(conn *websocket.Conn, gen uint64, err error) {
	conn.Close()

	c.mu.Lock()
	if gen != c.gen || c.permanent {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = domain.ConnDisconnected
	c.mu.Unlock()

	c.log.Warn().Err(err).Msg("websocket connection lost")
	if c.opts.OnDrop != nil {
		c.opts.OnDrop()
	}
	c.bus.Route(domain.EventEnvelope{Type: domain.EventDisconnected})
	c.scheduleRetry()
}

func (c *Client) scheduleRetry() {
	c.mu.Lock()
	if c.permanent || c.state != domain.ConnDisconnected {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.opts.MaxAttempts {
		c.mu.Unlock()
		c.log.Error().Int("attempts", c.opts.MaxAttempts).Msg("reconnect attempts exhausted")
		c.bus.Route(domain.EventEnvelope{
			Type:    domain.EventError,
			Message: apperror.ErrReconnectExhausted().Message,
		})
		return
	}
	c.attempts++
	attempt := c.attempts
	c.retry = time.AfterFunc(c.opts.Delay, func() {
		_ = c.dial(context.Background())
	})
	c.mu.Unlock()

	c.log.Info().
		Int("attempt", attempt).
		Int("max", c.opts.MaxAttempts).
		Dur("delay", c.opts.Delay).
		Msg("reconnect scheduled")
}

func (c *Client) pingLoop(conn *websocket.Conn, gen uint64) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		live := gen == c.gen && c.conn == conn
		c.mu.Unlock()
		if !live {
			return
		}
		c.Send(domain.Frame{Type: domain.FramePing})
	}
}
