package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustpay-sync/internal/core/domain"
)

type stubServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	tokens chan string
	frames chan domain.Frame
}

func newStubServer(t *testing.T) *stubServer {
	t.Helper()
	s := &stubServer{
		t:      t,
		tokens: make(chan string, 8),
		frames: make(chan domain.Frame, 32),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ws" {
			http.NotFound(w, r)
			return
		}
		s.tokens <- r.URL.Query().Get("token")
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		for {
			var f domain.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			s.frames <- f
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// push writes a raw text message over the most recent connection.
func (s *stubServer) push(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.conns, "no live connection to push on")
	conn := s.conns[len(s.conns)-1]
	require.NoError(s.t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (s *stubServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *stubServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func waitEnv(t *testing.T, ch <-chan domain.EventEnvelope) domain.EventEnvelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.EventEnvelope{}
	}
}

func newTestClient(t *testing.T, baseURL string, opts ClientOptions) (*Client, *Dispatcher) {
	t.Helper()
	opts.BaseURL = baseURL
	if opts.Delay == 0 {
		opts.Delay = 20 * time.Millisecond
	}
	bus := NewDispatcher(zerolog.Nop())
	c, err := NewClient(zerolog.Nop(), bus, opts)
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c, bus
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		token string
		want  string
	}{
		{"http to ws", "http://localhost:8000", "tok", "ws://localhost:8000/api/v1/ws?token=tok"},
		{"https to wss", "https://api.trustpay.example", "tok", "wss://api.trustpay.example/api/v1/ws?token=tok"},
		{"trailing slash trimmed", "http://localhost:8000/", "", "ws://localhost:8000/api/v1/ws"},
		{"base path kept", "http://localhost:8000/v2", "", "ws://localhost:8000/v2/api/v1/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := socketURL(tt.base, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("hostless base rejected", func(t *testing.T) {
		_, err := socketURL("not a url", "")
		require.Error(t, err)
	})
}

func TestClient_ConnectEmitsConnectedAndPassesToken(t *testing.T) {
	srv := newStubServer(t)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{
		Token: func() string { return "tok-1" },
	})

	connected := make(chan domain.EventEnvelope, 1)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })

	require.NoError(t, c.Connect(context.Background()))

	waitEnv(t, connected)
	assert.Equal(t, domain.ConnConnected, c.State())
	assert.Equal(t, "tok-1", <-srv.tokens)
}

func TestClient_OnConnectRunsBeforeConnectedEvent(t *testing.T) {
	srv := newStubServer(t)

	var mu sync.Mutex
	var order []string
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{
		OnConnect: func() {
			mu.Lock()
			order = append(order, "replay")
			mu.Unlock()
		},
	})
	done := make(chan struct{}, 1)
	bus.On(domain.EventConnected, func(domain.EventEnvelope) {
		mu.Lock()
		order = append(order, "connected")
		mu.Unlock()
		done <- struct{}{}
	})

	require.NoError(t, c.Connect(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connected event never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"replay", "connected"}, order)
}

func TestClient_RoutesInboundToTypeAndEscrowTopics(t *testing.T) {
	srv := newStubServer(t)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{})

	connected := make(chan domain.EventEnvelope, 1)
	byType := make(chan domain.EventEnvelope, 1)
	byEscrow := make(chan domain.EventEnvelope, 1)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })
	bus.On(domain.EventStatusChange, func(e domain.EventEnvelope) { byType <- e })
	bus.On(domain.EscrowTopic("esc-42"), func(e domain.EventEnvelope) { byEscrow <- e })

	require.NoError(t, c.Connect(context.Background()))
	waitEnv(t, connected)

	srv.push(`{"type":"status_change","escrow_id":"esc-42","status":"HELD"}`)

	env := waitEnv(t, byType)
	assert.Equal(t, domain.EscrowStatusHeld, env.Status)
	env = waitEnv(t, byEscrow)
	assert.Equal(t, "esc-42", env.EscrowID)
}

func TestClient_MalformedInboundDropped(t *testing.T) {
	srv := newStubServer(t)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{})

	connected := make(chan domain.EventEnvelope, 1)
	got := make(chan domain.EventEnvelope, 4)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })
	bus.On(domain.EventPong, func(e domain.EventEnvelope) { got <- e })

	require.NoError(t, c.Connect(context.Background()))
	waitEnv(t, connected)

	srv.push(`{not json`)
	srv.push(`{"escrow_id":"missing-type"}`)
	srv.push(`{"type":"pong"}`)

	env := waitEnv(t, got)
	assert.Equal(t, domain.EventPong, env.Type)
	assert.Equal(t, domain.ConnConnected, c.State())
}

func TestClient_SendDropsWhenDisconnected(t *testing.T) {
	srv := newStubServer(t)
	c, _ := newTestClient(t, srv.srv.URL, ClientOptions{})

	assert.False(t, c.Send(domain.Frame{Type: domain.FramePing}))
}

func TestClient_SendWritesFrame(t *testing.T) {
	srv := newStubServer(t)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{})

	connected := make(chan domain.EventEnvelope, 1)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })
	require.NoError(t, c.Connect(context.Background()))
	waitEnv(t, connected)

	assert.True(t, c.Send(domain.Frame{Type: domain.FrameSubscribe, EscrowID: "esc-9"}))

	select {
	case f := <-srv.frames:
		assert.Equal(t, domain.FrameSubscribe, f.Type)
		assert.Equal(t, "esc-9", f.EscrowID)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	srv := newStubServer(t)

	// Buffered wide enough for the teardown drop too: Disconnect fires
	// OnDrop again when the test cleanup tears down the live session.
	dropped := make(chan struct{}, 2)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{
		OnDrop: func() { dropped <- struct{}{} },
	})

	connected := make(chan domain.EventEnvelope, 2)
	disconnected := make(chan domain.EventEnvelope, 1)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })
	bus.On(domain.EventDisconnected, func(e domain.EventEnvelope) { disconnected <- e })

	require.NoError(t, c.Connect(context.Background()))
	waitEnv(t, connected)

	srv.closeAll()
	waitEnv(t, disconnected)
	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("drop hook never fired")
	}

	// Second connected event comes from the automatic reconnect.
	waitEnv(t, connected)
	assert.Equal(t, domain.ConnConnected, c.State())
	assert.Zero(t, c.Attempts(), "attempt budget resets on success")
}

func TestClient_DisconnectSuppressesReconnect(t *testing.T) {
	srv := newStubServer(t)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{})

	connected := make(chan domain.EventEnvelope, 1)
	disconnected := make(chan domain.EventEnvelope, 1)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })
	bus.On(domain.EventDisconnected, func(e domain.EventEnvelope) { disconnected <- e })

	require.NoError(t, c.Connect(context.Background()))
	waitEnv(t, connected)

	c.Disconnect()
	waitEnv(t, disconnected)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, domain.ConnDisconnected, c.State())
	assert.Equal(t, 1, srv.connCount(), "no new connection after explicit disconnect")
	assert.Len(t, connected, 0)
}

func TestClient_ReconnectBudgetExhausted(t *testing.T) {
	srv := newStubServer(t)
	base := srv.srv.URL
	srv.srv.Close() // nobody listening

	c, bus := newTestClient(t, base, ClientOptions{
		MaxAttempts: 2,
		Delay:       10 * time.Millisecond,
	})

	failed := make(chan domain.EventEnvelope, 1)
	bus.On(domain.EventError, func(e domain.EventEnvelope) { failed <- e })

	require.Error(t, c.Connect(context.Background()))

	env := waitEnv(t, failed)
	assert.Contains(t, strings.ToLower(env.Message), "reconnect")
	assert.Equal(t, 2, c.Attempts())
	assert.Equal(t, domain.ConnDisconnected, c.State())
}

func TestClient_ConnectWhileConnectedIsNoop(t *testing.T) {
	srv := newStubServer(t)
	c, bus := newTestClient(t, srv.srv.URL, ClientOptions{})

	connected := make(chan domain.EventEnvelope, 2)
	bus.On(domain.EventConnected, func(e domain.EventEnvelope) { connected <- e })

	require.NoError(t, c.Connect(context.Background()))
	waitEnv(t, connected)

	require.NoError(t, c.Connect(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, connected, 0)
	assert.Equal(t, 1, srv.connCount())
}
