package simulator

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
)

const authFailClose = websocket.ClosePolicyViolation // 1008

type hubConn struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (c *hubConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub owns the simulator's websocket side: it authenticates the token query
// parameter, tracks which connections subscribed to which escrow channels,
// answers subscribe/unsubscribe/ping frames, and fans escrow events out to
// subscribers.
type Hub struct {
	log      zerolog.Logger
	tokenSvc ports.TokenService
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]map[*hubConn]struct{} // escrow id -> subscribed conns
}

// NewHub creates a Hub validating connection tokens with tokenSvc.
func NewHub(log zerolog.Logger, tokenSvc ports.TokenService) *Hub {
	return &Hub{
		log:      log,
		tokenSvc: tokenSvc,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		subs:     make(map[string]map[*hubConn]struct{}),
	}
}

// HandleWS is the gin handler for GET /api/v1/ws. A missing or invalid
// token closes the socket with policy violation (1008) after the upgrade,
// so clients can tell auth failures from network failures.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	claims, err := h.tokenSvc.Validate(c.Query("token"))
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket auth rejected")
		msg := websocket.FormatCloseMessage(authFailClose, "invalid token")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	hc := &hubConn{conn: conn, userID: claims.UserID}
	defer h.dropConn(hc)

	h.log.Info().Str("user_id", hc.userID).Msg("websocket client connected")
	_ = hc.writeJSON(domain.EventEnvelope{Type: domain.EventConnected})

	for {
		var frame domain.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		h.handleFrame(hc, frame)
	}
}

func (h *Hub) handleFrame(hc *hubConn, frame domain.Frame) {
	switch frame.Type {
	case domain.FrameSubscribe:
		if frame.EscrowID == "" {
			return
		}
		h.mu.Lock()
		if _, ok := h.subs[frame.EscrowID]; !ok {
			h.subs[frame.EscrowID] = make(map[*hubConn]struct{})
		}
		h.subs[frame.EscrowID][hc] = struct{}{}
		h.mu.Unlock()
		_ = hc.writeJSON(domain.EventEnvelope{Type: domain.EventSubscribed, EscrowID: frame.EscrowID})

	case domain.FrameUnsubscribe:
		h.mu.Lock()
		if set, ok := h.subs[frame.EscrowID]; ok {
			delete(set, hc)
			if len(set) == 0 {
				delete(h.subs, frame.EscrowID)
			}
		}
		h.mu.Unlock()
		_ = hc.writeJSON(domain.EventEnvelope{Type: domain.EventUnsubscribed, EscrowID: frame.EscrowID})

	case domain.FramePing:
		_ = hc.writeJSON(domain.EventEnvelope{Type: domain.EventPong})

	default:
		h.log.Debug().Str("type", frame.Type).Msg("ignoring unknown frame type")
	}
}

// dropConn removes the connection from every subscription set.
func (h *Hub) dropConn(hc *hubConn) {
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, hc)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
	hc.conn.Close()
	h.log.Info().Str("user_id", hc.userID).Msg("websocket client disconnected")
}

// Broadcast sends an envelope to every connection subscribed to its escrow
// channel.
func (h *Hub) Broadcast(env domain.EventEnvelope) {
	if env.EscrowID == "" {
		return
	}
	h.mu.RLock()
	conns := make([]*hubConn, 0, len(h.subs[env.EscrowID]))
	for hc := range h.subs[env.EscrowID] {
		conns = append(conns, hc)
	}
	h.mu.RUnlock()

	for _, hc := range conns {
		if err := hc.writeJSON(env); err != nil {
			h.log.Warn().Err(err).Str("user_id", hc.userID).Msg("broadcast write failed")
		}
	}
}
