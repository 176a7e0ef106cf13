package ws

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
)

// Registry tracks the desired set of escrow channels independently of
// connectivity. Subscribe and unsubscribe record intent first and send
// best-effort; after a reconnect Replay re-sends a subscribe frame for
// every desired id, so the net effect of the last call per escrow id
// always wins.
type Registry struct {
	log    zerolog.Logger
	sender ports.FrameSender

	mu sync.Mutex
	// escrow id -> whether a subscribe frame reached a live connection
	desired map[string]bool
}

// NewRegistry creates a Registry sending frames through sender.
func NewRegistry(log zerolog.Logger, sender ports.FrameSender) *Registry {
	return &Registry{
		log:     log,
		sender:  sender,
		desired: make(map[string]bool),
	}
}

// Subscribe adds escrowID to the desired set and sends a subscribe frame if
// a connection is live. Duplicate calls do not produce duplicate frames once
// the subscription has been delivered.
func (r *Registry) Subscribe(escrowID string) {
	if escrowID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sent, ok := r.desired[escrowID]; ok && sent {
		return
	}
	r.desired[escrowID] = r.sender.Send(domain.Frame{Type: domain.FrameSubscribe, EscrowID: escrowID})
	if !r.desired[escrowID] {
		r.log.Debug().Str("escrow_id", escrowID).Msg("subscribe deferred until reconnect")
	}
}

// Unsubscribe removes escrowID from the desired set and sends an unsubscribe
// frame if a connection is live. Unknown ids are a no-op.
func (r *Registry) Unsubscribe(escrowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.desired[escrowID]; !ok {
		return
	}
	delete(r.desired, escrowID)
	r.sender.Send(domain.Frame{Type: domain.FrameUnsubscribe, EscrowID: escrowID})
}

// Desired returns the tracked escrow ids in sorted order.
func (r *Registry) Desired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.desired))
	for id := range r.desired {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Replay re-sends a subscribe frame for every desired escrow id. Called by
// the transport after each successful (re)connect, before the connected
// event is emitted.
func (r *Registry) Replay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.desired {
		r.desired[id] = r.sender.Send(domain.Frame{Type: domain.FrameSubscribe, EscrowID: id})
	}
	if len(r.desired) > 0 {
		r.log.Info().Int("count", len(r.desired)).Msg("replayed escrow subscriptions")
	}
}

// Reset marks every desired subscription as undelivered without dropping
// intent. Called by the transport when the connection is lost.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.desired {
		r.desired[id] = false
	}
}
