package ports

import (
	"context"
	"time"

	"trustpay-sync/internal/core/domain"
)

// EscrowAPI is the REST contract of the escrow collaborator, consumed by the
// sync services. Implementations carry the bearer credential; callers treat
// it as opaque.
type EscrowAPI interface {
	CreateEscrow(ctx context.Context, req CreateEscrowRequest) (*CreateEscrowResult, error)
	JoinByCode(ctx context.Context, code string) (*domain.Escrow, error)
	Confirm(ctx context.Context, escrowID string) (*ActionResult, error)
	RaiseDispute(ctx context.Context, escrowID string, reason string) (*ActionResult, error)
	GetPaymentStatus(ctx context.Context, escrowID string) (*PaymentStatusResult, error)
}

// CreateEscrowRequest holds validated input for escrow creation.
type CreateEscrowRequest struct {
	PayeeVPA    string `json:"payee_vpa"`
	Amount      int64  `json:"amount"` // In paise
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

// PaymentOrder is the checkout order the gateway collaborator hands back on
// escrow creation.
type PaymentOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateEscrowResult pairs the created escrow with its payment order.
type CreateEscrowResult struct {
	Escrow       domain.Escrow `json:"escrow"`
	PaymentOrder PaymentOrder  `json:"payment_order"`
}

// ActionResult is the acknowledgment of a confirm or dispute write. Status
// is the escrow status resulting from the action; the machine applies it
// only after this acknowledgment arrives.
type ActionResult struct {
	Message string              `json:"message"`
	Status  domain.EscrowStatus `json:"status"`
}

// PaymentLeg describes one money movement attached to an escrow.
type PaymentLeg struct {
	Reference   string     `json:"reference,omitempty"`
	State       string     `json:"state,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PaymentStatusResult is the polled payment view of an escrow.
type PaymentStatusResult struct {
	Status  domain.EscrowStatus `json:"status"`
	Payment *PaymentLeg         `json:"payment,omitempty"`
	Payout  *PaymentLeg         `json:"payout,omitempty"`
	Refund  *PaymentLeg         `json:"refund,omitempty"`
}

// FrameSender pushes a single frame onto the live transport. Send reports
// whether the frame was handed to a connection; false means it was dropped
// and the caller must rely on replay.
type FrameSender interface {
	Send(frame domain.Frame) bool
}

// EventBus fans inbound envelopes out to topic listeners. On returns a
// removal func; listeners for one topic run synchronously in registration
// order.
type EventBus interface {
	On(topic string, fn func(domain.EventEnvelope)) func()
	Emit(topic string, env domain.EventEnvelope)
}

// Subscriptions tracks the desired set of escrow channels. The desired set
// is independent of connectivity; the net effect of the last call per escrow
// id is what gets replayed after a reconnect.
type Subscriptions interface {
	Subscribe(escrowID string)
	Unsubscribe(escrowID string)
	Desired() []string
}
