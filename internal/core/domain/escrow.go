package domain

import (
	"time"
)

// EscrowStatus represents the lifecycle state of an escrow.
type EscrowStatus string

const (
	EscrowStatusInitiated EscrowStatus = "INITIATED"
	EscrowStatusHeld      EscrowStatus = "HELD"
	EscrowStatusReleased  EscrowStatus = "RELEASED"
	EscrowStatusRefunded  EscrowStatus = "REFUNDED"
	EscrowStatusDisputed  EscrowStatus = "DISPUTED"
	EscrowStatusExpired   EscrowStatus = "EXPIRED"
)

// Rank places a status on the lifecycle partial order:
// INITIATED < HELD < {RELEASED, REFUNDED, EXPIRED}. DISPUTED is carried as a
// flag on top of HELD rather than a later stage, so it shares HELD's rank.
// Unknown statuses rank -1.
func (s EscrowStatus) Rank() int {
	switch s {
	case EscrowStatusInitiated:
		return 0
	case EscrowStatusHeld, EscrowStatusDisputed:
		return 1
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired:
		return 2
	default:
		return -1
	}
}

// Valid reports whether the status is a known lifecycle state.
func (s EscrowStatus) Valid() bool {
	return s.Rank() >= 0
}

// IsTerminal reports whether no further local action is possible.
func (s EscrowStatus) IsTerminal() bool {
	return s.Rank() == 2
}

// Escrow is the client-side view of a tracked payment-holding transaction.
// It is mutated only from server-pushed events or acknowledged local actions;
// the provisional waiting-room flip of IsCodeActive is the one exception.
type Escrow struct {
	ID                 string       `json:"id"`
	PayerID            string       `json:"payer_id"`
	PayeeID            string       `json:"payee_id,omitempty"`
	PayeeVPA           string       `json:"payee_vpa"`
	Amount             int64        `json:"amount"` // In paise
	Currency           string       `json:"currency"`
	Status             EscrowStatus `json:"status"`
	Description        string       `json:"description,omitempty"`
	OrderID            string       `json:"order_id,omitempty"`
	EscrowCode         string       `json:"escrow_code,omitempty"`
	EscrowName         string       `json:"escrow_name,omitempty"`
	IsCodeActive       bool         `json:"is_code_active"`
	BlockchainTxHash   string       `json:"blockchain_tx_hash,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	ExpiresAt          *time.Time   `json:"expires_at,omitempty"`
	PaymentCompletedAt *time.Time   `json:"payment_completed_at,omitempty"`
}

// ParticipantRole distinguishes the party that created the escrow from the
// one that redeemed its code.
type ParticipantRole string

const (
	ParticipantRoleCreator ParticipantRole = "creator"
	ParticipantRoleJoiner  ParticipantRole = "joiner"
)

// Participant is one confirmed party attached to an escrow.
type Participant struct {
	UserID   string          `json:"user_id"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// escrowCodeLen is the fixed length of a shareable join code.
const escrowCodeLen = 6

// ValidEscrowCode reports whether code has the shape of a join code:
// exactly six alphanumeric characters. Case is not significant.
func ValidEscrowCode(code string) bool {
	if len(code) != escrowCodeLen {
		return false
	}
	for _, c := range code {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
