package ports

import (
	"context"
	"time"

	"trustpay-sync/internal/core/domain"
)

// TokenService handles JWT token operations for the simulator collaborator.
type TokenService interface {
	Generate(userID string, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
	Email  string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// EventPublisher broadcasts an escrow event to every simulator replica; the
// websocket hub consumes the stream and fans it out to subscribed clients.
type EventPublisher interface {
	PublishEscrowEvent(ctx context.Context, env domain.EventEnvelope) error
}
