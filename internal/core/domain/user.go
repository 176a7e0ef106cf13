package domain

import (
	"time"
)

// User represents an account that can create or join escrows. The sync core
// treats user identity as opaque; the full record only matters to the
// simulator collaborator.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose
	FullName     string    `json:"full_name,omitempty"`
	VPA          string    `json:"vpa,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
