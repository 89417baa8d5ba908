package domain

import (
	"time"

	"github.com/google/uuid"
)

// RememberToken is the server-side record behind a "remember me" cookie.
type RememberToken struct {
	ID         uuid.UUID
	CustomerID int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// IsValid checks if the token is neither expired nor revoked.
func (t *RememberToken) IsValid() bool {
	if t.RevokedAt != nil {
		return false
	}
	return time.Now().Before(t.ExpiresAt)
}
