package domain

import "time"

// Session represents a persisted login session identified by the hash of its refresh token.
type Session struct {
	ID               string
	AccountID        string
	RefreshTokenHash string
	IPAddress        *string
	UserAgent        *string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	IsRevoked        bool
	RevokedAt        *time.Time
}

// IsActive reports whether the session is still valid (not revoked and not expired at the supplied moment).
func (s Session) IsActive(at time.Time) bool {
	if s.IsRevoked {
		return false
	}
	return s.ExpiresAt.After(at)
}

// Revoke marks the session as revoked. Revocation is terminal.
// Returns true when the session changed state.
func (s *Session) Revoke(at time.Time) bool {
	if s.IsRevoked {
		return false
	}
	s.IsRevoked = true
	s.RevokedAt = &at
	return true
}
