package domain

import "time"

// AccountRegisteredEvent represents the payload for identity.account.registered messages.
type AccountRegisteredEvent struct {
	EventID          string
	AccountID        string
	Email            string
	Role             Role
	TwoFactorEnabled bool
	RegisteredAt     time.Time
}

// AccountLockedEvent represents the payload for identity.account.locked messages.
type AccountLockedEvent struct {
	EventID        string
	AccountID      string
	FailedAttempts int
	LockedAt       time.Time
	LockoutUntil   *time.Time
	IPAddress      *string
}

// SessionCreatedEvent represents the payload for identity.session.created messages.
type SessionCreatedEvent struct {
	EventID   string
	SessionID string
	AccountID string
	Role      Role
	Source    string
	CreatedAt time.Time
	ExpiresAt time.Time
	IPAddress *string
	UserAgent *string
}

// SessionRevokedEvent represents the payload for identity.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	AccountID string
	Reason    string
	RevokedAt time.Time
}
