package port

import "time"

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// AccessClaims carries the application claims embedded in access tokens.
type AccessClaims struct {
	AccountID string
	Role      string
}

// TokenIssuer mints signed access tokens and opaque refresh tokens.
type TokenIssuer interface {
	SignAccessToken(subject string, claims AccessClaims, ttl time.Duration) (string, error)
	RandomOpaqueToken(byteLen int) (string, error)
}
