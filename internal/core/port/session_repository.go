package port

import (
	"context"

	"github.com/securehealth/identity/internal/core/domain"
)

// SessionRepository deals with session storage keyed by refresh token hash.
type SessionRepository interface {
	FindByHash(ctx context.Context, refreshTokenHash string) (*domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}
