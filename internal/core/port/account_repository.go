package port

import (
	"context"

	"github.com/securehealth/identity/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts (the credential store).
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, account domain.Account) error
}
