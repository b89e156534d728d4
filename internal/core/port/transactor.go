package port

import "context"

// Stores groups the repositories bound to a single transaction.
type Stores struct {
	Accounts AccountRepository
	Sessions SessionRepository
}

// Transactor runs fn inside one transactional boundary. Rows read through the supplied
// stores are locked until fn returns; a non-nil error from fn rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
