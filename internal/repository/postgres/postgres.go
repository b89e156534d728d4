package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgPool interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the PostgreSQL repositories and runs them inside transactions.
type Store struct {
	pool     pgPool
	accounts *AccountRepository
	sessions *SessionRepository
}

// NewStore wires all repositories backed by the provided pool.
func NewStore(pool pgPool) *Store {
	return &Store{
		pool:     pool,
		accounts: NewAccountRepository(pool),
		sessions: NewSessionRepository(pool),
	}
}

// WithinTx executes fn in a single transaction. Rows read through the supplied stores
// are locked with SELECT ... FOR UPDATE until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, stores port.Stores) error) error {
	if fn == nil {
		return errors.New("transaction function is required")
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, port.Stores{
			Accounts: s.accounts.WithTx(tx),
			Sessions: s.sessions.WithTx(tx),
		})
	})
	if err != nil {
		return err
	}
	return nil
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func translateWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%s: %w (%s)", op, repository.ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ port.Transactor = (*Store)(nil)
