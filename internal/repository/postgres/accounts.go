package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/repository"
)

const accountsTable = "identity.accounts"

var accountColumns = []string{
	"id",
	"email",
	"password_hash",
	"role",
	"failed_attempts",
	"is_locked",
	"lockout_until",
	"two_factor_enabled",
	"otp",
	"otp_expiry",
	"otp_attempts",
	"created_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec      pgExecutor
	builder   squirrel.StatementBuilderType
	forUpdate bool
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
// Reads issued through it lock the selected rows.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:      tx,
		builder:   r.builder,
		forUpdate: true,
	}
}

// FindByEmail retrieves an account by its exact email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, squirrel.Eq{"email": email}, "email")
}

// FindByID retrieves an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id}, "id")
}

func (r *AccountRepository) findOne(ctx context.Context, where squirrel.Eq, by string) (*domain.Account, error) {
	query := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(where).
		Limit(1)
	if r.forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by %s sql: %w", by, err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan account by %s: %w", by, err)
	}
	return account, nil
}

// ExistsByEmail reports whether an account with the email exists.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(accountsTable).
		Where(squirrel.Eq{"email": email}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build account exists sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("scan account exists: %w", err)
	}
	return exists, nil
}

// Save inserts the account or updates its mutable columns. Email and created_at never change.
func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.PasswordHash,
			string(account.Role),
			account.FailedAttempts,
			account.IsLocked,
			optionalTime(account.LockoutUntil),
			account.TwoFactorEnabled,
			optionalString(account.OTP),
			optionalTime(account.OTPExpiry),
			account.OTPAttempts,
			account.CreatedAt.UTC(),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			failed_attempts = EXCLUDED.failed_attempts,
			is_locked = EXCLUDED.is_locked,
			lockout_until = EXCLUDED.lockout_until,
			two_factor_enabled = EXCLUDED.two_factor_enabled,
			otp = EXCLUDED.otp,
			otp_expiry = EXCLUDED.otp_expiry,
			otp_attempts = EXCLUDED.otp_attempts`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateWriteError("upsert account", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account      domain.Account
		role         string
		lockoutUntil sql.NullTime
		otp          sql.NullString
		otpExpiry    sql.NullTime
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.FailedAttempts,
		&account.IsLocked,
		&lockoutUntil,
		&account.TwoFactorEnabled,
		&otp,
		&otpExpiry,
		&account.OTPAttempts,
		&account.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	account.Role = domain.Role(role)
	account.LockoutUntil = nullableTimePtr(lockoutUntil)
	account.OTP = nullableStringPtr(otp)
	account.OTPExpiry = nullableTimePtr(otpExpiry)
	account.CreatedAt = account.CreatedAt.UTC()

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
