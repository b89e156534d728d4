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

const sessionsTable = "identity.sessions"

var sessionColumns = []string{
	"id",
	"account_id",
	"refresh_token_hash",
	"ip_address",
	"user_agent",
	"created_at",
	"expires_at",
	"is_revoked",
	"revoked_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec      pgExecutor
	builder   squirrel.StatementBuilderType
	forUpdate bool
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		exec:      tx,
		builder:   r.builder,
		forUpdate: true,
	}
}

// FindByHash retrieves the session whose refresh token hashes to the supplied digest.
func (r *SessionRepository) FindByHash(ctx context.Context, refreshTokenHash string) (*domain.Session, error) {
	query := r.builder.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"refresh_token_hash": refreshTokenHash}).
		Limit(1)
	if r.forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

// Save inserts the session or persists its revocation. All other columns are immutable.
func (r *SessionRepository) Save(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.AccountID,
			session.RefreshTokenHash,
			optionalString(session.IPAddress),
			optionalString(session.UserAgent),
			session.CreatedAt.UTC(),
			session.ExpiresAt.UTC(),
			session.IsRevoked,
			optionalTime(session.RevokedAt),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			is_revoked = sessions.is_revoked OR EXCLUDED.is_revoked,
			revoked_at = COALESCE(sessions.revoked_at, EXCLUDED.revoked_at)`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return translateWriteError("upsert session", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session   domain.Session
		ipAddress sql.NullString
		userAgent sql.NullString
		revokedAt sql.NullTime
	)

	if err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.RefreshTokenHash,
		&ipAddress,
		&userAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.IsRevoked,
		&revokedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	session.IPAddress = nullableStringPtr(ipAddress)
	session.UserAgent = nullableStringPtr(userAgent)
	session.RevokedAt = nullableTimePtr(revokedAt)
	session.CreatedAt = session.CreatedAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
