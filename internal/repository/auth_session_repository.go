package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAuthSessionNotFound is returned when a refresh-token session does not exist
var ErrAuthSessionNotFound = errors.New("auth session not found")

// AuthSessionRepository defines the interface for refresh-token session data access
type AuthSessionRepository interface {
	Create(ctx context.Context, session *AuthSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*AuthSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
	RecordFailedAttempt(ctx context.Context, username, ipAddress string) error
	CountFailedAttempts(ctx context.Context, username string, since time.Time) (int, error)
}

// authSessionRepository implements AuthSessionRepository using PostgreSQL
type authSessionRepository struct {
	pool *pgxpool.Pool
}

// NewAuthSessionRepository creates a new AuthSessionRepository instance
func NewAuthSessionRepository(pool *pgxpool.Pool) AuthSessionRepository {
	return &authSessionRepository{pool: pool}
}

// Create inserts a new refresh-token session
func (r *authSessionRepository) Create(ctx context.Context, session *AuthSession) error {
	query := `
		INSERT INTO auth_sessions (user_id, token_hash, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return r.pool.QueryRow(ctx, query,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.IPAddress,
		session.UserAgent,
	).Scan(&session.ID, &session.CreatedAt)
}

// GetByTokenHash retrieves a session by the SHA-256 hash of its refresh token
func (r *authSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*AuthSession, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, ip_address, user_agent
		FROM auth_sessions
		WHERE token_hash = $1
	`

	session := &AuthSession{}
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.IPAddress,
		&session.UserAgent,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuthSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

// Delete removes a session by ID
func (r *authSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAuthSessionNotFound
	}

	return nil
}

// DeleteByTokenHash removes a session by its refresh-token hash
func (r *authSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAuthSessionNotFound
	}

	return nil
}

// DeleteExpired removes all expired sessions and returns the number deleted
func (r *authSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// RecordFailedAttempt stores a failed login attempt for brute force tracking
func (r *authSessionRepository) RecordFailedAttempt(ctx context.Context, username, ipAddress string) error {
	query := `
		INSERT INTO failed_login_attempts (username, ip_address, attempted_at)
		VALUES ($1, $2, NOW())
	`

	_, err := r.pool.Exec(ctx, query, username, ipAddress)
	return err
}

// CountFailedAttempts counts failed login attempts for a username since the given time
func (r *authSessionRepository) CountFailedAttempts(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM failed_login_attempts
		WHERE username = $1 AND attempted_at > $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, username, since).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
