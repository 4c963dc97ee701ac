package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) (int64, error)
	DeleteStaleSessions(ctx context.Context, cutoff time.Time) (int64, error)
	CountLiveSessions(ctx context.Context, userID int64) (int64, error)
	SetConnected(ctx context.Context, userID int64, connected bool) error
}

const userColumns = `id, email, name, role, password_hash, is_active, connected, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateSession persists a new login session.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, last_access, expires_at, ip, ua)
		VALUES ($1, $2, $3, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET user_id = $2, last_access = $3, expires_at = $4
	`, id, userID, now, expiresAt.UTC(), ip, ua)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// TouchSession refreshes the liveness timestamp.
func (r *PGRepository) TouchSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_access = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("auth: touch session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record and returns its user id, zero when
// the session was unknown.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) (int64, error) {
	var userID int64
	err := r.pool.QueryRow(ctx, `DELETE FROM sessions WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("auth: delete session: %w", err)
	}
	return userID, nil
}

// DeleteStaleSessions removes sessions idle since before cutoff and marks
// the affected users disconnected when no live session remains.
func (r *PGRepository) DeleteStaleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("auth: begin sweep: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE last_access < $1 OR expires_at < NOW()`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auth: delete stale sessions: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE users SET connected = FALSE
		WHERE connected AND NOT EXISTS (SELECT 1 FROM sessions WHERE sessions.user_id = users.id)
	`)
	if err != nil {
		return 0, fmt.Errorf("auth: disconnect swept users: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("auth: commit sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountLiveSessions counts unexpired sessions of a user.
func (r *PGRepository) CountLiveSessions(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND expires_at > NOW()
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("auth: count sessions: %w", err)
	}
	return count, nil
}

// SetConnected flips the user's liveness flag.
func (r *PGRepository) SetConnected(ctx context.Context, userID int64, connected bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET connected = $2 WHERE id = $1`, userID, connected)
	if err != nil {
		return fmt.Errorf("auth: set connected: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash,
		&user.IsActive, &user.Connected, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
