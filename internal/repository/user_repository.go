package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anshuhim02/student-result-api/internal/models"
)

// UserRepository provides database access for account management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by normalised email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// EmailInUse reports whether another user already holds the given email.
func (r *UserRepository) EmailInUse(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM users WHERE email = $1 AND id <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check email in use: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO users (id, name, email, password_hash, created_at) VALUES (:id, :name, :email, :password_hash, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile updates name and email together.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	const query = `UPDATE users SET name = $2, email = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name, email); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CountResults returns the number of results owned by the user.
func (r *UserRepository) CountResults(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM results WHERE user_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return count, nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
