package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// RememberTokensRepository handles "remember me" token persistence.
type RememberTokensRepository struct {
	db *sql.DB
}

// NewRememberTokensRepository creates a new remember tokens repository.
func NewRememberTokensRepository(db *sql.DB) *RememberTokensRepository {
	return &RememberTokensRepository{db: db}
}

// Create creates a new remember token record.
func (r *RememberTokensRepository) Create(ctx context.Context, token *domain.RememberToken) error {
	query := `
		INSERT INTO remember_tokens (id, customer_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.CustomerID, token.CreatedAt, token.ExpiresAt)
	return err
}

// GetByID retrieves a remember token by ID.
func (r *RememberTokensRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RememberToken, error) {
	query := `
		SELECT id, customer_id, created_at, expires_at, revoked_at
		FROM remember_tokens
		WHERE id = $1
	`
	token := &domain.RememberToken{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&token.ID, &token.CustomerID, &token.CreatedAt, &token.ExpiresAt, &token.RevokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRememberTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Revoke revokes a remember token.
func (r *RememberTokensRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE remember_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
