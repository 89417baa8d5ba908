package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

const customerColumns = `
	id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(email, ''), password,
	is_active, is_phone_verified, is_email_verified,
	login_hit_count, is_temp_blocked, temp_block_time, created_at, updated_at`

// CustomersRepository handles customer account persistence.
type CustomersRepository struct {
	db *sql.DB
}

// NewCustomersRepository creates a new customers repository.
func NewCustomersRepository(db *sql.DB) *CustomersRepository {
	return &CustomersRepository{db: db}
}

// GetByID retrieves a customer by ID.
func (r *CustomersRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `SELECT` + customerColumns + `
		FROM users
		WHERE id = $1
	`
	return scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

// GetByPhoneOrEmail retrieves the customer whose phone or email equals the
// identifier. Uniqueness across both columns is enforced upstream.
func (r *CustomersRepository) GetByPhoneOrEmail(ctx context.Context, identifier string) (*domain.Customer, error) {
	query := `SELECT` + customerColumns + `
		FROM users
		WHERE phone = $1 OR email = $1
		ORDER BY id
		LIMIT 1
	`
	return scanCustomer(r.db.QueryRowContext(ctx, query, identifier))
}

// CompareAndSwapLockout writes next only if the stored lockout fields still
// equal expected. It returns false when another request changed them first.
func (r *CustomersRepository) CompareAndSwapLockout(ctx context.Context, id int64, expected, next domain.LockoutState) (bool, error) {
	query := `
		UPDATE users
		SET login_hit_count = $5,
		    is_temp_blocked = $6,
		    temp_block_time = $7,
		    updated_at = NOW()
		WHERE id = $1
		  AND login_hit_count = $2
		  AND is_temp_blocked = $3
		  AND temp_block_time IS NOT DISTINCT FROM $4
	`
	result, err := r.db.ExecContext(ctx, query,
		id, expected.LoginHitCount, expected.IsTempBlocked, expected.TempBlockTime,
		next.LoginHitCount, next.IsTempBlocked, next.TempBlockTime,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkVerified flags a contact channel as verified.
func (r *CustomersRepository) MarkVerified(ctx context.Context, id int64, channel domain.VerificationChannel) error {
	var column string
	switch channel {
	case domain.ChannelPhone:
		column = "is_phone_verified"
	case domain.ChannelEmail:
		column = "is_email_verified"
	default:
		return fmt.Errorf("unknown verification channel %q", channel)
	}

	query := `UPDATE users SET ` + column + ` = TRUE, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func scanCustomer(row *sql.Row) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.PasswordHash,
		&c.IsActive, &c.IsPhoneVerified, &c.IsEmailVerified,
		&c.LoginHitCount, &c.IsTempBlocked, &c.TempBlockTime,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
