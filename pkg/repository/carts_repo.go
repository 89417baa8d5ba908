package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// CartsRepository handles persisted customer carts.
type CartsRepository struct {
	db *sql.DB
}

// NewCartsRepository creates a new carts repository.
func NewCartsRepository(db *sql.DB) *CartsRepository {
	return &CartsRepository{db: db}
}

// MergeGuestCart adds the anonymous cart lines to the customer's persisted
// cart. Lines for a product/variant already in the cart add to its quantity.
func (r *CartsRepository) MergeGuestCart(ctx context.Context, customerID int64, items []domain.CartItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO carts (customer_id, product_id, variant, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (customer_id, product_id, variant)
		DO UPDATE SET quantity = carts.quantity + EXCLUDED.quantity,
		              price = EXCLUDED.price,
		              updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		for _, item := range items {
			if item.Quantity <= 0 {
				continue
			}
			_, err := tx.ExecContext(ctx, query,
				customerID, item.ProductID, item.Variant, item.Quantity, item.Price, now,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
