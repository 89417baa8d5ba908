package repository

import (
	"context"
	"database/sql"
)

// WishlistRepository reads customer wishlists.
type WishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new wishlist repository.
func NewWishlistRepository(db *sql.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// WishlistProductIDs returns the wishlisted product ids whose product still exists.
func (r *WishlistRepository) WishlistProductIDs(ctx context.Context, customerID int64) ([]int64, error) {
	query := `
		SELECT w.product_id
		FROM wishlists w
		JOIN products p ON p.id = w.product_id
		WHERE w.customer_id = $1
		ORDER BY w.id
	`
	return queryIDs(ctx, r.db, query, customerID)
}

// CompareRepository reads customer product compare lists.
type CompareRepository struct {
	db *sql.DB
}

// NewCompareRepository creates a new compare list repository.
func NewCompareRepository(db *sql.DB) *CompareRepository {
	return &CompareRepository{db: db}
}

// CompareProductIDs returns the product ids on the customer's compare list.
func (r *CompareRepository) CompareProductIDs(ctx context.Context, customerID int64) ([]int64, error) {
	query := `
		SELECT product_id
		FROM product_compares
		WHERE user_id = $1
		ORDER BY id
	`
	return queryIDs(ctx, r.db, query, customerID)
}

func queryIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
