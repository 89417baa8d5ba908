package repository

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestWishlistRepository_WishlistProductIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM wishlists").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(int64(3)).AddRow(int64(8)))

	ids, err := NewWishlistRepository(db).WishlistProductIDs(context.Background(), 4)
	if err != nil {
		t.Fatalf("WishlistProductIDs() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{3, 8}) {
		t.Errorf("WishlistProductIDs() = %v, want [3 8]", ids)
	}
}

func TestCompareRepository_CompareProductIDs_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM product_compares").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	ids, err := NewCompareRepository(db).CompareProductIDs(context.Background(), 4)
	if err != nil {
		t.Fatalf("CompareProductIDs() error = %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("CompareProductIDs() = %#v, want empty non-nil slice", ids)
	}
}
