package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// Session keys written during login.
const (
	SessionKeyWishList   = "wish_list"
	SessionKeyCompare    = "compare_list"
	SessionKeyCart       = "cart"
	SessionKeyReturnURL  = "keep_return_url"
	SessionKeyCustomerID = "customer_id"
)

type WishlistReader interface {
	WishlistProductIDs(ctx context.Context, customerID int64) ([]int64, error)
}

type CompareReader interface {
	CompareProductIDs(ctx context.Context, customerID int64) ([]int64, error)
}

type CartMerger interface {
	MergeGuestCart(ctx context.Context, customerID int64, items []domain.CartItem) error
}

// BootstrapSession is the part of the visitor session the bootstrapper touches.
type BootstrapSession interface {
	PhraseStore
	Decode(key string, dst any) (bool, error)
	Flash(kind, message string)
}

// Bootstrapper prepares the session of a customer who just logged in.
type Bootstrapper struct {
	wishlist WishlistReader
	compare  CompareReader
	carts    CartMerger
	homeURL  string
	logger   *slog.Logger
}

func NewBootstrapper(wishlist WishlistReader, compare CompareReader, carts CartMerger, homeURL string, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	if homeURL == "" {
		homeURL = "/"
	}
	return &Bootstrapper{
		wishlist: wishlist,
		compare:  compare,
		carts:    carts,
		homeURL:  homeURL,
		logger:   logger,
	}
}

// Bootstrap hydrates the wishlist and compare list, flashes the welcome
// message and merges the guest cart. Every step is best effort: a failure is
// logged and the rest still run. It returns where the customer should land.
func (b *Bootstrapper) Bootstrap(ctx context.Context, customer *domain.Customer, settings domain.BusinessSettings, sess BootstrapSession) string {
	log := b.logger.With("customer_id", customer.ID)

	if ids, err := b.wishlist.WishlistProductIDs(ctx, customer.ID); err != nil {
		log.Error("failed to load wishlist", "error", err)
	} else {
		sess.Put(SessionKeyWishList, ids)
	}

	if ids, err := b.compare.CompareProductIDs(ctx, customer.ID); err != nil {
		log.Error("failed to load compare list", "error", err)
	} else {
		sess.Put(SessionKeyCompare, ids)
	}

	sess.Flash("info", fmt.Sprintf("Welcome to %s!", settings.CompanyName))

	var cart []domain.CartItem
	found, err := sess.Decode(SessionKeyCart, &cart)
	switch {
	case err != nil:
		log.Error("failed to read guest cart", "error", err)
	case found:
		if err := b.carts.MergeGuestCart(ctx, customer.ID, cart); err != nil {
			log.Error("failed to merge guest cart", "error", err, "items", len(cart))
		} else {
			sess.Forget(SessionKeyCart)
		}
	}

	if target := sess.GetString(SessionKeyReturnURL); target != "" {
		sess.Forget(SessionKeyReturnURL)
		return target
	}
	return b.homeURL
}
