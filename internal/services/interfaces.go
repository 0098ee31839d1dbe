package services

import (
	"context"
	"errors"

	domain "github.com/agenticmirror/api/internal/domain"
	"github.com/agenticmirror/api/internal/repositories"
)

// CartView is the read model returned by every cart operation: the current
// snapshot plus totals derived from it.
type CartView struct {
	Items         []domain.CartItem
	AppliedCoupon *domain.Coupon
	Totals        domain.CartTotals
}

// AddCartItemCommand captures the input for adding a product to the cart.
type AddCartItemCommand struct {
	Product  domain.Product
	Quantity int
}

// UpdateCartQuantityCommand sets the absolute quantity of an existing line.
type UpdateCartQuantityCommand struct {
	ItemID   string
	Quantity int
}

// CartService manages the single cart: line items, the applied coupon, and
// the totals derived from them.
type CartService interface {
	Cart(ctx context.Context) (CartView, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (CartView, error)
	RemoveItem(ctx context.Context, itemID string) (CartView, error)
	Clear(ctx context.Context) (CartView, error)
	ApplyCoupon(ctx context.Context, code string) (CartView, bool, error)
	RemoveCoupon(ctx context.Context) (CartView, error)
	IsInCart(ctx context.Context, productID string) (bool, error)
	ItemQuantity(ctx context.Context, productID string) (int, error)
	Flush(ctx context.Context) error
}

// AddFavoriteCommand captures the input for marking an item as a favorite.
type AddFavoriteCommand struct {
	Kind   domain.FavoriteKind
	ItemID string
}

// FavoritesService manages the favorites collection, unique on (kind, item).
type FavoritesService interface {
	List(ctx context.Context) ([]domain.FavoriteEntry, error)
	ListByKind(ctx context.Context, kind domain.FavoriteKind) ([]domain.FavoriteEntry, error)
	Add(ctx context.Context, cmd AddFavoriteCommand) (domain.FavoriteEntry, error)
	Remove(ctx context.Context, entryID string) error
	Toggle(ctx context.Context, cmd AddFavoriteCommand) (bool, error)
	IsFavorite(ctx context.Context, kind domain.FavoriteKind, itemID string) (bool, error)
	FavoriteID(ctx context.Context, kind domain.FavoriteKind, itemID string) (string, bool, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Flush(ctx context.Context) error
}

// CouponResolver looks up a coupon definition by code.
type CouponResolver interface {
	Resolve(code string) (domain.Coupon, bool)
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
