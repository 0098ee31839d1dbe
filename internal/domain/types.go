package domain

import (
	"strings"
	"time"
)

// Product is the immutable snapshot of a catalog product captured when a
// line item is created. Later catalog changes never alter cart history.
type Product struct {
	ID            string
	Name          string
	Brand         string
	Price         int64
	OriginalPrice *int64
	Image         string
	Category      string
}

// CartItem is a single cart line. At most one line exists per product id;
// adding the same product again increments Quantity instead.
type CartItem struct {
	ID       string
	Product  Product
	Quantity int
	AddedAt  time.Time
}

// CouponKind enumerates the supported discount mechanics.
type CouponKind string

const (
	// CouponPercentage discounts a percentage of the subtotal (0-100).
	CouponPercentage CouponKind = "percentage"
	// CouponFixed discounts an absolute amount in currency units.
	CouponFixed CouponKind = "fixed"
)

// Coupon describes a discount code. Codes are canonicalised to upper case.
type Coupon struct {
	Code      string
	Kind      CouponKind
	Value     int64
	MinAmount *int64
}

// Eligible reports whether the coupon may be applied at the given subtotal.
func (c Coupon) Eligible(subtotal int64) bool {
	if c.MinAmount == nil {
		return true
	}
	return subtotal >= *c.MinAmount
}

// CartSnapshot is the persisted unit of cart state. Derived totals are never
// stored; they are recomputed from the snapshot on every read.
type CartSnapshot struct {
	Items         []CartItem
	AppliedCoupon *Coupon
}

// FindItemByProduct returns the index of the line holding the product, or -1.
func (s CartSnapshot) FindItemByProduct(productID string) int {
	target := strings.TrimSpace(productID)
	if target == "" {
		return -1
	}
	for i, item := range s.Items {
		if item.Product.ID == target {
			return i
		}
	}
	return -1
}

// FindItem returns the index of the line with the given id, or -1.
func (s CartSnapshot) FindItem(itemID string) int {
	target := strings.TrimSpace(itemID)
	if target == "" {
		return -1
	}
	for i, item := range s.Items {
		if item.ID == target {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing internal state to mutation.
func (s CartSnapshot) Clone() CartSnapshot {
	out := CartSnapshot{}
	if len(s.Items) > 0 {
		out.Items = make([]CartItem, len(s.Items))
		copy(out.Items, s.Items)
		for i := range out.Items {
			if orig := out.Items[i].Product.OriginalPrice; orig != nil {
				dup := *orig
				out.Items[i].Product.OriginalPrice = &dup
			}
		}
	}
	if s.AppliedCoupon != nil {
		coupon := *s.AppliedCoupon
		if coupon.MinAmount != nil {
			min := *coupon.MinAmount
			coupon.MinAmount = &min
		}
		out.AppliedCoupon = &coupon
	}
	return out
}

// FavoriteKind classifies what a favorite entry references.
type FavoriteKind string

const (
	FavoriteProduct  FavoriteKind = "product"
	FavoriteStyle    FavoriteKind = "style"
	FavoriteTutorial FavoriteKind = "tutorial"
)

// ValidFavoriteKind reports whether the kind belongs to the closed set.
func ValidFavoriteKind(kind FavoriteKind) bool {
	switch kind {
	case FavoriteProduct, FavoriteStyle, FavoriteTutorial:
		return true
	}
	return false
}

// FavoriteEntry references an external entity marked as a favorite.
// Entries are unique on (Kind, ItemID).
type FavoriteEntry struct {
	ID      string
	Kind    FavoriteKind
	ItemID  string
	AddedAt time.Time
}
