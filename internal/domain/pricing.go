package domain

import "math"

// ShippingPolicy defines the flat-fee shipping rule: orders at or above the
// free threshold ship for nothing, everything below pays the flat fee.
type ShippingPolicy struct {
	FreeThreshold int64
	FlatFee       int64
}

// Fee returns the shipping charge for the given subtotal. Empty carts ship
// nothing and are never charged.
func (p ShippingPolicy) Fee(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	if subtotal >= p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}

// CartTotals captures the monetary view derived from a cart snapshot.
type CartTotals struct {
	ItemCount int
	Subtotal  int64
	Shipping  int64
	Discount  int64
	Total     int64
}

// ComputeTotals derives itemCount, subtotal, shipping, discount, and total
// from the snapshot. Coupon minimums are checked at application time only;
// an applied coupon keeps discounting even after the subtotal drops below
// its minimum. Percentage discounts round to the nearest unit; the discount
// never exceeds subtotal plus shipping, so the total is never negative.
func ComputeTotals(snapshot CartSnapshot, policy ShippingPolicy) CartTotals {
	totals := CartTotals{}
	for _, item := range snapshot.Items {
		if item.Quantity <= 0 {
			continue
		}
		totals.ItemCount += item.Quantity
		totals.Subtotal += item.Product.Price * int64(item.Quantity)
	}

	totals.Shipping = policy.Fee(totals.Subtotal)

	if coupon := snapshot.AppliedCoupon; coupon != nil {
		switch coupon.Kind {
		case CouponPercentage:
			totals.Discount = int64(math.Round(float64(totals.Subtotal) * float64(coupon.Value) / 100))
		case CouponFixed:
			totals.Discount = coupon.Value
		}
		if cap := totals.Subtotal + totals.Shipping; totals.Discount > cap {
			totals.Discount = cap
		}
		if totals.Discount < 0 {
			totals.Discount = 0
		}
	}

	totals.Total = totals.Subtotal + totals.Shipping - totals.Discount
	if totals.Total < 0 {
		totals.Total = 0
	}
	return totals
}
