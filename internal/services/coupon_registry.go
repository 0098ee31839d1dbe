package services

import (
	"strings"

	domain "github.com/agenticmirror/api/internal/domain"
)

// staticCouponRegistry resolves codes against a fixed in-memory catalog.
type staticCouponRegistry struct {
	byCode map[string]domain.Coupon
}

// NewStaticCouponRegistry builds a resolver over the given coupons. Codes are
// matched case-insensitively; later duplicates win.
func NewStaticCouponRegistry(coupons []domain.Coupon) CouponResolver {
	byCode := make(map[string]domain.Coupon, len(coupons))
	for _, coupon := range coupons {
		code := strings.ToUpper(strings.TrimSpace(coupon.Code))
		if code == "" {
			continue
		}
		coupon.Code = code
		byCode[code] = coupon
	}
	return &staticCouponRegistry{byCode: byCode}
}

func (r *staticCouponRegistry) Resolve(code string) (domain.Coupon, bool) {
	coupon, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return coupon, ok
}

func int64Ptr(v int64) *int64 {
	return &v
}

// DefaultCoupons returns the built-in coupon catalog.
func DefaultCoupons() []domain.Coupon {
	return []domain.Coupon{
		{Code: "WELCOME10", Kind: domain.CouponPercentage, Value: 10},
		{Code: "SAVE50", Kind: domain.CouponFixed, Value: 50, MinAmount: int64Ptr(299)},
		{Code: "VIP20", Kind: domain.CouponPercentage, Value: 20, MinAmount: int64Ptr(500)},
	}
}
