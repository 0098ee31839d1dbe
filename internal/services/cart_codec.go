package services

import (
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/agenticmirror/api/internal/domain"
)

// Persisted cart document. Field names are part of the storage contract and
// must stay stable across releases.
type cartDocument struct {
	Items         []cartItemDocument `json:"items"`
	AppliedCoupon *couponDocument    `json:"appliedCoupon"`
}

type cartItemDocument struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Product   productDocument `json:"product"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"addedAt"`
}

type productDocument struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"originalPrice,omitempty"`
	Image         string `json:"image"`
	Category      string `json:"category"`
}

type couponDocument struct {
	Code      string `json:"code"`
	Type      string `json:"type"`
	Value     int64  `json:"value"`
	MinAmount *int64 `json:"minAmount,omitempty"`
}

func encodeCartSnapshot(snapshot domain.CartSnapshot) ([]byte, error) {
	doc := cartDocument{Items: make([]cartItemDocument, 0, len(snapshot.Items))}
	for _, item := range snapshot.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ID:        item.ID,
			ProductID: item.Product.ID,
			Product: productDocument{
				ID:            item.Product.ID,
				Name:          item.Product.Name,
				Brand:         item.Product.Brand,
				Price:         item.Product.Price,
				OriginalPrice: item.Product.OriginalPrice,
				Image:         item.Product.Image,
				Category:      item.Product.Category,
			},
			Quantity: item.Quantity,
			AddedAt:  item.AddedAt.UTC(),
		})
	}
	if coupon := snapshot.AppliedCoupon; coupon != nil {
		doc.AppliedCoupon = &couponDocument{
			Code:      coupon.Code,
			Type:      string(coupon.Kind),
			Value:     coupon.Value,
			MinAmount: coupon.MinAmount,
		}
	}
	return json.Marshal(doc)
}

func decodeCartSnapshot(document []byte) (domain.CartSnapshot, error) {
	var doc cartDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("decode cart snapshot: %w", err)
	}

	snapshot := domain.CartSnapshot{Items: make([]domain.CartItem, 0, len(doc.Items))}
	for _, item := range doc.Items {
		snapshot.Items = append(snapshot.Items, domain.CartItem{
			ID: item.ID,
			Product: domain.Product{
				ID:            item.Product.ID,
				Name:          item.Product.Name,
				Brand:         item.Product.Brand,
				Price:         item.Product.Price,
				OriginalPrice: item.Product.OriginalPrice,
				Image:         item.Product.Image,
				Category:      item.Product.Category,
			},
			Quantity: item.Quantity,
			AddedAt:  item.AddedAt,
		})
	}
	if doc.AppliedCoupon != nil {
		kind := domain.CouponKind(doc.AppliedCoupon.Type)
		switch kind {
		case domain.CouponPercentage, domain.CouponFixed:
		default:
			return domain.CartSnapshot{}, fmt.Errorf("decode cart snapshot: unknown coupon type %q", doc.AppliedCoupon.Type)
		}
		snapshot.AppliedCoupon = &domain.Coupon{
			Code:      doc.AppliedCoupon.Code,
			Kind:      kind,
			Value:     doc.AppliedCoupon.Value,
			MinAmount: doc.AppliedCoupon.MinAmount,
		}
	}
	return snapshot, nil
}
