package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/agenticmirror/api/internal/domain"
	"github.com/agenticmirror/api/internal/repositories"
)

var testShipping = domain.ShippingPolicy{FreeThreshold: 299, FlatFee: 15}

func newTestCartService(t *testing.T, repo repositories.SnapshotRepository) CartService {
	t.Helper()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	service, err := NewCartService(context.Background(), CartServiceDeps{
		Repository: repo,
		Coupons:    NewStaticCouponRegistry(DefaultCoupons()),
		Shipping:   testShipping,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	return service
}

func testProduct(id string, price int64) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Brand:    "GlowLab",
		Price:    price,
		Image:    "/products/" + id + ".jpg",
		Category: "skincare",
	}
}

func TestCartServiceHydratesFromStoredDocument(t *testing.T) {
	repo := &stubSnapshotRepository{
		loadFunc: func(ctx context.Context, key string) ([]byte, error) {
			if key != CartStorageKey {
				t.Fatalf("unexpected storage key %q", key)
			}
			return []byte(`{
				"items": [
					{
						"id": "p1-abc",
						"productId": "p1",
						"product": {"id": "p1", "name": "Serum", "brand": "GlowLab", "price": 120, "image": "/p1.jpg", "category": "skincare"},
						"quantity": 2,
						"addedAt": "2025-03-01T09:00:00Z"
					}
				],
				"appliedCoupon": {"code": "WELCOME10", "type": "percentage", "value": 10}
			}`), nil
		},
	}

	service := newTestCartService(t, repo)

	view, err := service.Cart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(view.Items))
	}
	if view.Items[0].Product.Name != "Serum" {
		t.Fatalf("expected product Serum, got %q", view.Items[0].Product.Name)
	}
	if view.AppliedCoupon == nil || view.AppliedCoupon.Code != "WELCOME10" {
		t.Fatalf("expected WELCOME10 applied, got %+v", view.AppliedCoupon)
	}
	if view.Totals.Subtotal != 240 {
		t.Fatalf("expected subtotal 240, got %d", view.Totals.Subtotal)
	}
}

func TestCartServiceHydratesEmptyOnCorruptDocument(t *testing.T) {
	var logged []string
	repo := &stubSnapshotRepository{
		loadFunc: func(ctx context.Context, key string) ([]byte, error) {
			return []byte(`{"items": "not-an-array"`), nil
		},
	}

	service, err := NewCartService(context.Background(), CartServiceDeps{
		Repository: repo,
		Shipping:   testShipping,
		Clock:      time.Now,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	view, err := service.Cart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(view.Items))
	}
	if len(logged) != 1 || logged[0] != "cart.snapshot_corrupt" {
		t.Fatalf("expected cart.snapshot_corrupt event, got %v", logged)
	}
}

func TestCartServiceAddItemMergesQuantities(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(view.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(view.Items))
	}
	if view.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", view.Items[0].Quantity)
	}
	if view.Totals.ItemCount != 5 {
		t.Fatalf("expected item count 5, got %d", view.Totals.ItemCount)
	}
}

func TestCartServiceAddItemClampsQuantityBelowOne(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})

	view, err := service.AddItem(context.Background(), AddCartItemCommand{Product: testProduct("p1", 50), Quantity: -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity clamped to 1, got %d", view.Items[0].Quantity)
	}
}

func TestCartServiceAddItemRequiresProductID(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})

	_, err := service.AddItem(context.Background(), AddCartItemCommand{Product: domain.Product{Price: 10}, Quantity: 1})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceUpdateQuantityZeroRemovesLine(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	added, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := service.UpdateQuantity(ctx, UpdateCartQuantityCommand{ItemID: added.Items[0].ID, Quantity: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected line removed, got %d items", len(view.Items))
	}

	inCart, err := service.IsInCart(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inCart {
		t.Fatal("expected p1 no longer in cart")
	}
}

func TestCartServiceUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	added, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := service.UpdateQuantity(ctx, UpdateCartQuantityCommand{ItemID: added.Items[0].ID, Quantity: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Items[0].Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", view.Items[0].Quantity)
	}

	quantity, err := service.ItemQuantity(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quantity != 7 {
		t.Fatalf("expected ItemQuantity 7, got %d", quantity)
	}
}

func TestCartServiceRemoveUnknownProductIsNoOp(t *testing.T) {
	saves := 0
	service := newTestCartService(t, &stubSnapshotRepository{
		saveFunc: func(ctx context.Context, key string, document []byte) error {
			saves++
			return nil
		},
	})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	savesAfterAdd := saves

	view, err := service.RemoveItem(ctx, "missing-item-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected cart unchanged, got %d items", len(view.Items))
	}
	if saves != savesAfterAdd {
		t.Fatalf("expected no save for no-op removal, got %d extra", saves-savesAfterAdd)
	}
}

func TestCartServiceClearEmptiesCartAndCoupon(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 400), Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, applied, err := service.ApplyCoupon(ctx, "WELCOME10"); err != nil || !applied {
		t.Fatalf("expected WELCOME10 to apply, got applied=%v err=%v", applied, err)
	}

	view, err := service.Clear(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(view.Items))
	}
	if view.AppliedCoupon != nil {
		t.Fatalf("expected coupon dropped, got %+v", view.AppliedCoupon)
	}
	if view.Totals.Total != 0 {
		t.Fatalf("expected total 0, got %d", view.Totals.Total)
	}
}

func TestCartServiceApplyCouponPercentage(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, applied, err := service.ApplyCoupon(ctx, "welcome10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected coupon to apply")
	}
	if view.Totals.Subtotal != 200 {
		t.Fatalf("expected subtotal 200, got %d", view.Totals.Subtotal)
	}
	if view.Totals.Discount != 20 {
		t.Fatalf("expected discount 20, got %d", view.Totals.Discount)
	}
	if view.Totals.Shipping != 15 {
		t.Fatalf("expected shipping 15, got %d", view.Totals.Shipping)
	}
	if view.Totals.Total != 195 {
		t.Fatalf("expected total 195, got %d", view.Totals.Total)
	}
}

func TestCartServiceApplyCouponBelowMinimumFails(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, applied, err := service.ApplyCoupon(ctx, "SAVE50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected SAVE50 to be rejected below its minimum")
	}
	if view.AppliedCoupon != nil {
		t.Fatalf("expected no coupon applied, got %+v", view.AppliedCoupon)
	}
	if view.Totals.Discount != 0 {
		t.Fatalf("expected no discount, got %d", view.Totals.Discount)
	}
}

func TestCartServiceApplyCouponUnmatchedCodeReportsFalse(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, code := range []string{"NOPE", "", "   "} {
		view, applied, err := service.ApplyCoupon(ctx, code)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", code, err)
		}
		if applied {
			t.Fatalf("expected code %q to be rejected", code)
		}
		if view.AppliedCoupon != nil {
			t.Fatalf("expected cart unchanged for %q, got %+v", code, view.AppliedCoupon)
		}
	}
}

func TestCartServiceApplyCouponIsIdempotent(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, applied, err := service.ApplyCoupon(ctx, "WELCOME10")
	if err != nil || !applied {
		t.Fatalf("expected first apply to succeed, got applied=%v err=%v", applied, err)
	}
	second, applied, err := service.ApplyCoupon(ctx, "WELCOME10")
	if err != nil || !applied {
		t.Fatalf("expected second apply to succeed, got applied=%v err=%v", applied, err)
	}
	if first.Totals != second.Totals {
		t.Fatalf("expected identical totals, got %+v then %+v", first.Totals, second.Totals)
	}
}

func TestCartServiceApplyCouponReplacesExisting(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 300), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, applied, err := service.ApplyCoupon(ctx, "WELCOME10"); err != nil || !applied {
		t.Fatalf("expected WELCOME10 to apply, got applied=%v err=%v", applied, err)
	}

	view, applied, err := service.ApplyCoupon(ctx, "VIP20")
	if err != nil || !applied {
		t.Fatalf("expected VIP20 to apply, got applied=%v err=%v", applied, err)
	}
	if view.AppliedCoupon == nil || view.AppliedCoupon.Code != "VIP20" {
		t.Fatalf("expected VIP20 as the applied coupon, got %+v", view.AppliedCoupon)
	}
	if view.Totals.Discount != 120 {
		t.Fatalf("expected discount 120, got %d", view.Totals.Discount)
	}
}

func TestCartServiceTotalNeverNegative(t *testing.T) {
	coupons := NewStaticCouponRegistry([]domain.Coupon{
		{Code: "MEGA", Kind: domain.CouponFixed, Value: 5000},
	})
	service, err := NewCartService(context.Background(), CartServiceDeps{
		Repository: &stubSnapshotRepository{},
		Coupons:    coupons,
		Shipping:   testShipping,
		Clock:      time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 30), Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, applied, err := service.ApplyCoupon(ctx, "MEGA")
	if err != nil || !applied {
		t.Fatalf("expected MEGA to apply, got applied=%v err=%v", applied, err)
	}
	if view.Totals.Total != 0 {
		t.Fatalf("expected total clamped to 0, got %d", view.Totals.Total)
	}
	if view.Totals.Total < 0 {
		t.Fatalf("total must never be negative, got %d", view.Totals.Total)
	}
}

func TestCartServiceCouponKeepsDiscountingAfterSubtotalDrops(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	added, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, applied, err := service.ApplyCoupon(ctx, "SAVE50"); err != nil || !applied {
		t.Fatalf("expected SAVE50 to apply at subtotal 300, got applied=%v err=%v", applied, err)
	}

	view, err := service.UpdateQuantity(ctx, UpdateCartQuantityCommand{ItemID: added.Items[0].ID, Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if view.AppliedCoupon == nil || view.AppliedCoupon.Code != "SAVE50" {
		t.Fatalf("expected SAVE50 to remain applied, got %+v", view.AppliedCoupon)
	}
	if view.Totals.Subtotal != 100 || view.Totals.Shipping != 15 {
		t.Fatalf("expected subtotal 100 and shipping 15, got %+v", view.Totals)
	}
	if view.Totals.Discount != 50 {
		t.Fatalf("expected discount 50 below the coupon minimum, got %d", view.Totals.Discount)
	}
	if view.Totals.Total != 65 {
		t.Fatalf("expected total 65, got %d", view.Totals.Total)
	}
}

func TestCartServiceRemoveCoupon(t *testing.T) {
	service := newTestCartService(t, &stubSnapshotRepository{})
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, applied, err := service.ApplyCoupon(ctx, "WELCOME10"); err != nil || !applied {
		t.Fatalf("expected coupon to apply, got applied=%v err=%v", applied, err)
	}

	view, err := service.RemoveCoupon(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.AppliedCoupon != nil {
		t.Fatalf("expected coupon removed, got %+v", view.AppliedCoupon)
	}
	if view.Totals.Discount != 0 {
		t.Fatalf("expected discount 0, got %d", view.Totals.Discount)
	}
}

func TestCartServicePersistFailureKeepsInMemoryState(t *testing.T) {
	var logged []string
	service, err := NewCartService(context.Background(), CartServiceDeps{
		Repository: &stubSnapshotRepository{
			saveFunc: func(ctx context.Context, key string, document []byte) error {
				return errRepositoryDown
			},
		},
		Shipping: testShipping,
		Clock:    time.Now,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	ctx := context.Background()

	view, err := service.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 1})
	if err != nil {
		t.Fatalf("expected mutation to succeed despite persist failure, got %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected item kept in memory, got %d items", len(view.Items))
	}
	if len(logged) == 0 || logged[len(logged)-1] != "cart.persist_failed" {
		t.Fatalf("expected cart.persist_failed event, got %v", logged)
	}
}

func TestCartServiceRoundTripPreservesDerivedTotals(t *testing.T) {
	repo := newMemorySnapshotRepository()
	first := newTestCartService(t, repo)
	ctx := context.Background()

	if _, err := first.AddItem(ctx, AddCartItemCommand{Product: testProduct("p1", 100), Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, applied, err := first.ApplyCoupon(ctx, "WELCOME10")
	if err != nil || !applied {
		t.Fatalf("expected coupon to apply, got applied=%v err=%v", applied, err)
	}

	second := newTestCartService(t, repo)
	after, err := second.Cart(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if after.Totals != before.Totals {
		t.Fatalf("expected totals preserved across restart, got %+v then %+v", before.Totals, after.Totals)
	}
	if after.AppliedCoupon == nil || after.AppliedCoupon.Code != "WELCOME10" {
		t.Fatalf("expected coupon preserved, got %+v", after.AppliedCoupon)
	}
	if len(after.Items) != 1 || after.Items[0].Quantity != 2 {
		t.Fatalf("expected items preserved, got %+v", after.Items)
	}
}

func TestCartServiceFlushSurfacesSaveFailure(t *testing.T) {
	service, err := NewCartService(context.Background(), CartServiceDeps{
		Repository: &stubSnapshotRepository{
			saveFunc: func(ctx context.Context, key string, document []byte) error {
				return errRepositoryDown
			},
		},
		Shipping: testShipping,
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	if err := service.Flush(context.Background()); !errors.Is(err, errRepositoryDown) {
		t.Fatalf("expected flush to surface save failure, got %v", err)
	}
}

func TestCartServiceRequiresRepositoryAndClock(t *testing.T) {
	if _, err := NewCartService(context.Background(), CartServiceDeps{Clock: time.Now}); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewCartService(context.Background(), CartServiceDeps{Repository: &stubSnapshotRepository{}}); err == nil {
		t.Fatal("expected error without clock")
	}
}
