package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/agenticmirror/api/internal/domain"
	"github.com/agenticmirror/api/internal/repositories"
)

// CartStorageKey is the document key the cart snapshot persists under.
const CartStorageKey = "agenticmirror_cart"

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartServiceDeps wires the storage, coupon, and pricing dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.SnapshotRepository
	Coupons     CouponResolver
	Shipping    domain.ShippingPolicy
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo     repositories.SnapshotRepository
	coupons  CouponResolver
	shipping domain.ShippingPolicy
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)

	mu       sync.Mutex
	snapshot domain.CartSnapshot
}

// NewCartService constructs a CartService and hydrates its state from
// storage. A missing or undecodable stored document yields an empty cart;
// storage failures are logged and the cart starts empty.
func NewCartService(ctx context.Context, deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	service := &cartService{
		repo:     deps.Repository,
		coupons:  deps.Coupons,
		shipping: deps.Shipping,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}
	service.snapshot = service.hydrate(ctx)
	return service, nil
}

func (s *cartService) hydrate(ctx context.Context) domain.CartSnapshot {
	document, err := s.repo.Load(ctx, CartStorageKey)
	if err != nil {
		if !isRepoNotFound(err) {
			s.logger(ctx, "cart.hydrate_failed", map[string]any{"error": err.Error()})
		}
		return domain.CartSnapshot{Items: []domain.CartItem{}}
	}

	snapshot, err := decodeCartSnapshot(document)
	if err != nil {
		s.logger(ctx, "cart.snapshot_corrupt", map[string]any{"error": err.Error()})
		return domain.CartSnapshot{Items: []domain.CartItem{}}
	}
	return snapshot
}

// persist writes the current snapshot. Failures are logged, never surfaced:
// the in-memory state stays authoritative.
func (s *cartService) persist(ctx context.Context) {
	document, err := encodeCartSnapshot(s.snapshot)
	if err != nil {
		s.logger(ctx, "cart.persist_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.repo.Save(ctx, CartStorageKey, document); err != nil {
		s.logger(ctx, "cart.persist_failed", map[string]any{"error": err.Error()})
	}
}

func (s *cartService) view() CartView {
	snapshot := s.snapshot.Clone()
	return CartView{
		Items:         snapshot.Items,
		AppliedCoupon: snapshot.AppliedCoupon,
		Totals:        domain.ComputeTotals(snapshot, s.shipping),
	}
}

// Cart returns the current cart with derived totals.
func (s *cartService) Cart(ctx context.Context) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// AddItem adds the product to the cart. When a line for the product already
// exists its quantity grows by the requested amount; quantities below one
// are treated as one.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}

	productID := strings.TrimSpace(cmd.Product.ID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Product.Price < 0 {
		return CartView{}, fmt.Errorf("%w: price must be non-negative", ErrCartInvalidInput)
	}

	quantity := cmd.Quantity
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.snapshot.FindItemByProduct(productID); idx >= 0 {
		s.snapshot.Items[idx].Quantity += quantity
	} else {
		product := cmd.Product
		product.ID = productID
		s.snapshot.Items = append(s.snapshot.Items, domain.CartItem{
			ID:       fmt.Sprintf("%s-%s", productID, s.newID()),
			Product:  product,
			Quantity: quantity,
			AddedAt:  s.now(),
		})
	}

	s.persist(ctx)
	return s.view(), nil
}

// UpdateQuantity sets the absolute quantity of the identified line. A
// quantity of zero or less removes the line. Unknown line ids are a no-op.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}

	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return CartView{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.snapshot.FindItem(itemID)
	if idx < 0 {
		return s.view(), nil
	}

	if cmd.Quantity <= 0 {
		s.snapshot.Items = append(s.snapshot.Items[:idx], s.snapshot.Items[idx+1:]...)
	} else {
		s.snapshot.Items[idx].Quantity = cmd.Quantity
	}

	s.persist(ctx)
	return s.view(), nil
}

// RemoveItem removes the identified line. Unknown line ids are a no-op.
func (s *cartService) RemoveItem(ctx context.Context, itemID string) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}

	trimmed := strings.TrimSpace(itemID)
	if trimmed == "" {
		return CartView{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.snapshot.FindItem(trimmed)
	if idx < 0 {
		return s.view(), nil
	}

	s.snapshot.Items = append(s.snapshot.Items[:idx], s.snapshot.Items[idx+1:]...)
	s.persist(ctx)
	return s.view(), nil
}

// Clear empties the cart and drops any applied coupon.
func (s *cartService) Clear(ctx context.Context) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = domain.CartSnapshot{Items: []domain.CartItem{}}
	s.persist(ctx)
	return s.view(), nil
}

// ApplyCoupon applies the coupon identified by code, replacing any coupon
// already applied. It reports false when the code does not resolve, empty
// codes included, or the current subtotal does not meet the coupon's
// minimum; the cart is left unchanged in that case.
func (s *cartService) ApplyCoupon(ctx context.Context, code string) (CartView, bool, error) {
	if s == nil || s.repo == nil {
		return CartView{}, false, ErrCartUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coupons == nil {
		return s.view(), false, nil
	}

	coupon, ok := s.coupons.Resolve(code)
	if !ok {
		return s.view(), false, nil
	}

	subtotal := domain.ComputeTotals(s.snapshot, s.shipping).Subtotal
	if !coupon.Eligible(subtotal) {
		return s.view(), false, nil
	}

	s.snapshot.AppliedCoupon = &coupon
	s.persist(ctx)
	return s.view(), true, nil
}

// RemoveCoupon drops the applied coupon, if any.
func (s *cartService) RemoveCoupon(ctx context.Context) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.AppliedCoupon != nil {
		s.snapshot.AppliedCoupon = nil
		s.persist(ctx)
	}
	return s.view(), nil
}

// IsInCart reports whether the cart has a line for the product.
func (s *cartService) IsInCart(ctx context.Context, productID string) (bool, error) {
	if s == nil || s.repo == nil {
		return false, ErrCartUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.FindItemByProduct(productID) >= 0, nil
}

// ItemQuantity returns the quantity of the product's line, zero when absent.
func (s *cartService) ItemQuantity(ctx context.Context, productID string) (int, error) {
	if s == nil || s.repo == nil {
		return 0, ErrCartUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.snapshot.FindItemByProduct(productID)
	if idx < 0 {
		return 0, nil
	}
	return s.snapshot.Items[idx].Quantity, nil
}

// Flush writes the current snapshot to storage, surfacing any failure.
// Used at shutdown where a silent drop would lose the last mutations.
func (s *cartService) Flush(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	document, err := encodeCartSnapshot(s.snapshot)
	if err != nil {
		return fmt.Errorf("cart service: flush: %w", err)
	}
	if err := s.repo.Save(ctx, CartStorageKey, document); err != nil {
		return fmt.Errorf("cart service: flush: %w", err)
	}
	return nil
}
