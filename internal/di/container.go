package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/agenticmirror/api/internal/domain"
	"github.com/agenticmirror/api/internal/platform/config"
	"github.com/agenticmirror/api/internal/repositories"
	"github.com/agenticmirror/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Cart      services.CartService
	Favorites services.FavoritesService
}

// Container wires storage, services, and configuration for runtime use.
type Container struct {
	Config    config.Config
	Snapshots repositories.SnapshotRepository
	Services  Services
}

// ContainerDeps carries the externally constructed dependencies into NewContainer.
type ContainerDeps struct {
	Snapshots repositories.SnapshotRepository
	Logger    func(context.Context, string, map[string]any)
}

// NewContainer constructs the runtime dependencies and hydrates both stores
// from the snapshot repository.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Snapshots == nil {
		return nil, errors.New("snapshot repository is required")
	}

	shipping := domain.ShippingPolicy{
		FreeThreshold: cfg.Shipping.FreeThreshold,
		FlatFee:       cfg.Shipping.FlatFee,
	}

	var coupons services.CouponResolver
	if cfg.Features.EnableCoupons {
		coupons = services.NewStaticCouponRegistry(services.DefaultCoupons())
	}

	cartSvc, err := services.NewCartService(ctx, services.CartServiceDeps{
		Repository: deps.Snapshots,
		Coupons:    coupons,
		Shipping:   shipping,
		Clock:      time.Now,
		Logger:     deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build cart service: %w", err)
	}

	favoritesSvc, err := services.NewFavoritesService(ctx, services.FavoritesServiceDeps{
		Repository: deps.Snapshots,
		Clock:      time.Now,
		Logger:     deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build favorites service: %w", err)
	}

	return &Container{
		Config:    cfg,
		Snapshots: deps.Snapshots,
		Services: Services{
			Cart:      cartSvc,
			Favorites: favoritesSvc,
		},
	}, nil
}

// Flush persists both stores, surfacing the first failure.
func (c *Container) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Services.Cart != nil {
		if err := c.Services.Cart.Flush(ctx); err != nil {
			return err
		}
	}
	if c.Services.Favorites != nil {
		if err := c.Services.Favorites.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the snapshot repository.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Snapshots == nil {
		return nil
	}
	return c.Snapshots.Close(ctx)
}
