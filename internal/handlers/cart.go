package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/agenticmirror/api/internal/domain"
	"github.com/agenticmirror/api/internal/platform/httpx"
	"github.com/agenticmirror/api/internal/services"
)

// CartHandlers exposes the cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

const maxCartBodySize = 16 * 1024

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemId}", h.updateQuantity)
	r.Delete("/items/{itemId}", h.removeItem)
	r.Post("/coupon", h.applyCoupon)
	r.Delete("/coupon", h.removeCoupon)
}

type cartProductPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"originalPrice,omitempty"`
	Image         string `json:"image"`
	Category      string `json:"category"`
}

type cartItemPayload struct {
	ID        string             `json:"id"`
	ProductID string             `json:"productId"`
	Product   cartProductPayload `json:"product"`
	Quantity  int                `json:"quantity"`
	AddedAt   string             `json:"addedAt"`
}

type cartCouponPayload struct {
	Code      string `json:"code"`
	Type      string `json:"type"`
	Value     int64  `json:"value"`
	MinAmount *int64 `json:"minAmount,omitempty"`
}

type cartTotalsPayload struct {
	ItemCount int   `json:"itemCount"`
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	Discount  int64 `json:"discount"`
	Total     int64 `json:"total"`
}

type cartPayload struct {
	Items         []cartItemPayload  `json:"items"`
	AppliedCoupon *cartCouponPayload `json:"appliedCoupon"`
	Totals        cartTotalsPayload  `json:"totals"`
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type applyCouponResponse struct {
	Cart    cartPayload `json:"cart"`
	Applied bool        `json:"applied"`
}

func buildCartPayload(view services.CartView) cartPayload {
	payload := cartPayload{
		Items: make([]cartItemPayload, 0, len(view.Items)),
		Totals: cartTotalsPayload{
			ItemCount: view.Totals.ItemCount,
			Subtotal:  view.Totals.Subtotal,
			Shipping:  view.Totals.Shipping,
			Discount:  view.Totals.Discount,
			Total:     view.Totals.Total,
		},
	}
	for _, item := range view.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ID:        item.ID,
			ProductID: item.Product.ID,
			Product: cartProductPayload{
				ID:            item.Product.ID,
				Name:          item.Product.Name,
				Brand:         item.Product.Brand,
				Price:         item.Product.Price,
				OriginalPrice: item.Product.OriginalPrice,
				Image:         item.Product.Image,
				Category:      item.Product.Category,
			},
			Quantity: item.Quantity,
			AddedAt:  formatTime(item.AddedAt),
		})
	}
	if coupon := view.AppliedCoupon; coupon != nil {
		payload.AppliedCoupon = &cartCouponPayload{
			Code:      coupon.Code,
			Type:      string(coupon.Kind),
			Value:     coupon.Value,
			MinAmount: coupon.MinAmount,
		}
	}
	return payload
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	view, err := h.carts.Cart(ctx)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	view, err := h.carts.Clear(ctx)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

type addItemRequest struct {
	Product  cartProductPayload `json:"product"`
	Quantity int                `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	view, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		Product: domain.Product{
			ID:            strings.TrimSpace(req.Product.ID),
			Name:          req.Product.Name,
			Brand:         req.Product.Brand,
			Price:         req.Product.Price,
			OriginalPrice: req.Product.OriginalPrice,
			Image:         req.Product.Image,
			Category:      req.Product.Category,
		},
		Quantity: quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, cartResponse{Cart: buildCartPayload(view)})
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateQuantityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	view, err := h.carts.UpdateQuantity(ctx, services.UpdateCartQuantityCommand{
		ItemID:   chi.URLParam(r, "itemId"),
		Quantity: *req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	view, err := h.carts.RemoveItem(ctx, chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req applyCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	view, applied, err := h.carts.ApplyCoupon(ctx, req.Code)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, applyCouponResponse{Cart: buildCartPayload(view), Applied: applied})
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}

	view, err := h.carts.RemoveCoupon(ctx)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}
