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

// FavoriteHandlers exposes the favorites endpoints.
type FavoriteHandlers struct {
	favorites services.FavoritesService
}

const maxFavoriteBodySize = 4 * 1024

// NewFavoriteHandlers constructs handlers over the favorites service.
func NewFavoriteHandlers(favorites services.FavoritesService) *FavoriteHandlers {
	return &FavoriteHandlers{favorites: favorites}
}

// Routes wires the /favorites endpoints onto the provided router.
func (h *FavoriteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listFavorites)
	r.Post("/", h.addFavorite)
	r.Delete("/", h.clearFavorites)
	r.Post("/toggle", h.toggleFavorite)
	r.Get("/{type}/{itemId}", h.favoriteStatus)
	r.Delete("/{entryId}", h.removeFavorite)
}

type favoritePayload struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	ItemID  string `json:"itemId"`
	AddedAt string `json:"addedAt"`
}

type favoritesResponse struct {
	Favorites []favoritePayload `json:"favorites"`
	Count     int               `json:"count"`
}

func buildFavoritePayload(entry domain.FavoriteEntry) favoritePayload {
	return favoritePayload{
		ID:      entry.ID,
		Type:    string(entry.Kind),
		ItemID:  entry.ItemID,
		AddedAt: formatTime(entry.AddedAt),
	}
}

func (h *FavoriteHandlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var (
		entries []domain.FavoriteEntry
		err     error
	)
	if kind := strings.TrimSpace(r.URL.Query().Get("type")); kind != "" {
		entries, err = h.favorites.ListByKind(ctx, domain.FavoriteKind(kind))
	} else {
		entries, err = h.favorites.List(ctx)
	}
	if err != nil {
		h.writeFavoritesError(ctx, w, err)
		return
	}

	payload := favoritesResponse{Favorites: make([]favoritePayload, 0, len(entries)), Count: len(entries)}
	for _, entry := range entries {
		payload.Favorites = append(payload.Favorites, buildFavoritePayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type favoriteRequest struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId"`
}

func (h *FavoriteHandlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
		return
	}

	req, ok := h.readFavoriteRequest(ctx, w, r)
	if !ok {
		return
	}

	entry, err := h.favorites.Add(ctx, services.AddFavoriteCommand{
		Kind:   domain.FavoriteKind(req.Type),
		ItemID: req.ItemID,
	})
	if err != nil {
		h.writeFavoritesError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildFavoritePayload(entry))
}

type toggleFavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

func (h *FavoriteHandlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
		return
	}

	req, ok := h.readFavoriteRequest(ctx, w, r)
	if !ok {
		return
	}

	favorited, err := h.favorites.Toggle(ctx, services.AddFavoriteCommand{
		Kind:   domain.FavoriteKind(req.Type),
		ItemID: req.ItemID,
	})
	if err != nil {
		h.writeFavoritesError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toggleFavoriteResponse{Favorited: favorited})
}

type favoriteStatusResponse struct {
	Favorited bool   `json:"favorited"`
	ID        string `json:"id,omitempty"`
}

func (h *FavoriteHandlers) favoriteStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
		return
	}

	id, ok, err := h.favorites.FavoriteID(ctx, domain.FavoriteKind(chi.URLParam(r, "type")), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeFavoritesError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, favoriteStatusResponse{Favorited: ok, ID: id})
}

func (h *FavoriteHandlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
		return
	}

	err := h.favorites.Remove(ctx, chi.URLParam(r, "entryId"))
	if err != nil {
		h.writeFavoritesError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoriteHandlers) clearFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.favorites.Clear(ctx); err != nil {
		h.writeFavoritesError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoriteHandlers) readFavoriteRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (favoriteRequest, bool) {
	var req favoriteRequest

	body, err := readLimitedBody(r, maxFavoriteBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return req, false
	}
	return req, true
}

func (h *FavoriteHandlers) writeFavoritesError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrFavoritesInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrFavoritesUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("favorites_service_unavailable", "favorites service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("favorites_error", "favorites operation failed", http.StatusInternalServerError))
	}
}
