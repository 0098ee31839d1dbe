package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/agenticmirror/api/internal/domain"
	"github.com/agenticmirror/api/internal/repositories"
)

// FavoritesStorageKey is the document key the favorites list persists under.
const FavoritesStorageKey = "agenticmirror_favorites"

var (
	errFavoritesRepositoryRequired = errors.New("favorites service: repository is required")
	errFavoritesClockRequired      = errors.New("favorites service: clock is required")
)

// ErrFavoritesInvalidInput indicates the caller supplied invalid input.
var ErrFavoritesInvalidInput = errors.New("favorites service: invalid input")

// ErrFavoritesUnavailable indicates the favorites service cannot fulfil the request due to missing dependencies.
var ErrFavoritesUnavailable = errors.New("favorites service: unavailable")

// Persisted favorites document: a flat array, insertion-ordered. Field names
// are part of the storage contract.
type favoriteDocument struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	ItemID  string    `json:"itemId"`
	AddedAt time.Time `json:"addedAt"`
}

// FavoritesServiceDeps wires the storage dependencies for favorites operations.
type FavoritesServiceDeps struct {
	Repository  repositories.SnapshotRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type favoritesService struct {
	repo   repositories.SnapshotRepository
	newID  func() string
	now    func() time.Time
	logger func(context.Context, string, map[string]any)

	mu      sync.Mutex
	entries []domain.FavoriteEntry
}

// NewFavoritesService constructs a FavoritesService and hydrates its state
// from storage. A missing or undecodable stored document yields an empty
// list; storage failures are logged and the list starts empty.
func NewFavoritesService(ctx context.Context, deps FavoritesServiceDeps) (FavoritesService, error) {
	if deps.Repository == nil {
		return nil, errFavoritesRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errFavoritesClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	service := &favoritesService{
		repo:   deps.Repository,
		newID:  idGen,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}
	service.entries = service.hydrate(ctx)
	return service, nil
}

func (s *favoritesService) hydrate(ctx context.Context) []domain.FavoriteEntry {
	document, err := s.repo.Load(ctx, FavoritesStorageKey)
	if err != nil {
		if !isRepoNotFound(err) {
			s.logger(ctx, "favorites.hydrate_failed", map[string]any{"error": err.Error()})
		}
		return []domain.FavoriteEntry{}
	}

	entries, err := decodeFavorites(document)
	if err != nil {
		s.logger(ctx, "favorites.snapshot_corrupt", map[string]any{"error": err.Error()})
		return []domain.FavoriteEntry{}
	}
	return entries
}

func decodeFavorites(document []byte) ([]domain.FavoriteEntry, error) {
	var docs []favoriteDocument
	if err := json.Unmarshal(document, &docs); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}

	entries := make([]domain.FavoriteEntry, 0, len(docs))
	for _, doc := range docs {
		kind := domain.FavoriteKind(doc.Type)
		if !domain.ValidFavoriteKind(kind) {
			return nil, fmt.Errorf("decode favorites: unknown kind %q", doc.Type)
		}
		entries = append(entries, domain.FavoriteEntry{
			ID:      doc.ID,
			Kind:    kind,
			ItemID:  doc.ItemID,
			AddedAt: doc.AddedAt,
		})
	}
	return entries, nil
}

func encodeFavorites(entries []domain.FavoriteEntry) ([]byte, error) {
	docs := make([]favoriteDocument, 0, len(entries))
	for _, entry := range entries {
		docs = append(docs, favoriteDocument{
			ID:      entry.ID,
			Type:    string(entry.Kind),
			ItemID:  entry.ItemID,
			AddedAt: entry.AddedAt.UTC(),
		})
	}
	return json.Marshal(docs)
}

func (s *favoritesService) persist(ctx context.Context) {
	document, err := encodeFavorites(s.entries)
	if err != nil {
		s.logger(ctx, "favorites.persist_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.repo.Save(ctx, FavoritesStorageKey, document); err != nil {
		s.logger(ctx, "favorites.persist_failed", map[string]any{"error": err.Error()})
	}
}

func (s *favoritesService) indexOf(kind domain.FavoriteKind, itemID string) int {
	for i, entry := range s.entries {
		if entry.Kind == kind && entry.ItemID == itemID {
			return i
		}
	}
	return -1
}

func validateFavoriteRef(kind domain.FavoriteKind, itemID string) (domain.FavoriteKind, string, error) {
	if !domain.ValidFavoriteKind(kind) {
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrFavoritesInvalidInput, kind)
	}
	trimmed := strings.TrimSpace(itemID)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: item id is required", ErrFavoritesInvalidInput)
	}
	return kind, trimmed, nil
}

// List returns all favorites in insertion order.
func (s *favoritesService) List(ctx context.Context) ([]domain.FavoriteEntry, error) {
	if s == nil || s.repo == nil {
		return nil, ErrFavoritesUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FavoriteEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// ListByKind returns the favorites of the given kind in insertion order.
func (s *favoritesService) ListByKind(ctx context.Context, kind domain.FavoriteKind) ([]domain.FavoriteEntry, error) {
	if s == nil || s.repo == nil {
		return nil, ErrFavoritesUnavailable
	}
	if !domain.ValidFavoriteKind(kind) {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrFavoritesInvalidInput, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.FavoriteEntry, 0)
	for _, entry := range s.entries {
		if entry.Kind == kind {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Add marks (kind, item) as a favorite. Adding an existing favorite returns
// the existing entry unchanged.
func (s *favoritesService) Add(ctx context.Context, cmd AddFavoriteCommand) (domain.FavoriteEntry, error) {
	if s == nil || s.repo == nil {
		return domain.FavoriteEntry{}, ErrFavoritesUnavailable
	}

	kind, itemID, err := validateFavoriteRef(cmd.Kind, cmd.ItemID)
	if err != nil {
		return domain.FavoriteEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(kind, itemID); idx >= 0 {
		return s.entries[idx], nil
	}

	entry := domain.FavoriteEntry{
		ID:      s.newID(),
		Kind:    kind,
		ItemID:  itemID,
		AddedAt: s.now(),
	}
	s.entries = append(s.entries, entry)
	s.persist(ctx)
	return entry, nil
}

// Remove deletes the entry with the given id. Unknown ids are a no-op.
func (s *favoritesService) Remove(ctx context.Context, entryID string) error {
	if s == nil || s.repo == nil {
		return ErrFavoritesUnavailable
	}

	trimmed := strings.TrimSpace(entryID)
	if trimmed == "" {
		return fmt.Errorf("%w: entry id is required", ErrFavoritesInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.entries {
		if entry.ID == trimmed {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return nil
}

// Toggle flips the favorite state of (kind, item) and reports whether the
// item is a favorite afterwards.
func (s *favoritesService) Toggle(ctx context.Context, cmd AddFavoriteCommand) (bool, error) {
	if s == nil || s.repo == nil {
		return false, ErrFavoritesUnavailable
	}

	kind, itemID, err := validateFavoriteRef(cmd.Kind, cmd.ItemID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(kind, itemID); idx >= 0 {
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
		s.persist(ctx)
		return false, nil
	}

	s.entries = append(s.entries, domain.FavoriteEntry{
		ID:      s.newID(),
		Kind:    kind,
		ItemID:  itemID,
		AddedAt: s.now(),
	})
	s.persist(ctx)
	return true, nil
}

// IsFavorite reports whether (kind, item) is currently a favorite.
func (s *favoritesService) IsFavorite(ctx context.Context, kind domain.FavoriteKind, itemID string) (bool, error) {
	if s == nil || s.repo == nil {
		return false, ErrFavoritesUnavailable
	}

	kind, itemID, err := validateFavoriteRef(kind, itemID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(kind, itemID) >= 0, nil
}

// FavoriteID returns the entry id for (kind, item) and whether it exists.
func (s *favoritesService) FavoriteID(ctx context.Context, kind domain.FavoriteKind, itemID string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, ErrFavoritesUnavailable
	}

	kind, itemID, err := validateFavoriteRef(kind, itemID)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(kind, itemID)
	if idx < 0 {
		return "", false, nil
	}
	return s.entries[idx].ID, true, nil
}

// Count returns the number of favorites.
func (s *favoritesService) Count(ctx context.Context) (int, error) {
	if s == nil || s.repo == nil {
		return 0, ErrFavoritesUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

// Clear removes all favorites.
func (s *favoritesService) Clear(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return ErrFavoritesUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return nil
	}
	s.entries = []domain.FavoriteEntry{}
	s.persist(ctx)
	return nil
}

// Flush writes the current list to storage, surfacing any failure.
func (s *favoritesService) Flush(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return ErrFavoritesUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	document, err := encodeFavorites(s.entries)
	if err != nil {
		return fmt.Errorf("favorites service: flush: %w", err)
	}
	if err := s.repo.Save(ctx, FavoritesStorageKey, document); err != nil {
		return fmt.Errorf("favorites service: flush: %w", err)
	}
	return nil
}
