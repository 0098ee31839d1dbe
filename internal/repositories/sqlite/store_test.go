package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agenticmirror/api/internal/repositories"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := []byte(`{"items":[],"appliedCoupon":null}`)
	if err := store.Save(ctx, "agenticmirror_cart", want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load(ctx, "agenticmirror_cart")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("Load returned %s, want %s", got, want)
	}
}

func TestStoreLoadMissingKeyReportsNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load(context.Background(), "agenticmirror_favorites")
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok {
		t.Fatalf("expected RepositoryError, got %T", err)
	}
	if !repoErr.IsNotFound() {
		t.Fatalf("expected IsNotFound to report true, got %v", err)
	}
	if repoErr.IsUnavailable() {
		t.Fatal("missing key should not report unavailable")
	}
}

func TestStoreSaveOverwritesExistingDocument(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "agenticmirror_cart", []byte(`"first"`)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Save(ctx, "agenticmirror_cart", []byte(`"second"`)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load(ctx, "agenticmirror_cart")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if string(got) != `"second"` {
		t.Fatalf("Load returned %s, want %q", got, "second")
	}
}

func TestStoreSaveRejectsEmptyKey(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save(context.Background(), "", []byte(`{}`)); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestStoreReopenPreservesDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Save(ctx, "agenticmirror_cart", []byte(`{"items":[]}`)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close(ctx)

	got, err := reopened.Load(ctx, "agenticmirror_cart")
	if err != nil {
		t.Fatalf("Load after reopen returned error: %v", err)
	}
	if string(got) != `{"items":[]}` {
		t.Fatalf("Load after reopen returned %s", got)
	}
}
