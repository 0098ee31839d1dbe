package repositories

import "context"

// SnapshotRepository is the durable best-effort document store shared by the
// cart and favorites stores. Each store owns a fixed namespace key and
// persists one JSON document under it, replaced wholesale on every save.
type SnapshotRepository interface {
	// Load returns the document stored under key. A missing key yields a
	// RepositoryError whose IsNotFound reports true.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save overwrites the document stored under key.
	Save(ctx context.Context, key string, document []byte) error
	Close(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}
