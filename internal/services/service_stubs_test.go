package services

import (
	"context"
	"errors"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string       { return "repository error stub" }
func (e *repositoryErrorStub) IsNotFound() bool    { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool    { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

type stubSnapshotRepository struct {
	loadFunc  func(ctx context.Context, key string) ([]byte, error)
	saveFunc  func(ctx context.Context, key string, document []byte) error
	closeFunc func(ctx context.Context) error
}

func (s *stubSnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	if s.loadFunc == nil {
		return nil, &repositoryErrorStub{notFound: true}
	}
	return s.loadFunc(ctx, key)
}

func (s *stubSnapshotRepository) Save(ctx context.Context, key string, document []byte) error {
	if s.saveFunc == nil {
		return nil
	}
	return s.saveFunc(ctx, key, document)
}

func (s *stubSnapshotRepository) Close(ctx context.Context) error {
	if s.closeFunc == nil {
		return nil
	}
	return s.closeFunc(ctx)
}

// memorySnapshotRepository backs round-trip tests with a plain map.
type memorySnapshotRepository struct {
	documents map[string][]byte
}

func newMemorySnapshotRepository() *memorySnapshotRepository {
	return &memorySnapshotRepository{documents: map[string][]byte{}}
}

func (m *memorySnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	document, ok := m.documents[key]
	if !ok {
		return nil, &repositoryErrorStub{notFound: true}
	}
	return document, nil
}

func (m *memorySnapshotRepository) Save(ctx context.Context, key string, document []byte) error {
	dup := make([]byte, len(document))
	copy(dup, document)
	m.documents[key] = dup
	return nil
}

func (m *memorySnapshotRepository) Close(ctx context.Context) error { return nil }

var errRepositoryDown = errors.New("repository down")
