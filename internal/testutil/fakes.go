package testutil

import (
	"context"
	"fmt"
	"sync"

	"model-pipeline/internal/core/domain"
)

// FakeArtifactStore keeps artifacts in memory, addressed by mem:// URIs.
type FakeArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewFakeArtifactStore() *FakeArtifactStore {
	return &FakeArtifactStore{objects: make(map[string][]byte)}
}

func (s *FakeArtifactStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri := "mem://" + key
	s.objects[uri] = data
	return uri, nil
}

func (s *FakeArtifactStore) Get(ctx context.Context, uri string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, uri)
	}
	return data, nil
}

func (s *FakeArtifactStore) Exists(ctx context.Context, uri string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[uri]
	return ok, nil
}

// FakeAliasRepo implements the alias compare-and-swap contract in memory.
// It is safe for concurrent use, so tests can race promotions against it.
type FakeAliasRepo struct {
	mu       sync.Mutex
	bindings map[string]*domain.Alias
}

func NewFakeAliasRepo() *FakeAliasRepo {
	return &FakeAliasRepo{bindings: make(map[string]*domain.Alias)}
}

func aliasKey(modelName, alias string) string {
	return modelName + "/" + alias
}

func (r *FakeAliasRepo) Get(ctx context.Context, modelName, alias string) (*domain.Alias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.bindings[aliasKey(modelName, alias)]
	if !ok {
		return nil, domain.ErrAliasNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *FakeAliasRepo) ListByModel(ctx context.Context, modelName string) ([]*domain.Alias, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Alias
	for _, a := range r.bindings {
		if a.ModelName == modelName {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *FakeAliasRepo) Bind(ctx context.Context, a *domain.Alias, expected *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := aliasKey(a.ModelName, a.Alias)
	current, bound := r.bindings[key]

	if expected != nil {
		switch {
		case *expected == 0 && bound:
			return domain.ErrRegistryConflict
		case *expected != 0 && (!bound || current.Version != *expected):
			return domain.ErrRegistryConflict
		}
	}

	copied := *a
	r.bindings[key] = &copied
	return nil
}

func (r *FakeAliasRepo) Remove(ctx context.Context, modelName, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := aliasKey(modelName, alias)
	if _, ok := r.bindings[key]; !ok {
		return domain.ErrAliasNotFound
	}
	delete(r.bindings, key)
	return nil
}
