package settings

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and early development.
type MemoryRepo struct {
	mu     sync.Mutex
	values map[string]float64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{values: map[string]float64{}}
}

func (r *MemoryRepo) Get(ctx context.Context, key string) (float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *MemoryRepo) Set(ctx context.Context, key string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}
