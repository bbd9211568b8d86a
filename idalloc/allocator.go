package idalloc

import (
	"context"

	"github.com/Luismorlan/chirpmux/store"
	"github.com/pkg/errors"
)

// Allocator issues strictly increasing, never zero identifiers. It must be
// safe for concurrent use across goroutines and processes.
type Allocator interface {
	NextID(ctx context.Context) (uint64, error)
}

// CounterAllocator hands out ids from the store's atomic counter, so any number
// of stateless service instances can share it.
type CounterAllocator struct {
	store store.Store
	key   string
}

func NewCounterAllocator(s store.Store, key string) *CounterAllocator {
	return &CounterAllocator{store: s, key: key}
}

// NextID increments the counter once. Store failures are returned as is, the
// caller decides whether to retry.
func (a *CounterAllocator) NextID(ctx context.Context) (uint64, error) {
	v, err := a.store.Incr(ctx, a.key)
	if err != nil {
		return 0, errors.Wrap(err, "fail to allocate id")
	}
	// 0 is reserved for "unset", a non positive counter means it was tampered.
	if v <= 0 {
		return 0, errors.Errorf("counter %s returned non positive id %d", a.key, v)
	}
	return uint64(v), nil
}
