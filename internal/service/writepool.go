package service

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultWriteConcurrency is the store write permit count
const DefaultWriteConcurrency = 10

// WritePool bounds the number of in-flight store writes across all dates
// being ingested. Callers hold one permit per write and never nest.
type WritePool struct {
	sem  *semaphore.Weighted
	size int
}

// NewWritePool creates a pool with n permits. A non-positive n uses the default.
func NewWritePool(n int) *WritePool {
	if n <= 0 {
		n = DefaultWriteConcurrency
	}
	return &WritePool{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size returns the permit count
func (p *WritePool) Size() int {
	return p.size
}

// Do runs fn while holding one permit
func (p *WritePool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}
