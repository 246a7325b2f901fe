package auth

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many key derivations run at once, so a burst of joins to
// hashed rooms cannot occupy every CPU.
type Pool struct {
	sem *semaphore.Weighted
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Do runs fn once a slot is free. It returns ctx.Err() if ctx ends first.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	fn()
	return nil
}
