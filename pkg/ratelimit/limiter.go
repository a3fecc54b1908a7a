package ratelimit

import (
	"context"
)

// ConcurrencyLimiter caps in-flight calls per named collaborator using
// counting semaphores. Names without a configured limit pass through.
type ConcurrencyLimiter struct {
	sems map[string]chan struct{}
}

func NewConcurrencyLimiter(limits map[string]int) *ConcurrencyLimiter {
	sems := make(map[string]chan struct{}, len(limits))
	for name, limit := range limits {
		if limit > 0 {
			sems[name] = make(chan struct{}, limit)
		}
	}
	return &ConcurrencyLimiter{sems: sems}
}

// Acquire blocks until a slot for name is available or ctx is done.
// The returned release function must be called exactly once.
func (l *ConcurrencyLimiter) Acquire(ctx context.Context, name string) (func(), error) {
	sem, ok := l.sems[name]
	if !ok {
		return func() {}, nil
	}

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports the current number of held slots for name.
func (l *ConcurrencyLimiter) InFlight(name string) int {
	if sem, ok := l.sems[name]; ok {
		return len(sem)
	}
	return 0
}
