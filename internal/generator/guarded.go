package generator

import (
	"context"

	"codeberg.org/snonux/linkmemory/internal/guard"
)

// GuardedBackend runs another backend behind a rate limiter and breaker
type GuardedBackend struct {
	next  Backend
	guard *guard.Guard
}

// NewGuardedBackend wraps next with the given guard options
func NewGuardedBackend(next Backend, opts guard.Options) *GuardedBackend {
	return &GuardedBackend{
		next:  next,
		guard: guard.New(next.Name()+"-cards", opts),
	}
}

// Generate forwards to the wrapped backend unless the breaker is open
func (b *GuardedBackend) Generate(ctx context.Context, req *Request) ([]byte, error) {
	res, err := b.guard.Do(ctx, func() (interface{}, error) {
		data, err := b.next.Generate(ctx, req)
		return data, err
	})
	if err != nil {
		return nil, err
	}
	data, _ := res.([]byte)
	return data, nil
}

// Name returns the wrapped backend's name
func (b *GuardedBackend) Name() string {
	return b.next.Name()
}
