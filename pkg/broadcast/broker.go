package broadcast

import (
	"context"
	"sync"

	"helixrecruit/pkg/domain"
)

// Broker carries sequence updates between server instances so that every
// connected client converges on the same latest sequence. The broadcast is
// deliberately unscoped: all subscribers receive every update regardless of
// which user triggered it.
type Broker interface {
	// Publish sends the sequence to all subscribers. Callers treat failures
	// as best-effort and only log them.
	Publish(ctx context.Context, seq domain.Sequence) error
	// Subscribe invokes fn for every published sequence until ctx is done.
	Subscribe(ctx context.Context, fn func(domain.Sequence)) error
	Close() error
}

// MemoryBroker dispatches updates in-process. It is the default for
// single-instance deployments and tests.
type MemoryBroker struct {
	mu       sync.RWMutex
	handlers []func(domain.Sequence)
}

// NewMemoryBroker builds an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{}
}

func (b *MemoryBroker) Publish(_ context.Context, seq domain.Sequence) error {
	b.mu.RLock()
	handlers := make([]func(domain.Sequence), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(seq)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, fn func(domain.Sequence)) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *MemoryBroker) Close() error { return nil }
