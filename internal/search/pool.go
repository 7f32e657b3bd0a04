package search

import (
	"context"
	"fmt"
)

// Pool holds a small fixed number of provider instances. Provider clients
// are expensive to construct and not safe for simultaneous use from
// arbitrary goroutines, so callers check one out per call and must return it
// on every path.
type Pool struct {
	ch chan Provider
}

// NewPool builds size instances via factory. Size below 1 is treated as 1.
func NewPool(size int, factory func() Provider) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{ch: make(chan Provider, size)}
	for i := 0; i < size; i++ {
		p.ch <- factory()
	}
	return p
}

// Acquire blocks until an instance is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (Provider, error) {
	select {
	case prov := <-p.ch:
		return prov, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("provider pool: %w", ctx.Err())
	}
}

// Release returns an instance to the pool. Callers pair it with Acquire via
// defer so timeouts and failures cannot leak instances.
func (p *Pool) Release(prov Provider) {
	if prov == nil {
		return
	}
	select {
	case p.ch <- prov:
	default:
		// Releasing more than was acquired; drop rather than block.
	}
}

// Size reports pool capacity.
func (p *Pool) Size() int { return cap(p.ch) }
