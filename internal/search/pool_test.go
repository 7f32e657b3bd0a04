package search

import (
	"context"
	"testing"
	"time"
)

type nullProvider struct{ id int }

func (n *nullProvider) Search(context.Context, string, int) ([]Result, error) { return nil, nil }
func (n *nullProvider) News(context.Context, string, int) ([]Result, error)   { return nil, nil }
func (n *nullProvider) Name() string                                          { return "null" }

func TestPool_AcquireRelease(t *testing.T) {
	next := 0
	p := NewPool(2, func() Provider {
		next++
		return &nullProvider{id: next}
	})
	if p.Size() != 2 {
		t.Fatalf("expected pool size 2, got %d", p.Size())
	}

	a, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	b, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Pool exhausted: acquire must block until a release.
	done := make(chan Provider)
	go func() {
		c, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("blocked acquire: %v", err)
		}
		done <- c
	}()
	select {
	case <-done:
		t.Fatalf("acquire succeeded on an empty pool")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(a)
	select {
	case c := <-done:
		if c != a {
			t.Fatalf("expected the released instance back")
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked acquire never woke after release")
	}
	p.Release(b)
}

func TestPool_AcquireHonorsContext(t *testing.T) {
	p := NewPool(1, func() Provider { return &nullProvider{} })
	held, _ := p.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); err == nil {
		t.Fatalf("expected context error from exhausted pool")
	}

	// The timed-out caller must not have consumed capacity.
	p.Release(held)
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("pool leaked an instance: %v", err)
	}
}
