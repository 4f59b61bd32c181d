// internal/browser/browser_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

type stubDriver struct {
	id     int
	closed bool
}

func (s *stubDriver) Navigate(ctx context.Context, url string) error { return nil }

func (s *stubDriver) FetchHTML(ctx context.Context, timeout time.Duration) (string, error) {
	return "<html></html>", nil
}

func (s *stubDriver) QueryLiveDOM(ctx context.Context, sample string, maxLengthRatio float64) ([]LiveElement, error) {
	return nil, nil
}

func (s *stubDriver) Close() error {
	s.closed = true
	return nil
}

func newStubPool(maxSize int) (*Pool, *int) {
	created := 0
	p := NewPool(defaultConfig(), maxSize)
	p.newDriver = func(*config.BrowserConfig) (Driver, error) {
		created++
		return &stubDriver{id: created}, nil
	}
	return p, &created
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if !cfg.Headless {
		t.Error("expected headless mode by default")
	}
	if cfg.ViewportWidth != 1920 {
		t.Errorf("ViewportWidth = %d, want 1920", cfg.ViewportWidth)
	}
	if cfg.ViewportHeight != 1080 {
		t.Errorf("ViewportHeight = %d, want 1080", cfg.ViewportHeight)
	}
	if !cfg.DisableImages {
		t.Error("expected images disabled by default")
	}
}

func TestPool_CreatesUnderLimit(t *testing.T) {
	pool, created := newStubPool(2)
	defer pool.Close()

	ctx := context.Background()

	d1, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	d2, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if *created != 2 {
		t.Errorf("created = %d, want 2", *created)
	}
	if pool.TotalSize() != 2 {
		t.Errorf("TotalSize = %d, want 2", pool.TotalSize())
	}

	pool.Put(d1)
	pool.Put(d2)
	if pool.Size() != 2 {
		t.Errorf("Size = %d, want 2", pool.Size())
	}

	// Reuse rather than create.
	if _, err := pool.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *created != 2 {
		t.Errorf("created = %d after reuse, want 2", *created)
	}
}

func TestPool_PutOverflowCloses(t *testing.T) {
	pool, _ := newStubPool(1)
	defer pool.Close()

	d1, err := pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	pool.Put(d1)

	extra := &stubDriver{}
	pool.Put(extra)
	if !extra.closed {
		t.Error("expected overflow driver to be closed")
	}
}

func TestPool_GetBlocksUntilCancel(t *testing.T) {
	pool, _ := newStubPool(1)
	defer pool.Close()

	if _, err := pool.Get(context.Background()); err != nil {
		t.Fatalf("Get: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Get(ctx); err == nil {
		t.Fatal("expected error when pool is exhausted and context cancelled")
	}
}

func TestPool_Close(t *testing.T) {
	pool, _ := newStubPool(2)

	d, err := pool.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stub := d.(*stubDriver)
	pool.Put(d)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stub.closed {
		t.Error("expected idle driver to be closed on pool shutdown")
	}
	if _, err := pool.Get(context.Background()); err == nil {
		t.Error("expected error from Get after Close")
	}

	// Returning a driver after close must close it instead of leaking.
	late := &stubDriver{}
	pool.Put(late)
	if !late.closed {
		t.Error("expected late return to be closed")
	}
}
