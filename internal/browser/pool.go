// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

// Pool manages a bounded set of reusable browser drivers.
type Pool struct {
	drivers     chan Driver
	cfg         *config.BrowserConfig
	maxSize     int
	currentSize int
	mu          sync.RWMutex
	closed      bool
	newDriver   func(*config.BrowserConfig) (Driver, error)
}

// NewPool creates a driver pool holding at most maxSize sessions.
func NewPool(cfg *config.BrowserConfig, maxSize int) *Pool {
	if cfg == nil {
		cfg = defaultConfig()
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Pool{
		drivers: make(chan Driver, maxSize),
		cfg:     cfg,
		maxSize: maxSize,
		newDriver: func(c *config.BrowserConfig) (Driver, error) {
			return NewChromeDriver(c)
		},
	}
}

// Get returns an idle driver, creating one while under the limit, or
// waits for a return. Waiting is bounded by ctx and a hard cap.
func (p *Pool) Get(ctx context.Context) (Driver, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("browser pool is closed")
	}
	p.mu.RUnlock()

	select {
	case d := <-p.drivers:
		return d, nil
	default:
	}

	p.mu.Lock()
	if p.currentSize < p.maxSize {
		p.currentSize++
		p.mu.Unlock()

		d, err := p.newDriver(p.cfg)
		if err != nil {
			p.mu.Lock()
			p.currentSize--
			p.mu.Unlock()
			return nil, fmt.Errorf("failed to create browser: %w", err)
		}
		return d, nil
	}
	p.mu.Unlock()

	select {
	case d := <-p.drivers:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timeout waiting for available browser")
	}
}

// Put returns a driver to the pool, closing it when the pool is full or
// already shut down.
func (p *Pool) Put(d Driver) {
	if d == nil {
		return
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		d.Close()
		return
	}

	select {
	case p.drivers <- d:
	default:
		d.Close()
		p.mu.Lock()
		p.currentSize--
		p.mu.Unlock()
	}
}

// Size reports how many drivers are currently idle.
func (p *Pool) Size() int {
	return len(p.drivers)
}

// TotalSize reports how many drivers the pool has created and not closed.
func (p *Pool) TotalSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentSize
}

// Close shuts the pool down and closes every idle driver.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.drivers)
	for d := range p.drivers {
		d.Close()
	}

	p.mu.Lock()
	p.currentSize = 0
	p.mu.Unlock()
	return nil
}
