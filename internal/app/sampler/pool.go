package sampler

import (
	"errors"
	"sync"

	"github.com/H6688chen/jmeter/internal/ports"
)

// ClientPool maps a sampler identity to its live subscription client so
// repeated sample calls reuse one connection, and tracks every client it has
// seen so the run-end hook can close them all. The pool has an explicit
// lifecycle: created at run start, torn down with ClearAll at run end. All
// mutation is synchronized internally; callers never lock.
type ClientPool struct {
	mu      sync.Mutex
	byID    map[string]ports.Subscriber
	clients []ports.Subscriber
}

func NewClientPool() *ClientPool {
	return &ClientPool{byID: make(map[string]ports.Subscriber)}
}

// Get returns the client keyed by the sampler identity, or nil when none is
// registered.
func (p *ClientPool) Get(samplerID string) ports.Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[samplerID]
}

// Put keys the client by the sampler identity. At most one client exists per
// identity; a second Put for the same identity replaces the mapping.
func (p *ClientPool) Put(samplerID string, c ports.Subscriber) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[samplerID] = c
}

// Register tracks a client for bulk close without keying it by identity.
func (p *ClientPool) Register(c ports.Subscriber) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = append(p.clients, c)
}

// Len reports how many clients are tracked for bulk close.
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// ClearAll closes and forgets every tracked client. This is the only
// teardown path; individual sample calls never close clients.
func (p *ClientPool) ClearAll() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = nil
	p.byID = make(map[string]ports.Subscriber)
	p.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
