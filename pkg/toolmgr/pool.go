package toolmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ClientFactory builds and connects a Client for a service on demand.
type ClientFactory func(ctx context.Context) (*Client, error)

// PoolOptions configure a Pool.
type PoolOptions struct {
	// MaxConnections bounds the number of live clients. Defaults to 10.
	MaxConnections int
	// HealthMaxAge bounds how old a cached health snapshot may be before the
	// pool forces a fresh probe when deciding whether to reuse a client.
	// Defaults to 30s.
	HealthMaxAge time.Duration
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o *PoolOptions) normalized() PoolOptions {
	var opts PoolOptions
	if o != nil {
		opts = *o
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 10
	}
	if opts.HealthMaxAge <= 0 {
		opts.HealthMaxAge = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

type poolEntry struct {
	client *Client
	usage  int64
}

// Pool is a bounded map of service id to live Client. Healthy clients are
// reused; unhealthy ones are replaced; the least-used entry is evicted when
// the pool is full. All mutations are serialized behind one mutex so
// concurrent Get calls for different services cannot race.
type Pool struct {
	opts PoolOptions

	mu      sync.Mutex
	entries map[string]*poolEntry
	closed  bool
}

// NewPool builds an empty pool.
func NewPool(opts *PoolOptions) *Pool {
	return &Pool{
		opts:    opts.normalized(),
		entries: make(map[string]*poolEntry),
	}
}

// Get returns a live Client for the service, creating one through the factory
// when none exists or the existing one probes unhealthy. Creating may first
// evict the entry with the lowest usage count if the pool is at capacity.
func (p *Pool) Get(ctx context.Context, serviceID string, factory ClientFactory) (*Client, error) {
	if factory == nil {
		return nil, fmt.Errorf("toolmgr: missing factory for %q", serviceID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("toolmgr: pool is closed")
	}

	if entry, ok := p.entries[serviceID]; ok {
		health := entry.client.HealthWithin(ctx, p.opts.HealthMaxAge)
		if health.Healthy {
			entry.usage++
			return entry.client, nil
		}
		p.opts.Logger.Warn("replacing unhealthy pooled client",
			"service", serviceID, "error", health.ErrorMessage)
		delete(p.entries, serviceID)
		if err := entry.client.Disconnect(ctx); err != nil {
			p.opts.Logger.Warn("disconnect failed", "service", serviceID, "error", err)
		}
	}

	if len(p.entries) >= p.opts.MaxConnections {
		p.evictLocked(ctx)
	}

	client, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	p.entries[serviceID] = &poolEntry{client: client, usage: 1}
	return client, nil
}

// evictLocked removes the entry with the smallest usage count, breaking ties
// arbitrarily.
func (p *Pool) evictLocked(ctx context.Context) {
	var victim string
	var victimEntry *poolEntry
	for id, entry := range p.entries {
		if victimEntry == nil || entry.usage < victimEntry.usage {
			victim = id
			victimEntry = entry
		}
	}
	if victimEntry == nil {
		return
	}
	p.opts.Logger.Info("evicting pooled client", "service", victim, "usage", victimEntry.usage)
	delete(p.entries, victim)
	if err := victimEntry.client.Disconnect(ctx); err != nil {
		p.opts.Logger.Warn("disconnect failed", "service", victim, "error", err)
	}
}

// Peek returns the pooled client for a service without affecting usage
// counters or health, or nil when none is pooled.
func (p *Pool) Peek(serviceID string) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[serviceID]; ok {
		return entry.client
	}
	return nil
}

// Services returns the ids currently held by the pool, sorted.
func (p *Pool) Services() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// CloseAll disconnects and drops every entry. It is safe to call during
// shutdown even while entries are mid-reconnect; Disconnect is terminal and
// swallows cleanup failures.
func (p *Pool) CloseAll(ctx context.Context) {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.closed = true
	p.mu.Unlock()

	for id, entry := range entries {
		if err := entry.client.Disconnect(ctx); err != nil {
			p.opts.Logger.Warn("disconnect failed", "service", id, "error", err)
		}
	}
}
