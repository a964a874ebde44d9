package toolmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ManagerOptions configure a Manager instance.
type ManagerOptions struct {
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Observer is handed to clients created through RegisterConfig. Nil
	// disables telemetry.
	Observer *Observer
	// MaxConnections bounds the underlying pool. Defaults to 10.
	MaxConnections int
	// HealthMaxAge is the pool's health staleness tolerance. Defaults to 30s.
	HealthMaxAge time.Duration
}

func (o *ManagerOptions) normalized() ManagerOptions {
	var opts ManagerOptions
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Manager is the facade application code talks to. It maps service ids to
// client factories, routes tool calls to pooled clients, aggregates health
// snapshots, and owns the shared tool registry. Construct one explicitly and
// pass it where it is needed; there is no process-wide instance.
type Manager struct {
	opts     ManagerOptions
	logger   *slog.Logger
	pool     *Pool
	registry *Registry

	mu         sync.Mutex
	factories  map[string]ClientFactory
	registered map[string]*Client
	shutdown   bool
}

// NewManager builds a Manager with an empty service table.
func NewManager(opts *ManagerOptions) *Manager {
	options := opts.normalized()
	return &Manager{
		opts:   options,
		logger: options.Logger,
		pool: NewPool(&PoolOptions{
			MaxConnections: options.MaxConnections,
			HealthMaxAge:   options.HealthMaxAge,
			Logger:         options.Logger,
		}),
		registry:   NewRegistry(options.Logger),
		factories:  make(map[string]ClientFactory),
		registered: make(map[string]*Client),
	}
}

// RegisterService stores a factory for a service id. No connection is made
// until the service is first used. Re-registering replaces the factory.
func (m *Manager) RegisterService(serviceID string, factory ClientFactory) error {
	if serviceID == "" {
		return fmt.Errorf("toolmgr: service id is required")
	}
	if factory == nil {
		return fmt.Errorf("toolmgr: missing factory for %q", serviceID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return fmt.Errorf("toolmgr: manager is shut down")
	}
	m.factories[serviceID] = factory
	return nil
}

// RegisterConfig registers a service whose client is built from a
// ServiceConfig with the manager's logger and observer.
func (m *Manager) RegisterConfig(serviceID string, cfg ServiceConfig) error {
	if cfg == nil {
		return fmt.Errorf("toolmgr: missing configuration for %q", serviceID)
	}
	return m.RegisterService(serviceID, func(ctx context.Context) (*Client, error) {
		client, err := NewClient(serviceID, cfg, &ClientOptions{
			Logger:   m.logger,
			Observer: m.opts.Observer,
		})
		if err != nil {
			return nil, err
		}
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	})
}

// Services returns the registered service ids, sorted.
func (m *Manager) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.factories))
	for id := range m.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Registry exposes the shared tool registry for read access.
func (m *Manager) Registry() *Registry { return m.registry }

// Client resolves a live client for the service through the pool, creating
// one on first use, and registers its tools into the registry. Tools are
// re-registered only when the pool hands back a different client instance
// than the one last registered.
func (m *Manager) Client(ctx context.Context, serviceID string) (*Client, error) {
	m.mu.Lock()
	factory, ok := m.factories[serviceID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("toolmgr: unknown service %q", serviceID)
	}

	client, err := m.pool.Get(ctx, serviceID, factory)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	fresh := m.registered[serviceID] != client
	if fresh {
		m.registered[serviceID] = client
	}
	m.mu.Unlock()
	if fresh {
		m.registry.RegisterService(serviceID, client)
	}
	return client, nil
}

// CallTool routes one tool invocation to the owning service's client. Typed
// errors from the client propagate unchanged so callers can branch on kind.
func (m *Manager) CallTool(ctx context.Context, service, tool string, args map[string]any) (map[string]any, error) {
	client, err := m.Client(ctx, service)
	if err != nil {
		return nil, err
	}
	return client.CallTool(ctx, tool, args)
}

// DiscoverTools forces connection and registration for every registered
// service and returns tools grouped by service id. Per-service failures are
// logged and yield an empty list without aborting the pass.
func (m *Manager) DiscoverTools(ctx context.Context) map[string][]ToolInfo {
	result := make(map[string][]ToolInfo)
	for _, id := range m.Services() {
		client, err := m.Client(ctx, id)
		if err != nil {
			m.logger.Warn("tool discovery failed", "service", id, "error", err)
			result[id] = []ToolInfo{}
			continue
		}
		result[id] = client.ToolList()
	}
	return result
}

// ServiceHealth returns a health snapshot for one service. A resolution
// failure is converted into a synthetic unhealthy status rather than an
// error.
func (m *Manager) ServiceHealth(ctx context.Context, serviceID string) HealthStatus {
	client, err := m.Client(ctx, serviceID)
	if err != nil {
		return HealthStatus{
			Healthy:          false,
			LastCheck:        time.Now(),
			ErrorMessage:     err.Error(),
			ConnectionStatus: StateFailed,
		}
	}
	return client.CheckHealth(ctx)
}

// AllServiceHealth returns health snapshots for every registered service.
func (m *Manager) AllServiceHealth(ctx context.Context) map[string]HealthStatus {
	result := make(map[string]HealthStatus)
	for _, id := range m.Services() {
		result[id] = m.ServiceHealth(ctx, id)
	}
	return result
}

// Diagnostics returns the cumulative counters for a service's pooled client
// without creating a connection; ok is false when none is pooled.
func (m *Manager) Diagnostics(serviceID string) (DiagnosticInfo, bool) {
	client := m.pool.Peek(serviceID)
	if client == nil {
		return DiagnosticInfo{}, false
	}
	return client.Diagnostics(), true
}

// Shutdown closes the pool and clears all registries. A fresh Manager can be
// constructed and re-registered afterwards; no process-wide state survives.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.shutdown = true
	m.factories = make(map[string]ClientFactory)
	m.registered = make(map[string]*Client)
	m.mu.Unlock()

	m.pool.CloseAll(ctx)
	m.registry.Clear()
}
