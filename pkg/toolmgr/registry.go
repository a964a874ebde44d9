package toolmgr

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ToolSource yields a service's current tool snapshot. *Client implements it;
// tests can substitute fixtures.
type ToolSource interface {
	ToolList() []ToolInfo
}

// Registry aggregates tool metadata across all connected services into a
// single namespace. The first service to register a name keeps it; later
// registrations of the same name by a different service are stored under
// "{service}_{name}" instead, and the collision is logged.
type Registry struct {
	logger *slog.Logger

	mu           sync.RWMutex
	tools        map[string]ToolInfo
	serviceTools map[string][]string
}

// NewRegistry builds an empty registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:       logger,
		tools:        make(map[string]ToolInfo),
		serviceTools: make(map[string][]string),
	}
}

// RegisterService inserts every tool the source currently exposes.
// Registration is idempotent per service: a re-registration wholly replaces
// the service's prior tool set, including any collision-prefixed names.
func (r *Registry) RegisterService(serviceID string, source ToolSource) {
	tools := source.ToolList()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.serviceTools[serviceID] {
		delete(r.tools, name)
	}
	registered := make([]string, 0, len(tools))
	for _, info := range tools {
		name := info.Name
		if existing, ok := r.tools[name]; ok && existing.Service != serviceID {
			prefixed := fmt.Sprintf("%s_%s", serviceID, info.Name)
			if clash, taken := r.tools[prefixed]; taken {
				// The prefixed name is occupied too; the holder keeps it.
				r.logger.Warn("tool name collision on prefixed name, skipping tool",
					"tool", info.Name, "held_by", existing.Service,
					"service", serviceID, "prefixed", prefixed,
					"prefixed_held_by", clash.Service)
				continue
			}
			r.logger.Warn("tool name collision",
				"tool", info.Name, "held_by", existing.Service,
				"service", serviceID, "registered_as", prefixed)
			name = prefixed
		}
		info.Service = serviceID
		r.tools[name] = info
		registered = append(registered, name)
	}
	r.serviceTools[serviceID] = registered
}

// UnregisterService drops a service's tool set.
func (r *Registry) UnregisterService(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.serviceTools[serviceID] {
		delete(r.tools, name)
	}
	delete(r.serviceTools, serviceID)
}

// FindTool resolves a registered name, collision-prefixed or bare.
func (r *Registry) FindTool(name string) (ToolInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tools[name]
	return info, ok
}

// ToolsByService returns the registered tools of one service, sorted by
// registered name.
func (r *Registry) ToolsByService(serviceID string) []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.serviceTools[serviceID]...)
	sort.Strings(names)
	tools := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		if info, ok := r.tools[name]; ok {
			tools = append(tools, info)
		}
	}
	return tools
}

// AllTools returns every registered tool sorted by registered name.
func (r *Registry) AllTools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	tools := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Services returns the ids of all registered services, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.serviceTools))
	for id := range r.serviceTools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ToolCountByService returns the number of registered tools per service.
func (r *Registry) ToolCountByService() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int, len(r.serviceTools))
	for id, names := range r.serviceTools {
		counts[id] = len(names)
	}
	return counts
}

// Clear drops every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]ToolInfo)
	r.serviceTools = make(map[string][]string)
}
