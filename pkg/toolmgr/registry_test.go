package toolmgr

import (
	"reflect"
	"testing"
)

type staticSource []ToolInfo

func (s staticSource) ToolList() []ToolInfo { return s }

func namedTools(names ...string) staticSource {
	tools := make(staticSource, 0, len(names))
	for _, name := range names {
		tools = append(tools, ToolInfo{Name: name})
	}
	return tools
}

func TestRegistryCollisionPrefixesLaterService(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(quietLogger())
	registry.RegisterService("serviceA", namedTools("search", "fetch"))
	registry.RegisterService("serviceB", namedTools("search"))

	info, ok := registry.FindTool("search")
	if !ok || info.Service != "serviceA" {
		t.Fatalf("FindTool(search) = %#v, %v; the first registrant keeps the bare name", info, ok)
	}
	info, ok = registry.FindTool("serviceB_search")
	if !ok || info.Service != "serviceB" {
		t.Fatalf("FindTool(serviceB_search) = %#v, %v; collisions register under the prefixed name", info, ok)
	}
	if len(registry.AllTools()) != 3 {
		t.Fatalf("AllTools() = %d entries, expected 3", len(registry.AllTools()))
	}
}

func TestRegistryPrefixedNameCollisionSkipsTool(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(quietLogger())
	registry.RegisterService("other", namedTools("serviceB_search"))
	registry.RegisterService("serviceA", namedTools("search"))
	registry.RegisterService("serviceB", namedTools("search"))

	// serviceB's rename target is already taken; its tool is skipped and the
	// holder keeps its entry.
	info, ok := registry.FindTool("serviceB_search")
	if !ok || info.Service != "other" {
		t.Fatalf("FindTool(serviceB_search) = %#v, %v; the literal name's holder must keep it", info, ok)
	}
	if got := registry.ToolCountByService()["serviceB"]; got != 0 {
		t.Fatalf("serviceB tool count = %d, a skipped tool must not be listed", got)
	}

	// Dropping serviceB must not disturb the holder's entry.
	registry.UnregisterService("serviceB")
	if _, ok := registry.FindTool("serviceB_search"); !ok {
		t.Fatal("unregistering the skipped service must not remove the holder's tool")
	}
	if len(registry.AllTools()) != 2 {
		t.Fatalf("AllTools() = %d entries, expected 2", len(registry.AllTools()))
	}
}

func TestRegistryReRegistrationIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(quietLogger())
	registry.RegisterService("files", namedTools("read", "write"))
	registry.RegisterService("files", namedTools("read", "write"))

	counts := registry.ToolCountByService()
	if counts["files"] != 2 {
		t.Fatalf("ToolCountByService()[files] = %d, expected 2 after re-registration", counts["files"])
	}

	// Re-registering with a shrunk set drops the stale names.
	registry.RegisterService("files", namedTools("read"))
	if _, ok := registry.FindTool("write"); ok {
		t.Fatal("write should be gone after the service re-registered without it")
	}
	if _, ok := registry.FindTool("read"); !ok {
		t.Fatal("read should survive the re-registration")
	}
}

func TestRegistryUnregisterService(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(quietLogger())
	registry.RegisterService("alpha", namedTools("one"))
	registry.RegisterService("beta", namedTools("two"))

	registry.UnregisterService("alpha")
	if _, ok := registry.FindTool("one"); ok {
		t.Fatal("alpha's tools should be gone after unregistering")
	}
	if got := registry.Services(); !reflect.DeepEqual(got, []string{"beta"}) {
		t.Fatalf("Services() = %v, expected [beta]", got)
	}
}

func TestRegistryToolsByServiceSorted(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(quietLogger())
	registry.RegisterService("svc", namedTools("zeta", "alpha", "mid"))

	tools := registry.ToolsByService("svc")
	names := make([]string, 0, len(tools))
	for _, info := range tools {
		names = append(names, info.Name)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("ToolsByService order = %v, expected sorted", names)
	}
}

func TestRegistryClear(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(quietLogger())
	registry.RegisterService("svc", namedTools("tool"))
	registry.Clear()

	if len(registry.AllTools()) != 0 || len(registry.Services()) != 0 {
		t.Fatal("Clear should drop every registration")
	}
}
