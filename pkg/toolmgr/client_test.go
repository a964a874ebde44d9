package toolmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestClientConnectAndCallTool(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "echo", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("echo_message")
	})))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !client.Connected() {
		t.Fatal("client should report connected")
	}
	if got := client.State(); got != StateConnected {
		t.Fatalf("State() = %s, expected %s", got, StateConnected)
	}

	tools := client.ToolList()
	if len(tools) != 1 || tools[0].Name != "echo_message" {
		t.Fatalf("unexpected tool list: %#v", tools)
	}
	if tools[0].Service != "echo" {
		t.Fatalf("tool service = %s, expected echo", tools[0].Service)
	}

	result, err := client.CallTool(ctx, "echo_message", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result["echo"] != "hello" {
		t.Fatalf("CallTool result = %#v, expected echo of hello", result)
	}

	diag := client.Diagnostics()
	if diag.ConnectionAttempts != 1 || diag.SuccessfulConnections != 1 {
		t.Fatalf("connection counters = %d/%d, expected 1/1",
			diag.ConnectionAttempts, diag.SuccessfulConnections)
	}
	if diag.TotalToolCalls != 1 || diag.SuccessfulToolCalls != 1 {
		t.Fatalf("call counters = %d/%d, expected 1/1",
			diag.TotalToolCalls, diag.SuccessfulToolCalls)
	}
}

func TestClientConnectRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	factory := flakyFactory(2, serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	}))
	client := newTestClient(t, "flaky", testConfig(factory))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect should succeed on the third attempt: %v", err)
	}

	diag := client.Diagnostics()
	if diag.ConnectionAttempts != 3 {
		t.Fatalf("ConnectionAttempts = %d, expected 3", diag.ConnectionAttempts)
	}
	if diag.SuccessfulConnections != 1 {
		t.Fatalf("SuccessfulConnections = %d, expected 1", diag.SuccessfulConnections)
	}
	if diag.FailedConnections != 2 {
		t.Fatalf("FailedConnections = %d, expected 2", diag.FailedConnections)
	}
}

func TestClientConnectExhaustsRetries(t *testing.T) {
	t.Parallel()

	factory := func(context.Context) (mcp.Transport, error) {
		return nil, errors.New("transport unavailable")
	}
	client := newTestClient(t, "down", testConfig(factory))

	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect should fail when every attempt fails")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T: %v", err, err)
	}
	if connErr.Attempts != 3 {
		t.Fatalf("Attempts = %d, expected 3", connErr.Attempts)
	}
	if connErr.Code != CodeConnection {
		t.Fatalf("Code = %s, expected %s", connErr.Code, CodeConnection)
	}
	if got := client.State(); got != StateFailed {
		t.Fatalf("State() = %s, expected %s", got, StateFailed)
	}
	if diag := client.Diagnostics(); diag.FailedConnections != 3 {
		t.Fatalf("FailedConnections = %d, expected 3", diag.FailedConnections)
	}
}

func TestClientConnectAuthRejectionAborts(t *testing.T) {
	t.Parallel()

	factory := func(context.Context) (mcp.Transport, error) {
		return nil, errors.New("server returned 401 unauthorized")
	}
	client := newTestClient(t, "secure", testConfig(factory))

	err := client.Connect(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthenticationError, got %T: %v", err, err)
	}
	if diag := client.Diagnostics(); diag.ConnectionAttempts != 1 {
		t.Fatalf("ConnectionAttempts = %d, auth rejections must not be retried", diag.ConnectionAttempts)
	}
}

func TestCallToolUnknownName(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "users", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("listUsers")
	})))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := client.CallTool(ctx, "deleteUser", nil)
	var nf *ToolNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *ToolNotFoundError, got %T: %v", err, err)
	}
	if len(nf.Available) != 1 || nf.Available[0] != "listUsers" {
		t.Fatalf("Available = %v, expected [listUsers]", nf.Available)
	}
	if nf.Tool != "deleteUser" {
		t.Fatalf("Tool = %s, expected deleteUser", nf.Tool)
	}

	// A rejected name never reaches the wire.
	if diag := client.Diagnostics(); diag.TotalToolCalls != 0 {
		t.Fatalf("TotalToolCalls = %d, expected 0", diag.TotalToolCalls)
	}
}

func TestCallToolNotConnected(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "idle", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("noop")
	})))

	_, err := client.CallTool(context.Background(), "noop", nil)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T: %v", err, err)
	}
}

func TestCallToolReportedError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "broken", testConfig(serverFactory(func() *mcp.Server {
		server := newEchoServer("ok")
		addFailingTool(server, "explode", "kaboom")
		return server
	})))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := client.CallTool(ctx, "explode", map[string]any{"message": "x"})
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}

	diag := client.Diagnostics()
	if diag.FailedToolCalls != 1 || diag.SuccessfulToolCalls != 0 {
		t.Fatalf("call counters = %d failed / %d ok, expected 1/0",
			diag.FailedToolCalls, diag.SuccessfulToolCalls)
	}
}

func TestCallToolTimeoutThresholdTriggersOneRecovery(t *testing.T) {
	t.Parallel()

	cfg := testConfig(serverFactory(func() *mcp.Server {
		server := newEchoServer("fast")
		addSlowTool(server, "slow", time.Second)
		return server
	}))
	cfg.CallTimeout = 50 * time.Millisecond
	cfg.Recovery.TimeoutDetectionThreshold = 2
	cfg.Recovery.AutoRecoveryEnabled = boolPtr(true)
	cfg.Recovery.MaxRetryAttempts = 1

	client := newTestClient(t, "laggy", cfg)
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	events := make(chan RecoveryEvent, 4)
	client.OnRecovery(func(_ string, event RecoveryEvent) { events <- event })

	for i := 0; i < 2; i++ {
		_, err := client.CallTool(ctx, "slow", map[string]any{"message": "x"})
		var timeoutErr *TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("call %d: expected *TimeoutError, got %T: %v", i+1, err, err)
		}
	}

	if event := waitRecoveryEvent(t, events); event != RecoveryReconnected {
		t.Fatalf("recovery event = %s, expected %s", event, RecoveryReconnected)
	}

	// Give any stray second trigger a chance to surface before asserting.
	time.Sleep(100 * time.Millisecond)
	diag := client.Diagnostics()
	if diag.RecoveryAttempts != 1 || diag.RecoverySuccesses != 1 {
		t.Fatalf("recovery counters = %d/%d, expected exactly one successful recovery",
			diag.RecoveryAttempts, diag.RecoverySuccesses)
	}
	if diag.TimeoutCount != 2 {
		t.Fatalf("TimeoutCount = %d, expected 2", diag.TimeoutCount)
	}
	if got := diag.PerformanceMetrics["consecutive_timeouts"]; got != 0 {
		t.Fatalf("consecutive timeout counter = %v, expected reset to 0", got)
	}
	if !client.Connected() {
		t.Fatal("client should be connected again after recovery")
	}
}

func TestHealthFailureThresholdTriggersRecovery(t *testing.T) {
	t.Parallel()

	cfg := testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	}))
	cfg.Recovery.HealthCheckFailureThreshold = 2
	cfg.Recovery.AutoRecoveryEnabled = boolPtr(true)
	cfg.Recovery.MaxRetryAttempts = 1

	client := newTestClient(t, "sick", cfg)
	ctx := context.Background()
	defer client.Disconnect(ctx)

	events := make(chan RecoveryEvent, 4)
	client.OnRecovery(func(_ string, event RecoveryEvent) { events <- event })

	// Without a session every probe fails; the second one crosses the
	// threshold and schedules the reconnect.
	first := client.HealthWithin(ctx, 0)
	if first.Healthy {
		t.Fatal("probe on a disconnected client should be unhealthy")
	}
	if first.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, expected 1", first.ConsecutiveFailures)
	}

	second := client.HealthWithin(ctx, 0)
	if second.Healthy {
		t.Fatal("second probe should still be unhealthy")
	}

	if event := waitRecoveryEvent(t, events); event != RecoveryReconnected {
		t.Fatalf("recovery event = %s, expected %s", event, RecoveryReconnected)
	}

	status := client.HealthWithin(ctx, 0)
	if !status.Healthy {
		t.Fatalf("probe after recovery should be healthy: %s", status.ErrorMessage)
	}
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, healthy probe must reset the counter", status.ConsecutiveFailures)
	}

	diag := client.Diagnostics()
	if diag.RecoveryAttempts != 1 || diag.RecoverySuccesses != 1 {
		t.Fatalf("recovery counters = %d/%d, expected exactly one successful recovery",
			diag.RecoveryAttempts, diag.RecoverySuccesses)
	}
}

func TestCheckHealthUsesCachedSnapshot(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "cached", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	})))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	first := client.CheckHealth(ctx)
	if !first.Healthy {
		t.Fatalf("first probe unhealthy: %s", first.ErrorMessage)
	}
	second := client.CheckHealth(ctx)
	if !second.LastCheck.Equal(first.LastCheck) {
		t.Fatal("second CheckHealth within the interval should return the cached snapshot")
	}
	forced := client.HealthWithin(ctx, 0)
	if forced.LastCheck.Equal(first.LastCheck) {
		t.Fatal("HealthWithin(0) must bypass the cache")
	}
}

func TestReconnectSingleFlight(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "single", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	})))

	// Simulate an in-progress reconnect; the overlapping call is a no-op.
	client.reconnecting.Store(true)
	if err := client.Reconnect(context.Background()); err != nil {
		t.Fatalf("overlapping Reconnect should be a no-op, got %v", err)
	}
	if diag := client.Diagnostics(); diag.RecoveryAttempts != 0 {
		t.Fatalf("RecoveryAttempts = %d, overlapping call must not count", diag.RecoveryAttempts)
	}
	client.reconnecting.Store(false)
}

func TestDisconnectIsTerminal(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "done", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	})))
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if client.Connected() {
		t.Fatal("client should be disconnected")
	}
	if got := client.State(); got != StateDisconnected {
		t.Fatalf("State() = %s, expected %s", got, StateDisconnected)
	}

	if err := client.Connect(ctx); err == nil {
		t.Fatal("Connect after Disconnect should fail")
	}
	if _, err := client.CallTool(ctx, "ping", nil); err == nil {
		t.Fatal("CallTool after Disconnect should fail")
	}
	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("repeated Disconnect should be a no-op, got %v", err)
	}

	history := client.Diagnostics().ConnectionHistory
	last := history[len(history)-1]
	if last.Status != "disconnected" {
		t.Fatalf("last history event = %s, expected disconnected", last.Status)
	}
}

func TestHealthMonitorProbesRecoversAndStops(t *testing.T) {
	t.Parallel()

	cfg := testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	}))
	cfg.HealthCheckInterval = 20 * time.Millisecond
	cfg.Recovery.HealthCheckFailureThreshold = 2
	cfg.Recovery.AutoRecoveryEnabled = boolPtr(true)
	cfg.Recovery.MaxRetryAttempts = 1

	client := newTestClient(t, "monitored", cfg)
	ctx := context.Background()
	defer client.Disconnect(ctx)

	events := make(chan RecoveryEvent, 4)
	client.OnRecovery(func(_ string, event RecoveryEvent) { events <- event })

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// The loop probes on its own; wait for a cached snapshot to appear
	// without ever calling CheckHealth ourselves.
	deadline := time.Now().Add(5 * time.Second)
	for {
		client.mu.Lock()
		cached := client.lastHealth
		client.mu.Unlock()
		if cached != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("monitor never probed the service")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Sever the session so the periodic probes fail and cross the threshold.
	client.mu.Lock()
	client.session = nil
	client.lastHealth = nil
	client.mu.Unlock()

	if event := waitRecoveryEvent(t, events); event != RecoveryReconnected {
		t.Fatalf("recovery event = %s, expected %s", event, RecoveryReconnected)
	}
	if !client.Connected() {
		t.Fatal("client should be connected again after monitor-driven recovery")
	}
	diag := client.Diagnostics()
	if diag.RecoveryAttempts != 1 || diag.RecoverySuccesses != 1 {
		t.Fatalf("recovery counters = %d/%d, expected exactly one successful recovery",
			diag.RecoveryAttempts, diag.RecoverySuccesses)
	}

	client.mu.Lock()
	done := client.monitorDone
	client.mu.Unlock()
	if done == nil {
		t.Fatal("monitor should be running after recovery")
	}
	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor loop should stop on disconnect")
	}
}

func TestUptimeBeforeFirstConnect(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "fresh", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	})))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if up := client.Diagnostics().PerformanceMetrics["uptime_percentage"]; up != 100 {
		t.Fatalf("uptime before first connect = %v, expected 100", up)
	}
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if up := client.Diagnostics().PerformanceMetrics["uptime_percentage"]; up <= 0 || up > 100 {
		t.Fatalf("uptime after connect = %v, expected within (0, 100]", up)
	}
}

func TestDiagnosticsPerformanceMetrics(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "metrics", testConfig(serverFactory(func() *mcp.Server {
		return newEchoServer("ping")
	})))
	ctx := context.Background()
	defer client.Disconnect(ctx)

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := client.CallTool(ctx, "ping", map[string]any{"message": "m"}); err != nil {
		t.Fatalf("CallTool: %v", err)
	}

	metrics := client.Diagnostics().PerformanceMetrics
	for _, key := range []string{
		"connection_success_rate", "tool_call_success_rate", "timeout_rate",
		"recovery_success_rate", "uptime_percentage",
	} {
		if _, ok := metrics[key]; !ok {
			t.Fatalf("missing performance metric %s", key)
		}
	}
	if metrics["connection_success_rate"] != 1 {
		t.Fatalf("connection_success_rate = %v, expected 1", metrics["connection_success_rate"])
	}
	if metrics["tool_call_success_rate"] != 1 {
		t.Fatalf("tool_call_success_rate = %v, expected 1", metrics["tool_call_success_rate"])
	}
	if metrics["timeout_rate"] != 0 {
		t.Fatalf("timeout_rate = %v, expected 0", metrics["timeout_rate"])
	}
	if up := metrics["uptime_percentage"]; up <= 0 || up > 100 {
		t.Fatalf("uptime_percentage = %v, expected within (0, 100]", up)
	}
}
