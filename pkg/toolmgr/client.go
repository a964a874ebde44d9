package toolmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultHistoryLimit = 256

// ClientOptions configure a Client instance.
type ClientOptions struct {
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Observer records telemetry for calls, probes, and recoveries. Nil is a
	// no-op.
	Observer *Observer
	// HistoryLimit caps the connection history; oldest events are dropped.
	HistoryLimit int
}

func (o *ClientOptions) normalized() ClientOptions {
	var opts ClientOptions
	if o != nil {
		opts = *o
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return opts
}

// Client owns a single logical connection to one tool service. It performs
// the handshake and tool discovery on Connect, executes tool calls, runs a
// background health monitor while connected, and can reconnect itself when
// timeouts or failed probes cross the configured thresholds.
//
// All exported methods are safe for concurrent use. A Client is created
// disconnected; Disconnect is terminal.
type Client struct {
	service  string
	config   ServiceConfig
	recovery RecoveryConfig
	logger   *slog.Logger
	observer *Observer

	historyLimit int

	reconnecting atomic.Bool

	mu      sync.Mutex
	state   ConnectionState
	session *mcp.ClientSession
	tools   map[string]ToolInfo
	closed  bool

	// per-connection state, reset on every successful connect
	consecutiveTimeouts int
	healthFailures      int
	callsSinceConnect   int64
	errorsSinceConnect  int64
	connectLatency      time.Duration

	// cumulative diagnostics
	diag       DiagnosticInfo
	history    []ConnectionEvent
	lastHealth *HealthStatus
	lastCall   time.Time

	// incremental uptime accounting; the window opens at first connect
	firstConnectedAt time.Time
	connectedSince   time.Time
	connectedAccum   time.Duration

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}

	callbacks []RecoveryCallback
}

// NewClient builds a disconnected Client for the given service. The config's
// zero fields are normalized to defaults.
func NewClient(service string, cfg ServiceConfig, opts *ClientOptions) (*Client, error) {
	if service == "" {
		return nil, fmt.Errorf("toolmgr: service id is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("toolmgr: missing configuration for %q", service)
	}
	base := cfg.base()
	base.withDefaults()
	options := opts.normalized()
	return &Client{
		service:      service,
		config:       cfg,
		recovery:     base.Recovery,
		logger:       options.Logger,
		observer:     options.Observer,
		historyLimit: options.HistoryLimit,
		state:        StateDisconnected,
		tools:        make(map[string]ToolInfo),
		diag:         DiagnosticInfo{Service: service},
	}, nil
}

// Service returns the service id this client is bound to.
func (c *Client) Service() string { return c.service }

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether an active session exists.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected && c.session != nil
}

// OnRecovery registers a callback notified synchronously after every recovery
// attempt with either RecoveryReconnected or RecoveryFailed.
func (c *Client) OnRecovery(cb RecoveryCallback) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	c.callbacks = append(c.callbacks, cb)
	c.mu.Unlock()
}

// Connect establishes a session, performing up to MaxRetryAttempts attempts
// with jittered exponential backoff between them. Each attempt opens the
// transport, completes the protocol handshake, and enumerates the remote
// tools; the discovered set wholly replaces any prior snapshot. On success the
// background health monitor is started (idempotently). Authentication
// rejections abort the retry loop immediately.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return newConnectionError(c.service, 0, false, errors.New("client is closed"))
	}
	if c.state == StateConnected && c.session != nil {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateReconnecting {
		c.state = StateConnecting
	}
	c.mu.Unlock()

	attempts := c.recovery.MaxRetryAttempts
	var lastErr error
	timedOut := false
	for attempt := 0; attempt < attempts; attempt++ {
		c.mu.Lock()
		c.diag.ConnectionAttempts++
		c.mu.Unlock()

		start := time.Now()
		session, tools, err := c.dialOnce(ctx)
		if err == nil {
			latency := time.Since(start)
			c.mu.Lock()
			c.session = session
			c.tools = tools
			c.state = StateConnected
			c.connectLatency = latency
			c.diag.SuccessfulConnections++
			c.consecutiveTimeouts = 0
			c.healthFailures = 0
			c.callsSinceConnect = 0
			c.errorsSinceConnect = 0
			c.lastHealth = nil
			c.markConnectedLocked(time.Now())
			c.appendHistoryLocked("connected", map[string]any{
				"latency_ms": latency.Milliseconds(),
				"tools":      len(tools),
			})
			c.mu.Unlock()

			c.observer.ObserveConnect(c.service, true, latency)
			c.logger.Info("connected", "service", c.service, "tools", len(tools), "latency", latency)
			c.startMonitor()
			go c.watchSession(session)
			return nil
		}

		lastErr = err
		timedOut = errors.Is(err, context.DeadlineExceeded)
		c.mu.Lock()
		c.diag.FailedConnections++
		c.recordErrorLocked(err)
		c.mu.Unlock()
		c.observer.ObserveConnect(c.service, false, time.Since(start))
		c.logger.Warn("connection attempt failed",
			"service", c.service, "attempt", attempt+1, "of", attempts, "error", err)

		if isAuthRejection(err) {
			c.setFailed()
			return newAuthenticationError(c.service, err)
		}
		if attempt < attempts-1 {
			if err := sleepCtx(ctx, c.recovery.backoff(attempt)); err != nil {
				c.setFailed()
				return newConnectionError(c.service, attempt+1, false, err)
			}
		}
	}
	c.setFailed()
	return newConnectionError(c.service, attempts, timedOut, lastErr)
}

// dialOnce performs one connection attempt: transport, handshake, discovery.
func (c *Client) dialOnce(ctx context.Context) (*mcp.ClientSession, map[string]ToolInfo, error) {
	base := c.config.base()
	transports, err := candidateTransports(ctx, c.service, c.config)
	if err != nil {
		return nil, nil, err
	}

	impl := &mcp.Implementation{Name: c.service, Version: base.ClientVersion}
	clientOpts := &mcp.ClientOptions{
		ToolListChangedHandler: func(context.Context, *mcp.ToolListChangedRequest) {
			go c.refreshTools(context.Background())
		},
	}

	connectCtx, cancel := context.WithTimeout(ctx, base.ConnectTimeout)
	defer cancel()

	var lastErr error
	for _, transport := range transports {
		if base.RPCLogger != nil {
			transport = &loggingTransport{service: c.service, delegate: transport, logger: base.RPCLogger}
		}
		client := mcp.NewClient(impl, clientOpts)
		session, err := client.Connect(connectCtx, transport, nil)
		if err != nil {
			lastErr = err
			continue
		}
		tools, err := c.discoverTools(connectCtx, session)
		if err != nil {
			_ = session.Close()
			return nil, nil, err
		}
		return session, tools, nil
	}
	return nil, nil, lastErr
}

func (c *Client) discoverTools(ctx context.Context, session *mcp.ClientSession) (map[string]ToolInfo, error) {
	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	tools := make(map[string]ToolInfo, len(res.Tools))
	for _, tool := range res.Tools {
		if tool == nil {
			continue
		}
		info := toolInfoFromTool(c.service, tool)
		tools[info.Name] = info
	}
	return tools, nil
}

// refreshTools re-lists the remote tools after a list-changed notification and
// replaces the snapshot. Failures are logged; the prior snapshot stays.
func (c *Client) refreshTools(ctx context.Context) {
	c.mu.Lock()
	session := c.session
	base := c.config.base()
	c.mu.Unlock()
	if session == nil {
		return
	}
	listCtx, cancel := context.WithTimeout(ctx, base.ProbeTimeout)
	defer cancel()
	tools, err := c.discoverTools(listCtx, session)
	if err != nil {
		c.logger.Warn("tool refresh failed", "service", c.service, "error", err)
		return
	}
	c.mu.Lock()
	if c.session == session {
		c.tools = tools
	}
	c.mu.Unlock()
}

// CallTool invokes a remote tool under the service's call timeout and returns
// the parsed result. It fails fast with a ConnectionError when no session is
// active and with a ToolNotFoundError when the name is absent from the current
// snapshot. Timeouts are not retried here; they feed the consecutive-timeout
// counter, which can trigger an asynchronous reconnect once the configured
// threshold is crossed.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	c.mu.Lock()
	if c.session == nil || c.state != StateConnected {
		c.mu.Unlock()
		return nil, newConnectionError(c.service, 0, false, errors.New("not connected"))
	}
	tool, ok := c.tools[name]
	if !ok {
		available := make([]string, 0, len(c.tools))
		for n := range c.tools {
			available = append(available, n)
		}
		c.mu.Unlock()
		return nil, newToolNotFoundError(c.service, name, available)
	}
	session := c.session
	base := c.config.base()
	timeout := base.CallTimeout
	if tool.Timeout > 0 {
		timeout = tool.Timeout
	}
	c.diag.TotalToolCalls++
	c.callsSinceConnect++
	c.mu.Unlock()

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := session.CallTool(callCtx, &mcp.CallToolParams{Name: name, Arguments: args})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, c.recordTimeout(name, elapsed, err)
		}
		c.mu.Lock()
		c.diag.FailedToolCalls++
		c.errorsSinceConnect++
		c.recordErrorLocked(err)
		c.mu.Unlock()
		c.observer.ObserveCall(c.service, name, false, elapsed)
		c.logger.Warn("tool call failed", "service", c.service, "tool", name, "error", err)
		if isAuthRejection(err) {
			authErr := newAuthenticationError(c.service, err)
			authErr.Tool = name
			return nil, authErr
		}
		return nil, newProtocolError(c.service, name, "tool call failed", err)
	}
	if res.IsError {
		c.mu.Lock()
		c.diag.FailedToolCalls++
		c.errorsSinceConnect++
		c.mu.Unlock()
		c.observer.ObserveCall(c.service, name, false, elapsed)
		msg := textContent(res)
		if msg == "" {
			msg = "tool reported an error"
		}
		return nil, newProtocolError(c.service, name, msg, nil)
	}

	c.mu.Lock()
	c.diag.SuccessfulToolCalls++
	c.consecutiveTimeouts = 0
	c.lastCall = time.Now()
	c.mu.Unlock()
	c.observer.ObserveCall(c.service, name, true, elapsed)
	return parseToolResult(res), nil
}

// recordTimeout updates the timeout counters and, once the consecutive count
// crosses the detection threshold with auto-recovery enabled, schedules a
// reconnect without blocking the caller. The consecutive counter resets when
// the trigger fires, regardless of the reconnect's outcome.
func (c *Client) recordTimeout(tool string, elapsed time.Duration, cause error) error {
	c.mu.Lock()
	c.diag.TimeoutCount++
	c.diag.FailedToolCalls++
	c.errorsSinceConnect++
	c.consecutiveTimeouts++
	c.recordErrorLocked(cause)
	trigger := c.recovery.autoRecovery() &&
		c.consecutiveTimeouts >= c.recovery.TimeoutDetectionThreshold
	if trigger {
		c.consecutiveTimeouts = 0
	}
	c.mu.Unlock()

	c.observer.ObserveTimeout(c.service, tool)
	c.logger.Warn("tool call timed out", "service", c.service, "tool", tool, "elapsed", elapsed)
	if trigger {
		c.spawnRecovery("consecutive timeout threshold reached")
	}
	return newTimeoutError(c.service, tool, elapsed.String(), cause)
}

// CheckHealth returns the cached health snapshot when it is younger than the
// health check interval, probing the service otherwise.
func (c *Client) CheckHealth(ctx context.Context) HealthStatus {
	return c.HealthWithin(ctx, c.config.base().HealthCheckInterval)
}

// HealthWithin returns a health snapshot no older than maxAge, issuing a fresh
// probe when the cached one is stale or absent.
func (c *Client) HealthWithin(ctx context.Context, maxAge time.Duration) HealthStatus {
	c.mu.Lock()
	if c.lastHealth != nil && maxAge > 0 && time.Since(c.lastHealth.LastCheck) < maxAge {
		cached := *c.lastHealth
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()
	return c.probeHealth(ctx)
}

// probeHealth issues a lightweight probe (re-listing tools) and produces a
// fresh snapshot. An unhealthy probe increments the consecutive failure
// counter; a healthy one resets it. Crossing the failure threshold with
// auto-recovery enabled schedules a single reconnect and resets the counter.
func (c *Client) probeHealth(ctx context.Context) HealthStatus {
	c.mu.Lock()
	session := c.session
	base := c.config.base()
	c.mu.Unlock()

	start := time.Now()
	var probeErr error
	toolCount := 0
	if session == nil {
		probeErr = errors.New("not connected")
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, base.ProbeTimeout)
		res, err := session.ListTools(probeCtx, nil)
		cancel()
		if err != nil {
			probeErr = err
		} else {
			toolCount = len(res.Tools)
		}
	}
	elapsed := time.Since(start)

	c.mu.Lock()
	now := time.Now()
	trigger := false
	if probeErr != nil {
		c.healthFailures++
		if c.recovery.autoRecovery() && !c.closed &&
			c.healthFailures >= c.recovery.HealthCheckFailureThreshold {
			trigger = true
			c.healthFailures = 0
		}
	} else {
		c.healthFailures = 0
	}
	status := HealthStatus{
		Healthy:             probeErr == nil,
		LastCheck:           now,
		ResponseTime:        elapsed,
		AvailableTools:      toolCount,
		ConnectionStatus:    c.state,
		ConsecutiveFailures: c.healthFailures,
		LastSuccessfulCall:  c.lastCall,
		UptimePercentage:    c.uptimeLocked(now),
	}
	if probeErr != nil {
		status.ErrorMessage = probeErr.Error()
	}
	c.lastHealth = &status
	c.mu.Unlock()

	c.observer.ObserveHealth(c.service, probeErr == nil, elapsed)
	if trigger {
		c.logger.Warn("health check failure threshold reached", "service", c.service)
		c.spawnRecovery("health check failure threshold reached")
	}
	return status
}

// Reconnect tears the connection down and dials again. It is guarded by a
// single-flight flag: concurrent calls while one reconnect is in progress are
// no-ops. Per-connection counters reset; cumulative diagnostics do not.
func (c *Client) Reconnect(ctx context.Context) error {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return nil
	}
	defer c.reconnecting.Store(false)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.diag.RecoveryAttempts++
	c.state = StateReconnecting
	c.appendHistoryLocked("reconnecting", nil)
	c.mu.Unlock()

	c.teardown(ctx)

	if err := c.Connect(ctx); err != nil {
		c.observer.ObserveRecovery(c.service, false)
		c.notify(RecoveryFailed)
		return err
	}
	c.mu.Lock()
	c.diag.RecoverySuccesses++
	c.mu.Unlock()
	c.observer.ObserveRecovery(c.service, true)
	c.notify(RecoveryReconnected)
	return nil
}

// Disconnect cancels the health monitor, waits for it to stop, closes the
// session, and transitions to the terminal disconnected state. It never
// returns an error for cleanup failures on a partially-initialized
// connection; those are logged and swallowed.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	session := c.session
	c.session = nil
	cancel := c.monitorCancel
	done := c.monitorDone
	c.monitorCancel = nil
	c.monitorDone = nil
	now := time.Now()
	c.markDisconnectedLocked(now)
	c.state = StateDisconnected
	c.appendHistoryLocked("disconnected", map[string]any{
		"calls":  c.callsSinceConnect,
		"errors": c.errorsSinceConnect,
	})
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if session != nil {
		if err := session.Close(); err != nil {
			c.logger.Warn("session close failed", "service", c.service, "error", err)
		}
	}
	return nil
}

// teardown stops the monitor and closes the session without entering the
// terminal state; Reconnect uses it between attempts.
func (c *Client) teardown(ctx context.Context) {
	c.mu.Lock()
	session := c.session
	c.session = nil
	cancel := c.monitorCancel
	done := c.monitorDone
	c.monitorCancel = nil
	c.monitorDone = nil
	c.markDisconnectedLocked(time.Now())
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if session != nil {
		if err := session.Close(); err != nil {
			c.logger.Debug("session close during teardown", "service", c.service, "error", err)
		}
	}
}

// startMonitor launches the background health monitor. Calling it while a
// monitor is already running is a no-op.
func (c *Client) startMonitor() {
	c.mu.Lock()
	if c.monitorCancel != nil || c.closed {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.monitorCancel = cancel
	c.monitorDone = done
	interval := c.config.base().HealthCheckInterval
	c.mu.Unlock()

	go c.monitorLoop(ctx, interval, done)
}

// monitorLoop wakes every health check interval while the client stays
// connected. It must never crash the process: panics are recovered and logged,
// and the loop pauses for one interval before resuming.
func (c *Client) monitorLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.monitorTick(ctx)
		c.mu.Lock()
		stop := c.closed || c.state == StateDisconnected
		c.mu.Unlock()
		if stop {
			return
		}
	}
}

func (c *Client) monitorTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("health monitor recovered from panic", "service", c.service, "panic", r)
		}
	}()
	status := c.probeHealth(ctx)
	if !status.Healthy {
		c.logger.Debug("health probe unhealthy",
			"service", c.service, "consecutive_failures", status.ConsecutiveFailures)
	}
}

// watchSession notices the remote end dropping the session and, when auto
// recovery is enabled, schedules a reconnect.
func (c *Client) watchSession(session *mcp.ClientSession) {
	err := session.Wait()
	c.mu.Lock()
	if c.session != session {
		// superseded by a reconnect or an explicit disconnect
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.markDisconnectedLocked(time.Now())
	c.state = StateFailed
	c.appendHistoryLocked("connection_lost", nil)
	auto := c.recovery.autoRecovery() && !c.closed
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("session terminated", "service", c.service, "error", err)
	}
	if auto {
		c.spawnRecovery("session terminated")
	}
}

// spawnRecovery runs a reconnect in the background. Failures are routed to
// the client's logger, never to the caller that tripped the trigger.
func (c *Client) spawnRecovery(reason string) {
	go func() {
		if err := c.Reconnect(context.Background()); err != nil {
			c.logger.Warn("automatic recovery failed",
				"service", c.service, "reason", reason, "error", err)
		}
	}()
}

func (c *Client) notify(event RecoveryEvent) {
	c.mu.Lock()
	callbacks := append([]RecoveryCallback(nil), c.callbacks...)
	c.mu.Unlock()
	for _, cb := range callbacks {
		cb(c.service, event)
	}
}

func (c *Client) setFailed() {
	c.mu.Lock()
	if !c.closed {
		c.state = StateFailed
	}
	c.mu.Unlock()
}

// ToolList returns the current tool snapshot sorted by name.
func (c *Client) ToolList() []ToolInfo {
	c.mu.Lock()
	tools := make([]ToolInfo, 0, len(c.tools))
	for _, info := range c.tools {
		tools = append(tools, info)
	}
	c.mu.Unlock()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Tool looks up a single tool in the current snapshot.
func (c *Client) Tool(name string) (ToolInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.tools[name]
	return info, ok
}

// Diagnostics returns a copy of the cumulative counters with the derived
// performance metrics refreshed.
func (c *Client) Diagnostics() DiagnosticInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := c.diag
	info.ConnectionHistory = append([]ConnectionEvent(nil), c.history...)
	info.PerformanceMetrics = map[string]float64{
		"connection_success_rate":     rate(info.SuccessfulConnections, info.ConnectionAttempts),
		"tool_call_success_rate":      rate(info.SuccessfulToolCalls, info.TotalToolCalls),
		"timeout_rate":                rate(info.TimeoutCount, info.TotalToolCalls),
		"recovery_success_rate":       rate(info.RecoverySuccesses, info.RecoveryAttempts),
		"uptime_percentage":           c.uptimeLocked(time.Now()),
		"last_connect_latency_ms":     float64(c.connectLatency.Milliseconds()),
		"consecutive_timeouts":        float64(c.consecutiveTimeouts),
		"consecutive_health_failures": float64(c.healthFailures),
	}
	return info
}

func rate(part, total int64) float64 {
	if total <= 0 {
		return 1
	}
	return float64(part) / float64(total)
}

func (c *Client) recordErrorLocked(err error) {
	if err == nil {
		return
	}
	c.diag.LastError = err.Error()
	c.diag.LastErrorTime = time.Now()
}

func (c *Client) appendHistoryLocked(status string, extra map[string]any) {
	c.history = append(c.history, ConnectionEvent{
		Timestamp: time.Now(),
		Status:    status,
		Extra:     extra,
	})
	if len(c.history) > c.historyLimit {
		c.history = c.history[len(c.history)-c.historyLimit:]
	}
}

func (c *Client) markConnectedLocked(now time.Time) {
	if c.firstConnectedAt.IsZero() {
		c.firstConnectedAt = now
	}
	if c.connectedSince.IsZero() {
		c.connectedSince = now
	}
}

func (c *Client) markDisconnectedLocked(now time.Time) {
	if !c.connectedSince.IsZero() {
		c.connectedAccum += now.Sub(c.connectedSince)
		c.connectedSince = time.Time{}
	}
}

// uptimeLocked derives the connected share of the observation window from the
// incrementally accumulated durations, avoiding a history walk on every read.
// The window opens at the first successful connect; a client that has never
// connected has no window and reports 100 so fresh services are not penalized.
func (c *Client) uptimeLocked(now time.Time) float64 {
	if c.firstConnectedAt.IsZero() {
		return 100
	}
	elapsed := now.Sub(c.firstConnectedAt)
	if elapsed <= 0 {
		return 100
	}
	up := c.connectedAccum
	if !c.connectedSince.IsZero() {
		up += now.Sub(c.connectedSince)
	}
	pct := float64(up) / float64(elapsed) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
