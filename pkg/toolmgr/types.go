package toolmgr

import (
	"time"
)

// ConnectionState represents the lifecycle of a managed connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateFailed       ConnectionState = "failed"
)

// ToolInfo describes one remote tool discovered on a service. Entries are
// immutable once registered and are replaced wholesale on every successful
// connect.
type ToolInfo struct {
	Name         string         `json:"name"`
	Service      string         `json:"service"`
	Description  string         `json:"description,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	ReturnType   string         `json:"return_type,omitempty"`
	Category     string         `json:"category,omitempty"`
	RequiresAuth bool           `json:"requires_auth,omitempty"`
	RateLimit    int            `json:"rate_limit,omitempty"`
	Timeout      time.Duration  `json:"timeout,omitempty"`
}

// HealthStatus is a point-in-time health snapshot for one Client. A fresh
// value is produced on every probe; snapshots are never mutated in place.
type HealthStatus struct {
	Healthy             bool            `json:"is_healthy"`
	LastCheck           time.Time       `json:"last_check"`
	ResponseTime        time.Duration   `json:"response_time"`
	AvailableTools      int             `json:"available_tools"`
	ErrorMessage        string          `json:"error_message,omitempty"`
	ConnectionStatus    ConnectionState `json:"connection_status"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	LastSuccessfulCall  time.Time       `json:"last_successful_call,omitzero"`
	UptimePercentage    float64         `json:"uptime_percentage"`
}

// ConnectionEvent is one entry of a Client's append-only connection history.
type ConnectionEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    string         `json:"status"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// DiagnosticInfo carries a Client's cumulative counters. All counters are
// monotonically increasing for the lifetime of the Client; Reconnect resets
// per-connection state but never these.
type DiagnosticInfo struct {
	Service               string             `json:"service"`
	ConnectionAttempts    int64              `json:"connection_attempts"`
	SuccessfulConnections int64              `json:"successful_connections"`
	FailedConnections     int64              `json:"failed_connections"`
	TotalToolCalls        int64              `json:"total_tool_calls"`
	SuccessfulToolCalls   int64              `json:"successful_tool_calls"`
	FailedToolCalls       int64              `json:"failed_tool_calls"`
	TimeoutCount          int64              `json:"timeout_count"`
	RecoveryAttempts      int64              `json:"recovery_attempts"`
	RecoverySuccesses     int64              `json:"recovery_successes"`
	LastError             string             `json:"last_error,omitempty"`
	LastErrorTime         time.Time          `json:"last_error_time,omitzero"`
	ConnectionHistory     []ConnectionEvent  `json:"connection_history"`
	PerformanceMetrics    map[string]float64 `json:"performance_metrics"`
}

// RecoveryConfig is the immutable retry and recovery policy applied to one
// Client. Zero values are normalized by withDefaults.
type RecoveryConfig struct {
	MaxRetryAttempts  int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// JitterEnabled is enabled when nil. Set it to &false to get deterministic
	// backoff delays.
	JitterEnabled               *bool
	TimeoutDetectionThreshold   int
	HealthCheckFailureThreshold int
	// AutoRecoveryEnabled is enabled when nil. Set it to &false to keep error
	// thresholds from triggering background reconnects.
	AutoRecoveryEnabled *bool
}

func (c RecoveryConfig) jitter() bool {
	return c.JitterEnabled == nil || *c.JitterEnabled
}

func (c RecoveryConfig) autoRecovery() bool {
	return c.AutoRecoveryEnabled == nil || *c.AutoRecoveryEnabled
}

// DefaultRecoveryConfig returns the policy applied when a service config does
// not override recovery behavior.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		MaxRetryAttempts:            3,
		BaseBackoff:                 time.Second,
		MaxBackoff:                  30 * time.Second,
		BackoffMultiplier:           2,
		TimeoutDetectionThreshold:   3,
		HealthCheckFailureThreshold: 3,
	}
}

func (c RecoveryConfig) withDefaults() RecoveryConfig {
	def := DefaultRecoveryConfig()
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = def.MaxRetryAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = def.BaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	if c.TimeoutDetectionThreshold <= 0 {
		c.TimeoutDetectionThreshold = def.TimeoutDetectionThreshold
	}
	if c.HealthCheckFailureThreshold <= 0 {
		c.HealthCheckFailureThreshold = def.HealthCheckFailureThreshold
	}
	return c
}

// RecoveryEvent identifies the outcome of a recovery attempt delivered to
// registered callbacks.
type RecoveryEvent string

const (
	RecoveryReconnected RecoveryEvent = "reconnected"
	RecoveryFailed      RecoveryEvent = "recovery_failed"
)

// RecoveryCallback is notified synchronously after each recovery attempt.
// Listeners needing asynchronous follow-up spawn their own goroutines.
type RecoveryCallback func(service string, event RecoveryEvent)
