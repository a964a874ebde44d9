package toolmgr

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RPCDirection represents the direction of an observed JSON-RPC message.
type RPCDirection string

const (
	RPCDirectionSend    RPCDirection = "send"
	RPCDirectionReceive RPCDirection = "receive"
)

// RPCLogEvent encapsulates JSON-RPC traffic for custom logging.
type RPCLogEvent struct {
	Direction RPCDirection
	Message   []byte
	Service   string
}

// RPCLogger is invoked for each JSON-RPC message when wire logging is enabled.
type RPCLogger func(RPCLogEvent)

// HTTPAuthProvider dynamically supplies an Authorization header value (for
// example "Bearer <token>") for outbound HTTP requests.
type HTTPAuthProvider func(context.Context) (string, error)

// TransportFactory builds the mcp.Transport a Client dials. Setting it on a
// BaseServiceConfig overrides the transport the config kind would normally
// construct; tests use it to connect through in-memory transports.
type TransportFactory func(ctx context.Context) (mcp.Transport, error)

// BaseServiceConfig captures settings shared by all transport kinds.
type BaseServiceConfig struct {
	// ConnectTimeout bounds one connection attempt, handshake included.
	ConnectTimeout time.Duration
	// CallTimeout bounds one tool invocation.
	CallTimeout time.Duration
	// ProbeTimeout bounds one health probe. Probes are lightweight; this is
	// typically much shorter than CallTimeout.
	ProbeTimeout time.Duration
	// HealthCheckInterval is the cadence of the background health monitor and
	// the staleness window for cached CheckHealth snapshots.
	HealthCheckInterval time.Duration
	// Recovery is the retry/backoff/auto-recovery policy for this service.
	Recovery RecoveryConfig
	// ClientVersion is the semantic version advertised during the handshake.
	ClientVersion string
	// RPCLogger receives raw JSON-RPC traffic when set.
	RPCLogger RPCLogger
	// Transport overrides transport construction when non-nil.
	Transport TransportFactory
}

func (c *BaseServiceConfig) withDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.ClientVersion == "" {
		c.ClientVersion = "1.0.0"
	}
	c.Recovery = c.Recovery.withDefaults()
}

// StdioServiceConfig describes a tool service launched as a subprocess and
// reached over stdio.
type StdioServiceConfig struct {
	BaseServiceConfig
	Command string
	Args    []string
	Env     map[string]string
}

func (c *StdioServiceConfig) base() *BaseServiceConfig { return &c.BaseServiceConfig }

// HTTPServiceConfig describes a tool service reachable over HTTP transports.
// The streamable transport is preferred; SSE is used when PreferSSE is set or
// the endpoint path ends in "/sse".
type HTTPServiceConfig struct {
	BaseServiceConfig
	Endpoint     string
	Headers      http.Header
	HTTPClient   *http.Client
	AuthProvider HTTPAuthProvider
	MaxRetries   int
	PreferSSE    *bool
}

func (c *HTTPServiceConfig) base() *BaseServiceConfig { return &c.BaseServiceConfig }

// ServiceConfig is implemented by all transport-specific configurations.
type ServiceConfig interface {
	base() *BaseServiceConfig
}
