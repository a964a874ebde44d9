package toolmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// candidateTransports returns the ordered transports a connection attempt
// should try. Stdio configs yield exactly one; HTTP configs yield the
// streamable transport followed by SSE (or SSE alone when preferred). A
// TransportFactory override short-circuits both.
func candidateTransports(ctx context.Context, service string, cfg ServiceConfig) ([]mcp.Transport, error) {
	base := cfg.base()
	if base.Transport != nil {
		t, err := base.Transport(ctx)
		if err != nil {
			return nil, err
		}
		return []mcp.Transport{t}, nil
	}
	switch c := cfg.(type) {
	case *StdioServiceConfig:
		t, err := buildStdioTransport(service, c)
		if err != nil {
			return nil, err
		}
		return []mcp.Transport{t}, nil
	case *HTTPServiceConfig:
		return buildHTTPTransports(service, c)
	default:
		return nil, fmt.Errorf("toolmgr: unsupported config for %q", service)
	}
}

func buildStdioTransport(service string, cfg *StdioServiceConfig) (mcp.Transport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("toolmgr: command missing for %q", service)
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}
	return &mcp.CommandTransport{Command: cmd}, nil
}

func buildHTTPTransports(service string, cfg *HTTPServiceConfig) ([]mcp.Transport, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("toolmgr: endpoint missing for %q", service)
	}
	client := decorateHTTPClient(cfg.HTTPClient, cfg.Headers, cfg.AuthProvider)
	streamable := &mcp.StreamableClientTransport{
		Endpoint:   cfg.Endpoint,
		HTTPClient: client,
		MaxRetries: cfg.MaxRetries,
	}
	sse := &mcp.SSEClientTransport{Endpoint: cfg.Endpoint, HTTPClient: client}
	if preferSSE(cfg) {
		return []mcp.Transport{sse}, nil
	}
	return []mcp.Transport{streamable, sse}, nil
}

func preferSSE(cfg *HTTPServiceConfig) bool {
	if cfg.PreferSSE != nil {
		return *cfg.PreferSSE
	}
	return strings.HasSuffix(strings.TrimSpace(cfg.Endpoint), "/sse")
}

func decorateHTTPClient(base *http.Client, headers http.Header, provider HTTPAuthProvider) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if len(headers) == 0 && provider == nil {
		return base
	}
	clone := *base
	clone.Transport = &headerDecorator{
		next:         defaultRoundTripper(base.Transport),
		headers:      cloneHeader(headers),
		authProvider: provider,
	}
	return &clone
}

func cloneHeader(h http.Header) http.Header {
	if len(h) == 0 {
		return nil
	}
	clone := make(http.Header, len(h))
	for k, values := range h {
		clone[k] = append([]string(nil), values...)
	}
	return clone
}

type headerDecorator struct {
	next         http.RoundTripper
	headers      http.Header
	authProvider HTTPAuthProvider
}

func (d *headerDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for k, values := range d.headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if d.authProvider != nil && req.Header.Get("Authorization") == "" {
		token, err := d.authProvider(req.Context())
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", token)
		}
	}
	return d.next.RoundTrip(req)
}

func defaultRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next != nil {
		return next
	}
	return http.DefaultTransport
}

// loggingTransport wraps a transport and emits every JSON-RPC message to the
// configured RPCLogger.
type loggingTransport struct {
	service  string
	delegate mcp.Transport
	logger   RPCLogger
}

func (t *loggingTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := t.delegate.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &loggingConnection{service: t.service, delegate: conn, logger: t.logger}, nil
}

type loggingConnection struct {
	service  string
	delegate mcp.Connection
	logger   RPCLogger
	mu       sync.Mutex
}

func (c *loggingConnection) SessionID() string { return c.delegate.SessionID() }

func (c *loggingConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	msg, err := c.delegate.Read(ctx)
	if err == nil {
		c.emit(RPCDirectionReceive, msg)
	}
	return msg, err
}

func (c *loggingConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	if err := c.delegate.Write(ctx, msg); err != nil {
		return err
	}
	c.emit(RPCDirectionSend, msg)
	return nil
}

func (c *loggingConnection) Close() error { return c.delegate.Close() }

func (c *loggingConnection) emit(direction RPCDirection, msg jsonrpc.Message) {
	if c.logger == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	encoded, err := json.Marshal(msg)
	if err != nil {
		encoded = []byte(err.Error())
	}
	c.logger(RPCLogEvent{Direction: direction, Message: encoded, Service: c.service})
}
