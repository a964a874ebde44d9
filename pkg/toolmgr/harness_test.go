package toolmgr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoArgs struct {
	Message string `json:"message"`
}

type echoResult struct {
	Echo string `json:"echo"`
}

// newEchoServer builds an in-process MCP server exposing one echo tool per
// name given.
func newEchoServer(tools ...string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "echo-server", Version: "0.0.1"}, nil)
	for _, name := range tools {
		mcp.AddTool(server, &mcp.Tool{Name: name, Description: "echoes the message argument"},
			func(_ context.Context, _ *mcp.CallToolRequest, args echoArgs) (*mcp.CallToolResult, echoResult, error) {
				return nil, echoResult{Echo: args.Message}, nil
			})
	}
	return server
}

func addSlowTool(server *mcp.Server, name string, delay time.Duration) {
	mcp.AddTool(server, &mcp.Tool{Name: name, Description: "sleeps before echoing"},
		func(ctx context.Context, _ *mcp.CallToolRequest, args echoArgs) (*mcp.CallToolResult, echoResult, error) {
			select {
			case <-ctx.Done():
				return nil, echoResult{}, ctx.Err()
			case <-time.After(delay):
			}
			return nil, echoResult{Echo: args.Message}, nil
		})
}

func addFailingTool(server *mcp.Server, name, message string) {
	mcp.AddTool(server, &mcp.Tool{Name: name, Description: "always fails"},
		func(_ context.Context, _ *mcp.CallToolRequest, _ echoArgs) (*mcp.CallToolResult, echoResult, error) {
			return nil, echoResult{}, errors.New(message)
		})
}

// serverFactory yields a TransportFactory that spins up a fresh server and
// in-memory transport pair on every connection attempt.
func serverFactory(build func() *mcp.Server) TransportFactory {
	return func(context.Context) (mcp.Transport, error) {
		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		go func() {
			_ = build().Run(context.Background(), serverTransport)
		}()
		return clientTransport, nil
	}
}

// flakyFactory fails the first n attempts before delegating.
func flakyFactory(n int64, inner TransportFactory) TransportFactory {
	var calls atomic.Int64
	return func(ctx context.Context) (mcp.Transport, error) {
		if calls.Add(1) <= n {
			return nil, errors.New("transport unavailable")
		}
		return inner(ctx)
	}
}

func boolPtr(b bool) *bool { return &b }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig keeps timeouts short and the background monitor quiet so tests
// stay deterministic. Auto recovery is off unless a test opts in.
func testConfig(factory TransportFactory) *StdioServiceConfig {
	return &StdioServiceConfig{
		BaseServiceConfig: BaseServiceConfig{
			ConnectTimeout:      5 * time.Second,
			CallTimeout:         2 * time.Second,
			ProbeTimeout:        2 * time.Second,
			HealthCheckInterval: time.Hour,
			Recovery: RecoveryConfig{
				MaxRetryAttempts:            3,
				BaseBackoff:                 time.Millisecond,
				MaxBackoff:                  10 * time.Millisecond,
				BackoffMultiplier:           2,
				JitterEnabled:               boolPtr(false),
				TimeoutDetectionThreshold:   3,
				HealthCheckFailureThreshold: 3,
				AutoRecoveryEnabled:         boolPtr(false),
			},
			Transport: factory,
		},
		Command: "unused",
	}
}

func newTestClient(t *testing.T, service string, cfg ServiceConfig) *Client {
	t.Helper()
	client, err := NewClient(service, cfg, &ClientOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewClient(%s): %v", service, err)
	}
	return client
}

func waitRecoveryEvent(t *testing.T, ch <-chan RecoveryEvent) RecoveryEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for recovery event")
		return ""
	}
}
