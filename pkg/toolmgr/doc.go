// Package toolmgr manages long-lived connections to remote Model Context
// Protocol (MCP) tool services from a single Go process. It layers connection
// lifecycle tracking, bounded pooling, tool discovery, health monitoring, and
// automatic recovery on top of the modelcontextprotocol/go-sdk client so
// application code can invoke remote tools by service and tool name without
// re-implementing the MCP client plumbing.
//
// # Core entry points
//
//   - Manager is the long-lived facade. Construct it with NewManager, register
//     services with RegisterService, then route invocations through CallTool.
//   - Client owns a single logical connection to one service, including its
//     retrying Connect, background health monitor, and single-flight Reconnect.
//   - Registry aggregates discovered tools across all services into one
//     namespace, prefixing colliding names with their service id.
//   - Pool bounds the number of live Clients, reusing healthy connections and
//     evicting the least-used entry under capacity pressure.
//
// Service transports are declared with ServiceConfig (StdioServiceConfig and
// HTTPServiceConfig variants); a TransportFactory override supports custom or
// in-memory transports. Recovery behavior is governed by RecoveryConfig.
// Callers branch on failures with the typed errors in this package
// (ConnectionError, ToolNotFoundError, AuthenticationError, TimeoutError,
// ProtocolError) via errors.As.
package toolmgr
