package toolmgr

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode is the machine-readable failure category attached to every error
// this package returns. Callers should branch on codes (or the concrete error
// types) rather than message text.
type ErrorCode string

const (
	CodeConnection   ErrorCode = "connection_error"
	CodeToolNotFound ErrorCode = "tool_not_found"
	CodeAuth         ErrorCode = "authentication_error"
	CodeTimeout      ErrorCode = "timeout"
	CodeProtocol     ErrorCode = "protocol_error"
)

// baseError carries the fields shared by every failure this package
// surfaces. The concrete taxonomy types embed it; use errors.As with those
// types to narrow.
type baseError struct {
	Service string
	Tool    string
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *baseError) Error() string {
	var b strings.Builder
	b.WriteString("toolmgr: ")
	b.WriteString(e.Message)
	if e.Service != "" {
		fmt.Fprintf(&b, " (service %q", e.Service)
		if e.Tool != "" {
			fmt.Fprintf(&b, ", tool %q", e.Tool)
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *baseError) Unwrap() error { return e.Cause }

// ConnectionError reports a failure to establish or keep a session: transport
// dial errors, handshake rejections, and connection-establishment timeouts.
type ConnectionError struct {
	baseError
	// Timeout is true when the failure was a deadline expiring while the
	// session was being established.
	Timeout bool
	// Attempts is how many connection attempts were made before giving up.
	Attempts int
}

func newConnectionError(service string, attempts int, timeout bool, cause error) *ConnectionError {
	msg := "failed to connect"
	if timeout {
		msg = "timed out connecting"
	}
	return &ConnectionError{
		baseError: baseError{Service: service, Code: CodeConnection, Message: msg, Cause: cause},
		Timeout:   timeout,
		Attempts:  attempts,
	}
}

// ToolNotFoundError reports a tool name absent from the service's current
// registry snapshot. Available lists the tools the service does expose.
type ToolNotFoundError struct {
	baseError
	Available []string
}

func newToolNotFoundError(service, tool string, available []string) *ToolNotFoundError {
	names := append([]string(nil), available...)
	sort.Strings(names)
	return &ToolNotFoundError{
		baseError: baseError{
			Service: service,
			Tool:    tool,
			Code:    CodeToolNotFound,
			Message: fmt.Sprintf("tool not found; available tools: [%s]", strings.Join(names, ", ")),
		},
		Available: names,
	}
}

// AuthenticationError reports a remote credential or session rejection. These
// are never retried.
type AuthenticationError struct {
	baseError
}

func newAuthenticationError(service string, cause error) *AuthenticationError {
	return &AuthenticationError{
		baseError: baseError{Service: service, Code: CodeAuth, Message: "authentication rejected", Cause: cause},
	}
}

// TimeoutError reports an individual tool call exceeding its deadline. The
// call is not retried internally; the caller decides.
type TimeoutError struct {
	baseError
	Elapsed string
}

func newTimeoutError(service, tool string, elapsed string, cause error) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{Service: service, Tool: tool, Code: CodeTimeout, Message: "tool call timed out", Cause: cause},
		Elapsed:   elapsed,
	}
}

// ProtocolError reports a malformed response or unexpected payload shape from
// an otherwise live session.
type ProtocolError struct {
	baseError
}

func newProtocolError(service, tool, message string, cause error) *ProtocolError {
	return &ProtocolError{
		baseError: baseError{Service: service, Tool: tool, Code: CodeProtocol, Message: message, Cause: cause},
	}
}

var (
	_ error = (*ConnectionError)(nil)
	_ error = (*ToolNotFoundError)(nil)
	_ error = (*AuthenticationError)(nil)
	_ error = (*TimeoutError)(nil)
	_ error = (*ProtocolError)(nil)
)

// isAuthRejection sniffs transport-level errors for credential failures so
// they can surface as AuthenticationError instead of a generic connection
// failure. The MCP SDK does not expose HTTP status codes directly, so this is
// substring-based, mirroring how method availability is detected.
func isAuthRejection(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "invalid credentials") ||
		strings.Contains(lower, "authentication")
}
