package toolmgr

// Lightweight helpers for narrowing and inspecting ServiceConfig values
// without forcing consumers to use a type switch at every call site.

// ConfigTransport identifies the transport family used by a ServiceConfig.
type ConfigTransport string

const (
	TransportStdio ConfigTransport = "stdio"
	TransportHTTP  ConfigTransport = "http"
)

// TransportOf returns the transport kind for a ServiceConfig.
// Returns an empty string when the value is nil or an unknown implementation.
func TransportOf(cfg ServiceConfig) ConfigTransport {
	switch cfg.(type) {
	case *StdioServiceConfig:
		return TransportStdio
	case *HTTPServiceConfig:
		return TransportHTTP
	default:
		return ""
	}
}

// IsStdio reports whether cfg is a *StdioServiceConfig.
func IsStdio(cfg ServiceConfig) bool {
	_, ok := cfg.(*StdioServiceConfig)
	return ok
}

// IsHTTP reports whether cfg is a *HTTPServiceConfig.
func IsHTTP(cfg ServiceConfig) bool {
	_, ok := cfg.(*HTTPServiceConfig)
	return ok
}

// AsStdio narrows cfg to *StdioServiceConfig, returning (nil, false) when it
// does not match.
func AsStdio(cfg ServiceConfig) (*StdioServiceConfig, bool) {
	c, ok := cfg.(*StdioServiceConfig)
	return c, ok
}

// AsHTTP narrows cfg to *HTTPServiceConfig, returning (nil, false) when it
// does not match.
func AsHTTP(cfg ServiceConfig) (*HTTPServiceConfig, bool) {
	c, ok := cfg.(*HTTPServiceConfig)
	return c, ok
}
