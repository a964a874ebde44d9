package toolmgr

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolInfoFromTool converts an SDK tool descriptor into this package's
// metadata type. Schema parameters come from the input schema's properties;
// category, auth, rate-limit, and timeout hints come from the tool's Meta
// fields when the service publishes them.
func toolInfoFromTool(service string, tool *mcp.Tool) ToolInfo {
	info := ToolInfo{
		Name:        tool.Name,
		Service:     service,
		Description: tool.Description,
		ReturnType:  "object",
	}
	if tool.InputSchema != nil {
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			var schema map[string]any
			if json.Unmarshal(raw, &schema) == nil {
				if props, ok := schema["properties"].(map[string]any); ok {
					info.Parameters = props
				}
			}
		}
	}
	for key, value := range tool.Meta {
		switch strings.ToLower(key) {
		case "category":
			if s, ok := value.(string); ok {
				info.Category = s
			}
		case "requires_auth", "requiresauth":
			if b, ok := value.(bool); ok {
				info.RequiresAuth = b
			}
		case "rate_limit", "ratelimit":
			if n, ok := asInt(value); ok {
				info.RateLimit = n
			}
		case "timeout_seconds", "timeoutseconds":
			if n, ok := asInt(value); ok && n > 0 {
				info.Timeout = time.Duration(n) * time.Second
			}
		case "return_type", "returntype":
			if s, ok := value.(string); ok {
				info.ReturnType = s
			}
		}
	}
	return info
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// parseToolResult normalizes a call result into a map. Structured content is
// preferred; otherwise the concatenated text content is parsed as JSON on a
// best-effort basis, falling back to a single-field wrapper when the payload
// is not a JSON object.
func parseToolResult(res *mcp.CallToolResult) map[string]any {
	if res == nil {
		return map[string]any{}
	}
	if res.StructuredContent != nil {
		if m, ok := res.StructuredContent.(map[string]any); ok {
			return m
		}
		return map[string]any{"result": res.StructuredContent}
	}
	text := textContent(res)
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var parsed map[string]any
		if json.Unmarshal([]byte(trimmed), &parsed) == nil {
			return parsed
		}
	}
	return map[string]any{"content": text}
}

func textContent(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var b strings.Builder
	for _, content := range res.Content {
		if txt, ok := content.(*mcp.TextContent); ok {
			b.WriteString(txt.Text)
		}
	}
	return b.String()
}
