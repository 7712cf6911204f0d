package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/sirupsen/logrus"
)

// LocalSessionID identifies calls made outside an MCP session, such as the CLI.
const LocalSessionID = "local"

// Tool is the interface that all MCP tool implementations must satisfy
type Tool interface {
	// Definition returns the tool's definition for MCP registration
	Definition() mcp.Tool

	// Execute executes the tool's logic using shared resources (logger, cache) and parsed arguments
	Execute(ctx context.Context, logger *logrus.Logger, cache *cache.Cache, args map[string]any) (*mcp.CallToolResult, error)
}

// ExtendedHelpProvider is an optional interface that tools can implement to provide
// detailed usage information, examples, and troubleshooting help
type ExtendedHelpProvider interface {
	ProvideExtendedInfo() *ExtendedHelp
}

// ExtendedHelp contains detailed information about a tool's usage
type ExtendedHelp struct {
	Examples         []ToolExample        `json:"examples,omitempty"`
	CommonPatterns   []string             `json:"common_patterns,omitempty"`
	Troubleshooting  []TroubleshootingTip `json:"troubleshooting,omitempty"`
	ParameterDetails map[string]string    `json:"parameter_details,omitempty"`
	WhenToUse        string               `json:"when_to_use,omitempty"`
	WhenNotToUse     string               `json:"when_not_to_use,omitempty"`
}

// ToolExample represents a usage example for a tool
type ToolExample struct {
	Description    string         `json:"description"`
	Arguments      map[string]any `json:"arguments"`
	ExpectedResult string         `json:"expected_result,omitempty"`
}

// TroubleshootingTip represents a troubleshooting tip for a tool
type TroubleshootingTip struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// NewToolResultJSON creates a new tool result with indented JSON content
func NewToolResultJSON(data any) (*mcp.CallToolResult, error) {
	buffer := &strings.Builder{}
	encoder := json.NewEncoder(buffer)
	encoder.SetIndent("", "  ")
	// code and rendered HTML must reach clients verbatim
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return mcp.NewToolResultText(strings.TrimSuffix(buffer.String(), "\n")), nil
}

// StringArg returns a trimmed string argument, or "" when absent or not a string.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// RequiredStringArg returns a non-empty string argument or an error naming it.
func RequiredStringArg(args map[string]any, key, action string) (string, error) {
	s := StringArg(args, key)
	if s == "" {
		if action != "" {
			return "", fmt.Errorf("%s parameter is required for %s action", key, action)
		}
		return "", fmt.Errorf("missing or invalid required parameter: %s", key)
	}
	return s, nil
}

// IntArg returns an integer argument clamped to [1, max], or def when absent.
// JSON numbers arrive as float64; the CLI may pass int64.
func IntArg(args map[string]any, key string, def, max int) int {
	var n int
	switch v := args[key].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	default:
		return def
	}
	if n < 1 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// SessionID returns the MCP client session ID carried by ctx, or
// LocalSessionID outside a session.
func SessionID(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	return LocalSessionID
}
