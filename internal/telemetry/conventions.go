package telemetry

// Attribute names for spans and metrics. Tool attributes follow the MCP
// observability conventions so traces line up with other MCP servers.
const (
	AttrMCPToolName    = "mcp.tool.name"
	AttrMCPToolAction  = "mcp.tool.action"
	AttrMCPToolSuccess = "mcp.tool.result.success"
	AttrMCPToolError   = "mcp.tool.result.error"
	AttrMCPSessionID   = "mcp.session.id"
	AttrMCPCallID      = "mcp.call.id"

	// Remote store attributes
	AttrStoreSurface = "store.surface" // "repo" or "snippet"
	AttrStorePath    = "store.path"
	AttrStoreOutcome = "store.outcome" // ok, not_found, error
)

// Span names
const (
	SpanNameToolExecute = "mcp.tool.execute"
	SpanNameStoreFetch  = "store.fetch"
)

// Store surfaces
const (
	SurfaceRepo    = "repo"
	SurfaceSnippet = "snippet"
)
