package registry

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

// DefaultCacheTTL is the idle lifetime of shared cache entries.
const DefaultCacheTTL = 30 * time.Minute

// additionalTools must be named in ENABLE_ADDITIONAL_TOOLS to be registered.
var additionalTools = []string{
	"store_fetch",
}

var (
	mu sync.RWMutex

	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is a set of tool names to disable
	disabledTools = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger

	// sharedCache holds per-session state such as code views
	sharedCache = cache.NewCache(DefaultCacheTTL)
)

// closer is implemented by cached values holding in-flight work.
type closer interface {
	Close()
}

// Init resets the registry and creates the shared cache. Entries idle for
// longer than ttl are dropped; values with a Close method are closed.
func Init(l *logrus.Logger, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	mu.Lock()
	logger = l
	toolRegistry = make(map[string]tools.Tool)
	sharedCache = cache.NewCache(ttl)
	sharedCache.OnEvict = func(key string, val any) {
		if c, ok := val.(closer); ok {
			c.Close()
		}
		if l != nil {
			l.WithField("key", key).Debug("Evicted idle cache entry")
		}
	}
	mu.Unlock()

	parseDisabledTools()
}

// parseDisabledTools parses the DISABLED_TOOLS environment variable
func parseDisabledTools() {
	disabled := make(map[string]bool)
	for tool := range strings.SplitSeq(os.Getenv("DISABLED_TOOLS"), ",") {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		disabled[tool] = true
		if logger != nil {
			logger.WithField("tool", tool).Debug("Tool disabled")
		}
	}

	mu.Lock()
	disabledTools = disabled
	mu.Unlock()

	if logger != nil && len(disabled) > 0 {
		logger.WithField("count", len(disabled)).Debug("Parsed disabled tools from environment")
	}
}

// requiresEnablement checks if a tool requires enablement via ENABLE_ADDITIONAL_TOOLS.
func requiresEnablement(toolName string) bool {
	normalised := tools.NormaliseToolName(toolName)
	for _, tool := range additionalTools {
		if tools.NormaliseToolName(tool) == normalised {
			return true
		}
	}
	return false
}

// ShouldRegisterTool checks if a tool should be registered based on:
// 1. DISABLED_TOOLS - explicit disable, highest priority
// 2. Tool's enablement requirement
// 3. ENABLE_ADDITIONAL_TOOLS (explicit enable)
func ShouldRegisterTool(toolName string) bool {
	mu.RLock()
	disabled := disabledTools[toolName]
	mu.RUnlock()

	if disabled {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool disabled via environment variable")
		}
		return false
	}

	if requiresEnablement(toolName) {
		enabled := tools.IsToolEnabled(toolName)
		if logger != nil {
			if enabled {
				logger.WithField("tool", toolName).Debug("Tool enabled via ENABLE_ADDITIONAL_TOOLS")
			} else {
				logger.WithField("tool", toolName).Debug("Tool requires enablement but is not enabled")
			}
		}
		return enabled
	}

	return true
}

// Register adds a tool implementation to the registry if it should be registered
func Register(tool tools.Tool) {
	toolName := tool.Definition().Name

	if !ShouldRegisterTool(toolName) {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool not registered (disabled or requires enablement)")
		}
		return
	}

	mu.Lock()
	toolRegistry[toolName] = tool
	mu.Unlock()

	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool successfully registered")
	}
}

// GetTool retrieves a tool by name, returns false if disabled
func GetTool(name string) (tools.Tool, bool) {
	mu.RLock()
	defer mu.RUnlock()

	if disabledTools[name] {
		return nil, false
	}
	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetEnabledTools returns all tools that are enabled for MCP server registration
func GetEnabledTools() map[string]tools.Tool {
	mu.RLock()
	defer mu.RUnlock()

	filtered := make(map[string]tools.Tool, len(toolRegistry))
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		filtered[name] = tool
	}
	return filtered
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance
func GetCache() *cache.Cache {
	mu.RLock()
	defer mu.RUnlock()
	return sharedCache
}

// GetEnabledToolNames returns a sorted list of enabled tool names
func GetEnabledToolNames() []string {
	enabled := GetEnabledTools()
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of enabled tool names that provide extended help
func GetToolNamesWithExtendedHelp() []string {
	var names []string
	for name, tool := range GetEnabledTools() {
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PruneCache drops idle cache entries every interval until ctx is done.
func PruneCache(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := GetCache().Prune(); n > 0 && logger != nil {
				logger.WithField("count", n).Debug("Pruned idle cache entries")
			}
		}
	}
}
