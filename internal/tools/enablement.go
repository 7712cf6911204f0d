package tools

import (
	"os"
	"strings"
)

// IsToolEnabled checks if a tool is enabled via the ENABLE_ADDITIONAL_TOOLS environment variable.
// The environment variable should contain a comma-separated list of tool names, or "all".
// Tool names are case-insensitive and underscores and hyphens are interchangeable.
//
// Example: ENABLE_ADDITIONAL_TOOLS="store_fetch"
func IsToolEnabled(toolName string) bool {
	enabledTools := strings.TrimSpace(os.Getenv("ENABLE_ADDITIONAL_TOOLS"))
	if enabledTools == "" {
		return false
	}
	if strings.EqualFold(enabledTools, "all") {
		return true
	}

	normalisedToolName := NormaliseToolName(toolName)
	for tool := range strings.SplitSeq(enabledTools, ",") {
		if NormaliseToolName(tool) == normalisedToolName {
			return true
		}
	}

	return false
}

// NormaliseToolName lowercases a tool name and replaces underscores with hyphens.
func NormaliseToolName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
}
