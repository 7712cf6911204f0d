package telemetry

import (
	"encoding/json"
	"strings"
)

// argument keys that are never exported as span attributes
var secretArgKeys = map[string]bool{
	"token":         true,
	"access_token":  true,
	"authorization": true,
	"password":      true,
	"secret":        true,
}

// SanitiseArguments renders tool arguments as JSON with secret-looking keys
// redacted.
func SanitiseArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	clean := make(map[string]any, len(args))
	for k, v := range args {
		if secretArgKeys[strings.ToLower(k)] {
			clean[k] = "[REDACTED]"
			continue
		}
		clean[k] = v
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// TruncateString cuts s to maxLen bytes, marking the cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
