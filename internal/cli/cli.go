// Package cli runs catalog tools directly from the command line, in-process,
// without starting an MCP server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/registry"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

var (
	heading = color.New(color.Bold, color.FgCyan)
	subtle  = color.New(color.Faint)
)

// Runner executes CLI commands against the tool registry.
type Runner struct {
	logger *logrus.Logger
	cache  *cache.Cache
	output OutputFormat
	out    io.Writer
}

// NewRunner creates a Runner writing to out.
func NewRunner(logger *logrus.Logger, cache *cache.Cache, output OutputFormat, out io.Writer) *Runner {
	return &Runner{logger: logger, cache: cache, output: output, out: out}
}

// ListTools prints all enabled tools with the first line of their description.
func (r *Runner) ListTools() error {
	names := registry.GetEnabledToolNames()

	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		tool, ok := registry.GetTool(name)
		if !ok {
			continue
		}
		entries = append(entries, entry{Name: name, Description: firstLine(tool.Definition().Description)})
	}

	if r.output == OutputJSON {
		return r.writeJSON(entries)
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
	}
	return w.Flush()
}

// HelpTool prints the parameters of a tool and its extended help, if any.
func (r *Runner) HelpTool(name string) error {
	tool, ok := lookupTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	def := tool.Definition()

	var extended *tools.ExtendedHelp
	if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
		extended = provider.ProvideExtendedInfo()
	}

	if r.output == OutputJSON {
		return r.writeJSON(struct {
			Tool         mcp.Tool            `json:"tool"`
			ExtendedHelp *tools.ExtendedHelp `json:"extended_help,omitempty"`
		}{def, extended})
	}

	_, _ = heading.Fprintf(r.out, "Tool: %s\n\n", def.Name)
	if def.Description != "" {
		_, _ = fmt.Fprintf(r.out, "%s\n\n", def.Description)
	}

	if err := r.printParameters(def); err != nil {
		return err
	}
	if extended != nil {
		r.printExtendedHelp(extended)
	}
	return nil
}

func (r *Runner) printParameters(def mcp.Tool) error {
	props := def.InputSchema.Properties
	if len(props) == 0 {
		_, _ = fmt.Fprintln(r.out, "No parameters.")
		return nil
	}

	_, _ = heading.Fprintln(r.out, "Parameters:")

	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, pName := range names {
		pMap, ok := props[pName].(map[string]any)
		if !ok {
			continue
		}
		pType, _ := pMap["type"].(string)
		pDesc, _ := pMap["description"].(string)

		reqMark := ""
		if slices.Contains(def.InputSchema.Required, pName) {
			reqMark = " (required)"
		}
		_, _ = fmt.Fprintf(w, "  --%s\t%s\t%s%s%s\n", toFlagName(pName), pType, firstLine(pDesc), reqMark, formatEnum(pMap))
	}
	return w.Flush()
}

func (r *Runner) printExtendedHelp(help *tools.ExtendedHelp) {
	if help.WhenToUse != "" {
		_, _ = heading.Fprintln(r.out, "\nWhen to use:")
		_, _ = fmt.Fprintf(r.out, "  %s\n", help.WhenToUse)
	}
	if len(help.Examples) > 0 {
		_, _ = heading.Fprintln(r.out, "\nExamples:")
		for _, ex := range help.Examples {
			args, _ := json.Marshal(ex.Arguments)
			_, _ = fmt.Fprintf(r.out, "  %s\n    %s\n", ex.Description, args)
			if ex.ExpectedResult != "" {
				_, _ = subtle.Fprintf(r.out, "    -> %s\n", ex.ExpectedResult)
			}
		}
	}
	if len(help.Troubleshooting) > 0 {
		_, _ = heading.Fprintln(r.out, "\nTroubleshooting:")
		for _, tip := range help.Troubleshooting {
			_, _ = fmt.Fprintf(r.out, "  %s: %s\n", tip.Problem, tip.Solution)
		}
	}
}

// RunTool executes a tool by name. args is any mix of one JSON object and
// --key=value, --key value or bare --flag arguments; flags take precedence.
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	tool, ok := lookupTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'catalog-mcp cli list' to see available tools)", name)
	}

	params, err := ParseArgs(args, tool.Definition())
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	result, err := tool.Execute(ctx, r.logger, r.cache, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}
	return r.renderResult(result)
}

// ParseArgs converts CLI arguments into tool arguments, coercing flag values
// to the types declared in the tool's input schema.
func ParseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	params := make(map[string]any)
	fromJSON := make(map[string]any)
	types := schemaTypes(def)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case strings.HasPrefix(arg, "{"):
			if err := json.Unmarshal([]byte(arg), &fromJSON); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}

		case strings.HasPrefix(arg, "--"):
			flag := strings.TrimPrefix(arg, "--")
			if key, raw, found := strings.Cut(flag, "="); found {
				param := types.param(key)
				params[param] = coerceValue(raw, types.kind[param])
				continue
			}

			param := types.param(flag)
			if types.kind[param] == "boolean" {
				params[param] = true
				continue
			}
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("flag --%s requires a value", flag)
			}
			params[param] = coerceValue(args[i], types.kind[param])

		default:
			return nil, fmt.Errorf("unexpected argument: %s (use --key=value flags or pass a JSON object)", arg)
		}
	}

	for k, v := range fromJSON {
		if _, set := params[k]; !set {
			params[k] = v
		}
	}
	return params, nil
}

// schema maps kebab-case flag names to parameters and parameters to their
// JSON Schema types.
type schema struct {
	kind   map[string]string
	byFlag map[string]string
}

func schemaTypes(def mcp.Tool) schema {
	s := schema{
		kind:   make(map[string]string, len(def.InputSchema.Properties)),
		byFlag: make(map[string]string, len(def.InputSchema.Properties)),
	}
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			s.kind[name], _ = pm["type"].(string)
		}
		s.byFlag[toFlagName(name)] = name
	}
	return s
}

func (s schema) param(flag string) string {
	if name, ok := s.byFlag[flag]; ok {
		return name
	}
	return strings.ReplaceAll(flag, "-", "_")
}

// coerceValue converts a flag value to the Go type of its JSON Schema type.
// Values that do not parse are passed through as strings.
func coerceValue(raw, schemaType string) any {
	switch schemaType {
	case "number", "integer":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
		switch strings.ToLower(raw) {
		case "yes":
			return true
		case "no":
			return false
		}
	case "array":
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return arr
		}
		parts := strings.Split(raw, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	case "object":
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			return obj
		}
	}
	return raw
}

// renderResult prints text content as is and anything else as JSON.
func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}
	if r.output == OutputJSON {
		if err := r.writeJSON(result); err != nil {
			return err
		}
	} else {
		for _, c := range result.Content {
			if text, ok := c.(mcp.TextContent); ok {
				_, _ = fmt.Fprintln(r.out, text.Text)
				continue
			}
			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				_, _ = fmt.Fprintf(r.out, "%+v\n", c)
				continue
			}
			_, _ = fmt.Fprintln(r.out, string(data))
		}
	}

	if result.IsError {
		return fmt.Errorf("tool returned an error")
	}
	return nil
}

// lookupTool finds a tool by name, also trying the kebab-case name as
// snake_case.
func lookupTool(name string) (tools.Tool, bool) {
	if tool, ok := registry.GetTool(name); ok {
		return tool, true
	}
	if snake := strings.ReplaceAll(name, "-", "_"); snake != name {
		return registry.GetTool(snake)
	}
	return nil, false
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	before, _, _ := strings.Cut(s, "\n")
	return before
}

// toFlagName converts camelCase or snake_case to kebab-case.
func toFlagName(s string) string {
	var out strings.Builder
	for i, r := range strings.ReplaceAll(s, "_", "-") {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		out.WriteRune(r)
	}
	return out.String()
}

func formatEnum(pMap map[string]any) string {
	var vals []string
	switch enum := pMap["enum"].(type) {
	case []any:
		for _, v := range enum {
			vals = append(vals, fmt.Sprint(v))
		}
	case []string:
		vals = enum
	}
	if len(vals) == 0 {
		return ""
	}
	return " [" + strings.Join(vals, "|") + "]"
}
