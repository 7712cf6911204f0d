// Package main generates markdown reference docs from the MCP tool definitions
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/config"
	"github.com/nativeui-dev/catalog-mcp/internal/registry"
	"github.com/nativeui-dev/catalog-mcp/internal/search"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/blogposts"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/components"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/sitesearch"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/storefetch"
	"github.com/sirupsen/logrus"
)

type ToolInfo struct {
	Name        string
	Description string
	OptIn       bool
	Parameters  []ParameterInfo
	Help        *tools.ExtendedHelp
}

type ParameterInfo struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
	EnumValues  []string
}

const toolTemplate = `# {{ .Name }}
{{ if .OptIn }}
> Opt-in: add ` + "`{{ .Name }}`" + ` to ENABLE_ADDITIONAL_TOOLS.
{{ end }}
{{ .Description }}

## Parameters

| Name | Type | Required | Default | Description |
|------|------|----------|---------|-------------|
{{- range .Parameters }}
| ` + "`{{ .Name }}`" + ` | {{ .Type }}{{ if .EnumValues }} ({{ join .EnumValues ", " }}){{ end }} | {{ if .Required }}yes{{ else }}no{{ end }} | {{ .Default }} | {{ .Description }} |
{{- end }}
{{ with .Help }}
{{- if .WhenToUse }}
**When to use:** {{ .WhenToUse }}
{{ end }}
{{- if .WhenNotToUse }}
**When not to use:** {{ .WhenNotToUse }}
{{ end }}
{{- if .Examples }}
## Examples
{{ range .Examples }}
### {{ .Description }}

` + "```json" + `
{{ json .Arguments }}
` + "```" + `

{{ .ExpectedResult }}
{{ end }}
{{- end }}
{{- if .Troubleshooting }}
## Troubleshooting
{{ range .Troubleshooting }}
- **{{ .Problem }}**: {{ .Solution }}
{{- end }}
{{ end }}
{{- end }}`

const indexTemplate = `# Tool reference

Generated {{ .GeneratedAt }}.

| Tool | Summary |
|------|---------|
{{- range .Tools }}
| [{{ .Name }}]({{ .Name }}.md) | {{ firstLine .Description }} |
{{- end }}
`

func main() {
	var (
		toolName  = flag.String("tool", "", "Generate docs for specific tool only")
		outputDir = flag.String("output", "docs/api", "Output directory")
	)
	flag.Parse()

	// every tool is documented, including opt-in ones
	if err := os.Setenv("ENABLE_ADDITIONAL_TOOLS", "all"); err != nil {
		fail(err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry.Init(logger, config.DefaultViewTTL)

	// Definitions only; the tools never execute here.
	registry.Register(components.New(nil))
	registry.Register(blogposts.New(nil))
	registry.Register(sitesearch.New(search.NewPageIndex(nil), nil, nil))
	registry.Register(storefetch.New(nil, config.DefaultBlogGistID))

	var infos []ToolInfo
	for _, name := range registry.GetEnabledToolNames() {
		if *toolName != "" && name != *toolName {
			continue
		}
		tool, _ := registry.GetTool(name)
		infos = append(infos, extractToolInfo(tool))
	}
	if len(infos) == 0 {
		fail(fmt.Errorf("no tools matched %q", *toolName))
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fail(err)
	}

	funcs := template.FuncMap{
		"join":      strings.Join,
		"json":      toJSON,
		"firstLine": firstLine,
	}
	toolTmpl := template.Must(template.New("tool").Funcs(funcs).Parse(toolTemplate))
	indexTmpl := template.Must(template.New("index").Funcs(funcs).Parse(indexTemplate))

	for _, info := range infos {
		if err := render(toolTmpl, filepath.Join(*outputDir, info.Name+".md"), info); err != nil {
			fail(err)
		}
		fmt.Printf("Generated %s.md\n", info.Name)
	}

	if *toolName == "" {
		data := struct {
			GeneratedAt string
			Tools       []ToolInfo
		}{
			GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
			Tools:       infos,
		}
		if err := render(indexTmpl, filepath.Join(*outputDir, "README.md"), data); err != nil {
			fail(err)
		}
		fmt.Println("Generated README.md")
	}
}

func extractToolInfo(tool tools.Tool) ToolInfo {
	def := tool.Definition()
	info := ToolInfo{
		Name:        def.Name,
		Description: def.Description,
		OptIn:       def.Name == storefetch.ToolName,
	}

	names := make([]string, 0, len(def.InputSchema.Properties))
	for name := range def.InputSchema.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		schema, _ := def.InputSchema.Properties[name].(map[string]any)
		param := ParameterInfo{
			Name:     name,
			Required: slices.Contains(def.InputSchema.Required, name),
		}
		param.Type, _ = schema["type"].(string)
		param.Description, _ = schema["description"].(string)
		if d, ok := schema["default"]; ok {
			param.Default = fmt.Sprint(d)
		}
		param.EnumValues = enumValues(schema)
		info.Parameters = append(info.Parameters, param)
	}

	if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
		info.Help = provider.ProvideExtendedInfo()
	}
	return info
}

func enumValues(schema map[string]any) []string {
	if items, ok := schema["items"].(map[string]any); ok {
		schema = items
	}
	switch values := schema["enum"].(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}

func render(tmpl *template.Template, path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(file, data); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return file.Close()
}

func toJSON(v any) string {
	result, err := tools.NewToolResultJSON(v)
	if err != nil {
		return "{}"
	}
	if text, ok := result.Content[0].(mcp.TextContent); ok {
		return text.Text
	}
	return "{}"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
