package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// markdown is shared by all renders. Raw HTML in documents is passed through
// untouched: store content is trusted and is not sanitised here.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithUnsafe(),
	),
)

var htmlConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// RenderMarkdown converts markdown to HTML.
func RenderMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// HTMLToMarkdown converts rendered HTML back to markdown for clients that
// prefer it over HTML.
func HTMLToMarkdown(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}
	md, err := htmlConverter.ConvertString(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Summary extracts the visible text of an HTML fragment, collapsed to single
// spaces and cut at a word boundary once it exceeds maxLen runes.
func Summary(htmlContent string, maxLen int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	doc.Find("script, style, pre").Remove()

	text := strings.TrimSpace(whitespaceRun.ReplaceAllString(doc.Text(), " "))
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}

	cut := string(runes[:maxLen])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// Slugify lowercases s and replaces each run of whitespace with one hyphen.
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}
