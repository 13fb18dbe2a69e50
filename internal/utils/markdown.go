package utils

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var (
	mdLinkRe   = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdSyntaxRe = regexp.MustCompile("(?m)[*#>`~_]")
	spaceRe    = regexp.MustCompile(`\s+`)
)

// RenderMarkdown converts post content to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func RenderMarkdown(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// stripMarkdown removes markdown formatting for excerpt generation.
func stripMarkdown(md string) string {
	md = mdLinkRe.ReplaceAllString(md, "$1")
	md = mdSyntaxRe.ReplaceAllString(md, "")
	md = spaceRe.ReplaceAllString(md, " ")
	return strings.TrimSpace(md)
}

// GenerateExcerpt returns the description when present, otherwise the first
// length runes of the content with markdown removed.
func GenerateExcerpt(description, md string, length int) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	// Use runes to handle multi-byte characters
	runes := []rune(stripMarkdown(md))
	if len(runes) > length {
		return string(runes[:length]) + "..."
	}
	return string(runes)
}
