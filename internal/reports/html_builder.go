package reports

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// HTMLBuilder handles HTML generation with goldmark
type HTMLBuilder struct {
	templateLoader *TemplateLoader
	goldmark       goldmark.Markdown
	page           *template.Template
	css            string
}

// NewHTMLBuilder creates an HTML builder. The embedded page template is
// parsed once here.
func NewHTMLBuilder() (*HTMLBuilder, error) {
	// raw HTML stays escaped: table cells carry upstream names
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	loader := NewTemplateLoader()
	htmlTemplate, err := loader.LoadHTMLTemplate()
	if err != nil {
		return nil, err
	}
	css, err := loader.LoadCSSStyles()
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"safeCSS": func(s string) template.CSS {
			return template.CSS(s)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &HTMLBuilder{
		templateLoader: loader,
		goldmark:       md,
		page:           tmpl,
		css:            css,
	}, nil
}

// ConvertMarkdownToHTML converts markdown to HTML using goldmark
func (h *HTMLBuilder) ConvertMarkdownToHTML(markdownContent string) (string, error) {
	var buf bytes.Buffer
	if err := h.goldmark.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// BuildPage renders a complete HTML document. Markdown is converted and
// placed in the summary section; the stylesheet is inlined.
func (h *HTMLBuilder) BuildPage(data PageData, markdownContent string) (string, error) {
	content, err := h.ConvertMarkdownToHTML(markdownContent)
	if err != nil {
		return "", err
	}
	data.Content = template.HTML(content)
	data.CSS = h.css

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
