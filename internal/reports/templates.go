package reports

import (
	"embed"
	"fmt"
)

//go:embed templates/*
var templateFS embed.FS

// TemplateLoader handles loading HTML templates and CSS styles
type TemplateLoader struct{}

// NewTemplateLoader creates a new template loader
func NewTemplateLoader() *TemplateLoader {
	return &TemplateLoader{}
}

// LoadHTMLTemplate loads the page template shared by the dashboard and stored reports
func (t *TemplateLoader) LoadHTMLTemplate() (string, error) {
	content, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		return "", fmt.Errorf("failed to read report template: %w", err)
	}
	return string(content), nil
}

// LoadCSSStyles loads the stylesheet inlined into every page
func (t *TemplateLoader) LoadCSSStyles() (string, error) {
	content, err := templateFS.ReadFile("templates/styles.css")
	if err != nil {
		return "", fmt.Errorf("failed to read styles: %w", err)
	}
	return string(content), nil
}
