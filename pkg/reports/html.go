// Package reports renders the dashboard as terminal tables, a static HTML
// page or a live HTTP endpoint.
package reports

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"

	"bikedash/pkg/observability"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Add check on validation
func validateEmbeddedTemplates() error {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read embedded templates root: %w", err)
	}

	if len(entries) == 0 {
		return fmt.Errorf("no embedded templates found (go:embed likely misconfigured)")
	}

	for _, e := range entries {
		if !e.IsDir() && e.Name() == "index.html" {
			return nil
		}
	}
	return fmt.Errorf("index.html not found in embedded templates")
}

type pageData struct {
	View  DashboardView
	Chart template.HTML
}

func parseTemplate() (*template.Template, error) {
	tplBytes, err := templatesFS.ReadFile("templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	tpl, err := template.New("report").Funcs(template.FuncMap{
		// Percent helper used for the band counts.
		"pct": func(part, total int) int {
			if total <= 0 {
				return 0
			}
			return int(float64(part) / float64(total) * 100.0)
		},
	}).Parse(string(tplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return tpl, nil
}

// RenderHTML writes the full dashboard page for view.
func RenderHTML(w io.Writer, view DashboardView) error {
	tpl, err := parseTemplate()
	if err != nil {
		return err
	}

	data := pageData{View: view}
	if len(view.Chart) > 0 {
		data.Chart, err = RenderPieFragment(view.Chart)
		if err != nil {
			return err
		}
	}

	// Render into a buffer so a template error never leaves a half page behind.
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	observability.ObserveRender(observability.FormatHTML, len(view.Chart))
	return nil
}

// GenerateHTMLReport writes the dashboard page to outputPath.
func GenerateHTMLReport(view DashboardView, outputPath string) error {
	if err := validateEmbeddedTemplates(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := RenderHTML(&buf, view); err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	slog.Info("html report written", "path", outputPath, "chart_rows", len(view.Chart))
	return nil
}
