// Package renderer turns reconciled histories into markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/brcarteira/carteira"
)

//go:embed templates/*.md
var templateFS embed.FS

// templates holds the report templates, an assembly (history.md) and its
// partials (history_*.md).
var templates, _ = fs.Sub(templateFS, "templates")

var funcs = template.FuncMap{
	"optional": carteira.OptionalPercent,
}

// RenderHistory renders the History struct to a markdown string.
func RenderHistory(h *History) string {
	partials := map[string]string{
		"history_title":   "history_title.md",
		"history_summary": "history_summary.md",
		"history_table":   "history_table.md",
	}
	return renderTemplate("history", "history.md", partials, h)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
