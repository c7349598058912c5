// Package renderer renders the journal reports as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	tj "github.com/etnz/tradejournal"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

var funcs = template.FuncMap{
	"join": strings.Join,
	"premium": func(g tj.SpreadGroup) string {
		if len(g.Legs) == 0 {
			return "-"
		}
		return tj.M(g.NetPremium, g.Legs[0].Currency()).SignedString()
	},
}

// RenderSummary renders the trading summary.
func RenderSummary(s *tj.TradingSummary) string {
	partials := map[string]string{
		"summary_performance": "summary_performance.md",
		"summary_risk":        "summary_risk.md",
		"summary_breakdown":   "summary_breakdown.md",
	}
	return renderTemplate("summary", "summary.md", partials, s)
}

// RenderPortfolio renders the holdings valued at their quotes.
func RenderPortfolio(p *tj.Portfolio) string {
	return renderTemplate("portfolio", "portfolio.md", nil, p)
}

// RenderSpreads renders a list of spread groups.
func RenderSpreads(groups []tj.SpreadGroup) string {
	return renderTemplate("spreads", "spreads.md", nil, groups)
}

// RenderImport renders the outcome of an import.
func RenderImport(r *tj.ImportResult) string {
	return renderTemplate("import", "import.md", nil, r)
}

// RenderDashboard renders the dashboard time series.
func RenderDashboard(m *tj.DashboardMetrics) string {
	return renderTemplate("dashboard", "dashboard.md", nil, m)
}

// RenderDividends renders the dividend summary.
func RenderDividends(d *tj.DividendSummary) string {
	return renderTemplate("dividends", "dividends.md", nil, d)
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
