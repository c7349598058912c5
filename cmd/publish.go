package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

// reportTask is one report file to publish. It is the data of the front matter template.
type reportTask struct {
	Period date.Range
	Report string
}

type publishCmd struct {
	outputDir      string
	frontMatterTpl string
}

func (*publishCmd) Name() string { return "publish" }

func (*publishCmd) Synopsis() string { return "generates the historical reports of the journal" }

func (*publishCmd) Usage() string {
	return `tj publish [-o <dir>] [-frontmatter <file>]

  Generates the summary and dividends reports of every month, quarter and year
  since the first trade, and saves them to a structured directory tree:
  <dir>/<report>/<period>/<identifier>.md
`
}

func (c *publishCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "o", "reports", "Root directory for the generated reports")
	f.StringVar(&c.frontMatterTpl, "frontmatter", "", "Path to a Go template file for the report front matter")
}

func (c *publishCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var frontMatterTpl *template.Template
	if c.frontMatterTpl != "" {
		var err error
		frontMatterTpl, err = template.ParseFiles(c.frontMatterTpl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse front matter template: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	return run(ctx, func(ctx context.Context, a *app) error {
		trades, err := a.svc.Trades(ctx, tj.Filter{UserID: a.cfg.UserID, AccountID: a.cfg.AccountID})
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			fmt.Println("Journal is empty, nothing to publish.")
			return nil
		}

		for _, period := range generatePeriods(trades[0].Date, date.Today()) {
			for _, report := range []string{"summary", "dividends"} {
				task := reportTask{Period: period, Report: report}
				var md string
				switch report {
				case "summary":
					s, err := a.svc.ComputeSummary(ctx, a.cfg.UserID, a.cfg.AccountID, period)
					if err != nil {
						return fmt.Errorf("failed to compute summary for %s: %w", period, err)
					}
					md = renderer.RenderSummary(&s)
				case "dividends":
					d, err := a.svc.DividendSummary(ctx, a.cfg.UserID, a.cfg.AccountID, period)
					if err != nil {
						return fmt.Errorf("failed to compute dividends for %s: %w", period, err)
					}
					md = renderer.RenderDividends(&d)
				}
				if err := c.write(task, md, frontMatterTpl); err != nil {
					return err
				}
				a.logger.Debug("generated report", "report", report, "period", period.Identifier())
			}
		}
		return nil
	})
}

// write saves md, prefixed with its front matter, to the file of task.
func (c *publishCmd) write(task reportTask, md string, frontMatterTpl *template.Template) error {
	if frontMatterTpl != nil {
		fm, err := renderFrontMatter(frontMatterTpl, task)
		if err != nil {
			return fmt.Errorf("failed to render front matter for %s report %s: %w", task.Report, task.Period.Identifier(), err)
		}
		md = fm + "\n" + md
	}
	p, _ := task.Period.Period()
	fullPath := filepath.Join(c.outputDir, task.Report, p.String(), task.Period.Identifier()+".md")
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, []byte(md), 0644)
}

// generatePeriods returns the months, quarters and years overlapping start..end.
func generatePeriods(start, end date.Date) []date.Range {
	if start.IsZero() || start.After(end) {
		return nil
	}
	var ranges []date.Range
	span := date.NewRange(start, end)
	for _, p := range []date.Period{date.Monthly, date.Quarterly, date.Yearly} {
		for r := range span.Periods(p) {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

func renderFrontMatter(tpl *template.Template, task reportTask) (string, error) {
	var b bytes.Buffer
	if err := tpl.Execute(&b, task); err != nil {
		return "", err
	}
	return b.String(), nil
}
