package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	rangeFlags
	period string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the trading performance summary" }
func (*summaryCmd) Usage() string {
	return `tj summary [-from <date>] [-to <date>] [-p day|week|month|quarter|year]

  Displays the performance statistics of the closed trades of a range, the
  whole journal by default. With -p, the range is the period containing -to
  (today by default).
  See 'tj topic statistics' for the definition of every metric.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.rangeFlags.SetFlags(f)
	f.StringVar(&c.period, "p", "", "Report on the calendar period containing -to")
}

// reportRange returns the range of the report.
func (c *summaryCmd) reportRange() (date.Range, error) {
	if c.period == "" {
		return c.Range()
	}
	p, err := date.ParsePeriod(c.period)
	if err != nil {
		return date.Range{}, err
	}
	on := date.Today()
	if c.to != "" {
		if on, err = date.Parse(c.to); err != nil {
			return date.Range{}, err
		}
	}
	return p.Range(on), nil
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := c.reportRange()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing range: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		s, err := a.svc.ComputeSummary(ctx, a.cfg.UserID, a.cfg.AccountID, r)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderSummary(&s))
		return nil
	})
}

// dashboardCmd holds the flags for the 'dashboard' subcommand.
type dashboardCmd struct {
	rangeFlags
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "display the headline metrics" }
func (*dashboardCmd) Usage() string {
	return `tj dashboard [-from <date>] [-to <date>]

  Displays the headline metrics of a range and its daily P&L.
`
}

func (c *dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := c.Range()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		m, err := a.svc.ComputeDashboardMetrics(ctx, a.cfg.UserID, a.cfg.AccountID, r)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderDashboard(&m))
		return nil
	})
}

// dividendsCmd holds the flags for the 'dividends' subcommand.
type dividendsCmd struct {
	rangeFlags
}

func (*dividendsCmd) Name() string     { return "dividends" }
func (*dividendsCmd) Synopsis() string { return "summarize the dividends received" }
func (*dividendsCmd) Usage() string {
	return `tj dividends [-from <date>] [-to <date>]

  Totals the dividends paid in a range, by symbol, year and type.
`
}

func (c *dividendsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := c.Range()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		d, err := a.svc.DividendSummary(ctx, a.cfg.UserID, a.cfg.AccountID, r)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderDividends(&d))
		return nil
	})
}

// spreadsCmd holds the flags for the 'spreads' subcommand.
type spreadsCmd struct {
	rangeFlags
	detect bool
}

func (*spreadsCmd) Name() string     { return "spreads" }
func (*spreadsCmd) Synopsis() string { return "list the option spreads" }
func (*spreadsCmd) Usage() string {
	return `tj spreads [-detect] [-from <date>] [-to <date>]

  Lists the option strategies of the journal. With -detect, the opening legs
  of the account are grouped again first.
  See 'tj topic spreads' for the recognized strategies.
`
}

func (c *spreadsCmd) SetFlags(f *flag.FlagSet) {
	c.rangeFlags.SetFlags(f)
	f.BoolVar(&c.detect, "detect", false, "Run the spread detector on the account before listing")
}

func (c *spreadsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := c.Range()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		if c.detect {
			account, err := a.requireAccount()
			if err != nil {
				return err
			}
			groups, err := a.svc.DetectSpreads(ctx, a.cfg.UserID, account)
			if err != nil {
				return err
			}
			fmt.Printf("Detected %d spreads.\n", len(groups))
		}
		groups, err := a.svc.Spreads(ctx, a.cfg.UserID, a.cfg.AccountID, r)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderSpreads(groups))
		return nil
	})
}
