// Package cmd implements the `tj` command line over the trading journal.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/config"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/logger"
	"github.com/etnz/tradejournal/quotes"
	"github.com/etnz/tradejournal/store"
	"github.com/google/subcommands"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	databasePath = flag.String("db", "", "Path to the journal database. Defaults to TJ_DATABASE_PATH.")
	userID       = flag.Int64("user", 0, "Owner of the journal. Defaults to TJ_USER_ID.")
	accountID    = flag.Int64("account", -1, "Account to work on, 0 for every account. Defaults to TJ_ACCOUNT_ID.")
	Verbose      = flag.Bool("v", false, "log debug messages")
)

// Commands lists every subcommand of tj, by group.
var Commands = map[string][]subcommands.Command{
	"journal": {
		&importCmd{},
		&addCmd{},
		&tradesCmd{},
		&deleteCmd{},
		&dedupeCmd{},
		&accountsCmd{},
	},
	"positions": {
		&positionsCmd{},
		&holdingsCmd{},
		&recalcCmd{},
	},
	"reports": {
		&summaryCmd{},
		&dashboardCmd{},
		&dividendsCmd{},
		&spreadsCmd{},
		&publishCmd{},
	},
	"tools": {
		&serveCmd{},
		&assistCmd{},
		&topicCmd{},
	},
}

// Config returns the configuration with the global flags applied.
func Config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if *databasePath != "" {
		cfg.DatabasePath = *databasePath
	}
	if *userID != 0 {
		cfg.UserID = *userID
	}
	if *accountID >= 0 {
		cfg.AccountID = *accountID
	}
	if *Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// app is the journal opened by a subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *store.SQLite
	svc    *tj.Service
}

// openApp opens the journal database. Callers must close it. Servers log JSON.
func openApp(json bool) (*app, error) {
	cfg, err := Config()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	l := logger.InitLogger(cfg.LogLevel, json)
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, err
	}
	db, err := store.OpenSQLite(cfg.DatabasePath, l)
	if err != nil {
		return nil, err
	}
	q := quotes.NewYahoo(cfg.QuotesURL, cfg.QuotesTTL, l)
	return &app{cfg: cfg, logger: l, db: db, svc: tj.NewService(db, q, l)}, nil
}

func (a *app) Close() error { return a.db.Close() }

// run opens the journal, calls f and reports its error.
func run(ctx context.Context, f func(ctx context.Context, a *app) error) subcommands.ExitStatus {
	a, err := openApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the journal: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ctx = logger.ToContext(ctx, a.logger)
	if err := f(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// requireAccount returns the configured account, or an error when none is.
func (a *app) requireAccount() (int64, error) {
	if a.cfg.AccountID == 0 {
		return 0, fmt.Errorf("no account selected, use -account or TJ_ACCOUNT_ID (see `tj accounts`)")
	}
	return a.cfg.AccountID, nil
}

// rangeFlags holds the -from and -to flags of reports.
type rangeFlags struct {
	from, to string
}

func (r *rangeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.from, "from", "", "First day of the report. See `tj topic dates` for the formats.")
	f.StringVar(&r.to, "to", "", "Last day of the report. Defaults to today when -from is set.")
}

// Range parses the flags. No flag at all selects the whole journal.
func (r *rangeFlags) Range() (date.Range, error) {
	var rg date.Range
	var err error
	if r.from != "" {
		if rg.From, err = date.Parse(r.from); err != nil {
			return rg, err
		}
	}
	if r.to != "" {
		if rg.To, err = date.Parse(r.to); err != nil {
			return rg, err
		}
	}
	if !rg.From.IsZero() && rg.To.IsZero() {
		rg.To = date.Today()
	}
	if !rg.From.IsZero() && !rg.To.IsZero() {
		rg = date.NewRange(rg.From, rg.To)
	}
	return rg, nil
}

// printMarkdown renders md for the terminal, raw when it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
