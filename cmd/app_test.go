package cmd

import (
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/store"
	"github.com/google/subcommands"
)

// useJournal points the global flags to a fresh database.
func useJournal(t *testing.T, account int64) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	*databasePath, *accountID = db, account
	t.Setenv("TJ_USER_ID", "")
	t.Cleanup(func() { *databasePath, *accountID = "", -1 })
	return db
}

func execute(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatal(err)
	}
	return c.Execute(context.Background(), f)
}

func TestImportCommand(t *testing.T) {
	db := useJournal(t, 1)

	if got := execute(t, &accountsCmd{}, "-create", "brokerage"); got != subcommands.ExitSuccess {
		t.Fatalf("accounts -create = %v", got)
	}
	if got := execute(t, &importCmd{}, "../testdata/broker.csv"); got != subcommands.ExitSuccess {
		t.Fatalf("import = %v", got)
	}
	if got := execute(t, &importCmd{}); got != subcommands.ExitUsageError {
		t.Errorf("import without file = %v, want a usage error", got)
	}

	s, err := store.OpenSQLite(db, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	trades, err := s.ListTrades(context.Background(), tj.Filter{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 5 {
		t.Errorf("imported %d trades, want 5", len(trades))
	}
}

func TestImportCommand_NoAccount(t *testing.T) {
	useJournal(t, 0)
	if got := execute(t, &importCmd{}, "../testdata/broker.csv"); got != subcommands.ExitFailure {
		t.Errorf("import without account = %v, want a failure", got)
	}
}

func TestAddCmd_Trade(t *testing.T) {
	c := &addCmd{date: "2025-05-01", action: "sto", symbol: "aapl250516c00150000", quantity: "1", price: "2.5", fee: "0.65", currency: "USD"}
	got, err := c.trade()
	if err != nil {
		t.Fatal(err)
	}
	if got.Class != tj.Option || got.Option == nil || got.Option.Underlying != "AAPL" {
		t.Fatalf("trade() = %+v, want an AAPL option", got)
	}
	if got.Action != tj.SellToOpen || !got.Opening {
		t.Errorf("action = %s opening %v, want an opening SELL_TO_OPEN", got.Action, got.Opening)
	}
	if !got.Price.Equal(tj.M(2.5, "USD")) || got.Date != date.New(2025, 5, 1) {
		t.Errorf("trade() = %s on %s", got.Price, got.Date)
	}

	c.quantity = "many"
	if _, err := c.trade(); err == nil {
		t.Error("trade() with an invalid quantity: want an error")
	}
}

func TestRangeFlags(t *testing.T) {
	tests := []struct {
		from, to string
		want     date.Range
	}{
		{},
		{from: "2025-01-01", to: "2025-03-31", want: date.Range{From: date.New(2025, 1, 1), To: date.New(2025, 3, 31)}},
		{from: "2025-03-31", to: "2025-01-01", want: date.Range{From: date.New(2025, 1, 1), To: date.New(2025, 3, 31)}},
		{from: "2025-01-01", want: date.Range{From: date.New(2025, 1, 1), To: date.Today()}},
		{to: "2025-01-01", want: date.Range{To: date.New(2025, 1, 1)}},
	}
	for _, tc := range tests {
		r := rangeFlags{from: tc.from, to: tc.to}
		got, err := r.Range()
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("Range(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSummaryCmd_Period(t *testing.T) {
	c := &summaryCmd{rangeFlags: rangeFlags{to: "2025-05-14"}, period: "quarter"}
	got, err := c.reportRange()
	if err != nil {
		t.Fatal(err)
	}
	if want := (date.Range{From: date.New(2025, 4, 1), To: date.New(2025, 6, 30)}); got != want {
		t.Errorf("reportRange() = %v, want %v", got, want)
	}
}

func TestAccountsMarkdown(t *testing.T) {
	md := accountsMarkdown([]tj.Account{{ID: 2, Name: "ira", Broker: "schwab"}})
	if !strings.Contains(md, "| 2 | ira | schwab |") {
		t.Errorf("accountsMarkdown() = %q", md)
	}
	if md := accountsMarkdown(nil); strings.Contains(md, "| ID |") {
		t.Errorf("accountsMarkdown(nil) = %q, want no table", md)
	}
}
