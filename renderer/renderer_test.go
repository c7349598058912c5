package renderer

import (
	"strings"
	"testing"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// outline is what a rendered markdown document is made of.
type outline struct {
	headings []string
	tables   int
}

func parse(t *testing.T, md string) outline {
	t.Helper()
	if strings.HasPrefix(md, "error ") {
		t.Fatalf("rendering failed: %s", md)
	}
	source := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))
	var o outline
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			var b strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				b.Write(line.Value(source))
			}
			o.headings = append(o.headings, b.String())
		case *east.Table:
			o.tables++
		}
		return ast.WalkContinue, nil
	})
	return o
}

func trade(on string, action tj.Action, qty, price float64) tj.Trade {
	return tj.Trade{UserID: 1, AccountID: 1, Symbol: "AAPL", Class: tj.Stock, Action: action,
		Quantity: tj.Q(qty), Price: tj.M(price, "USD"), Fee: tj.M(0, "USD"), Date: date.MustParse(on)}
}

func TestRenderSummary(t *testing.T) {
	trades := []tj.Trade{
		trade("2025-01-02", tj.Buy, 10, 100),
		trade("2025-01-06", tj.Sell, 5, 110),
		trade("2025-02-03", tj.Sell, 5, 90),
	}
	s := tj.Summarize(trades, nil)
	md := RenderSummary(&s)
	o := parse(t, md)

	want := []string{"Trading Summary (all time)", "Performance", "Risk", "By Year", "By Month", "By Symbol", "By Weekday"}
	if strings.Join(o.headings, "|") != strings.Join(want, "|") {
		t.Errorf("headings = %q, want %q", o.headings, want)
	}
	if o.tables != 6 {
		t.Errorf("tables = %d, want 6", o.tables)
	}
	if !strings.Contains(md, "| Net P&L | - |") {
		t.Errorf("net P&L row missing from:\n%s", md)
	}
}

func TestRenderSummary_Empty(t *testing.T) {
	s := tj.Summarize(nil, nil)
	md := RenderSummary(&s)
	if o := parse(t, md); o.tables != 0 || !strings.Contains(md, "No closed trades.") {
		t.Errorf("empty summary = %q", md)
	}
}

func TestRenderPortfolio(t *testing.T) {
	pf := tj.Portfolio{
		Holdings: []tj.Holding{{
			Position:      tj.Position{Symbol: "AAPL", Quantity: tj.Q(5), AveragePrice: tj.M(110, "USD"), CostBasis: tj.M(550, "USD"), Multiplier: 1},
			MarketValue:   tj.M(650, "USD"),
			UnrealizedPnL: tj.M(100, "USD"),
			DayChange:     tj.M(10, "USD"),
		}},
		MarketValue: tj.M(650, "USD"), CostBasis: tj.M(550, "USD"), UnrealizedPnL: tj.M(100, "USD"), DayChange: tj.M(10, "USD"),
		Unquoted: []string{"X"},
	}
	md := RenderPortfolio(&pf)
	if o := parse(t, md); o.tables != 1 {
		t.Errorf("tables = %d, want 1 in:\n%s", o.tables, md)
	}
	for _, s := range []string{"| AAPL | 5 | $110.00 | $550.00 | $650.00 | +$100.00", "Valued at cost: X"} {
		if !strings.Contains(md, s) {
			t.Errorf("portfolio does not contain %q:\n%s", s, md)
		}
	}
}

func TestRenderImport(t *testing.T) {
	r := tj.ImportResult{Format: tj.FormatBroker, ImportedCount: 3, SkippedCount: 1, Errors: []string{"row 7: duplicate trade"}}
	md := RenderImport(&r)
	o := parse(t, md)
	if len(o.headings) != 2 || o.headings[1] != "Messages" {
		t.Errorf("headings = %q", o.headings)
	}
	if !strings.Contains(md, "- row 7: duplicate trade") {
		t.Errorf("messages missing from:\n%s", md)
	}
}

func TestRenderTrades(t *testing.T) {
	if md := RenderTrades(nil); parse(t, md).tables != 0 || !strings.Contains(md, "No trade.") {
		t.Errorf("RenderTrades(nil) = %q", md)
	}
	md := RenderTrades([]tj.Trade{trade("2025-01-02", tj.Buy, 10, 100)})
	if parse(t, md).tables != 1 || !strings.Contains(md, "| 2025-01-02 | BUY | 10 | AAPL | $100.00 |") {
		t.Errorf("RenderTrades() = %s", md)
	}
}

func TestRenderOthers(t *testing.T) {
	trades := []tj.Trade{trade("2025-01-02", tj.Buy, 10, 100), trade("2025-01-06", tj.Sell, 10, 110)}
	dash := tj.Dashboard(trades, nil, date.Range{})
	divs := tj.SummarizeDividends([]tj.Dividend{{Symbol: "AAPL", Amount: tj.M(2.5, "USD"), PaymentDate: date.New(2025, 2, 14)}}, date.Range{})
	testCases := []struct {
		name string
		md   string
		want string
	}{
		{"dashboard", RenderDashboard(&dash), "Best day: 2025-01-06 +$100.00"},
		{"dividends", RenderDividends(&divs), "| AAPL | $2.50 |"},
		{"spreads", RenderSpreads(nil), "No spread detected."},
		{"positions", RenderPositions(nil), "No open position."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parse(t, tc.md)
			if !strings.Contains(tc.md, tc.want) {
				t.Errorf("%s does not contain %q:\n%s", tc.name, tc.want, tc.md)
			}
		})
	}
}
