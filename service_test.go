package tradejournal_test

import (
	"context"
	"errors"
	"os"
	"testing"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/store"
	"github.com/google/go-cmp/cmp"
)

type fakeQuotes map[string]tj.Quote

func (f fakeQuotes) GetQuotes(_ context.Context, symbols []string) (map[string]tj.Quote, error) {
	res := make(map[string]tj.Quote)
	for _, s := range symbols {
		if q, ok := f[s]; ok {
			res[s] = q
		}
	}
	return res, nil
}

func newService(t *testing.T, quotes tj.QuoteProvider) (*tj.Service, tj.Account) {
	t.Helper()
	s := tj.NewService(store.NewMemory(), quotes, nil)
	acc, err := s.CreateAccount(context.Background(), tj.Account{UserID: 1, Name: "brokerage"})
	if err != nil {
		t.Fatal(err)
	}
	return s, acc
}

func importBroker(t *testing.T, s *tj.Service, acc tj.Account) tj.ImportResult {
	t.Helper()
	content, err := os.ReadFile("testdata/broker.csv")
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.ImportFile(context.Background(), content, acc.UserID, acc.ID, tj.FormatAuto)
	if err != nil {
		t.Fatalf("ImportFile() failed: %v", err)
	}
	return res
}

func TestService_ImportFile(t *testing.T) {
	ctx := context.Background()
	s, acc := newService(t, nil)

	res := importBroker(t, s, acc)
	want := tj.ImportResult{Format: tj.FormatBroker, ImportedCount: 5, DividendsImportedCount: 1, Errors: []string{}, SpreadsDetected: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("ImportFile() mismatch (-want +got):\n%s", diff)
	}

	positions, err := s.Positions(ctx, 1, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	var symbols []string
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	if diff := cmp.Diff([]string{"AAPL", "AAPL250516C00150000"}, symbols); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	if aapl := positions[0]; !aapl.Quantity.Equal(tj.Q(5)) || !aapl.AveragePrice.Equal(tj.M(110, "USD")) {
		t.Errorf("AAPL position = %s @ %s, want 5 @ 110", aapl.Quantity, aapl.AveragePrice)
	}

	sum, err := s.ComputeSummary(ctx, 1, acc.ID, date.Range{})
	if err != nil {
		t.Fatal(err)
	}
	// The AAPL sale realizes 249.98. The $155 call is sold to open with no long lot
	// to close, so its 499.33 credit is realized at zero cost.
	if !sum.NetPnL.Equal(tj.M(749.31, "USD")) || sum.ClosedTrades != 2 {
		t.Errorf("NetPnL = %s over %d trades, want $749.31 over 2", sum.NetPnL, sum.ClosedTrades)
	}

	spreads, err := s.Spreads(ctx, 1, acc.ID, date.Range{})
	if err != nil {
		t.Fatal(err)
	}
	if len(spreads) != 1 || spreads[0].Type != tj.CreditSpread || spreads[0].Name != "Credit Call Spread" || len(spreads[0].Legs) != 2 {
		t.Errorf("Spreads() = %+v, want one credit call spread", spreads)
	}
}

func TestService_ImportTwice(t *testing.T) {
	ctx := context.Background()
	s, acc := newService(t, nil)
	importBroker(t, s, acc)
	before, _ := s.Positions(ctx, 1, acc.ID)

	res := importBroker(t, s, acc)
	if res.ImportedCount != 0 || res.DividendsImportedCount != 0 || res.SkippedCount != 6 || res.SpreadsDetected != 0 {
		t.Errorf("second import = %+v, want everything skipped", res)
	}
	after, _ := s.Positions(ctx, 1, acc.ID)
	if diff := cmp.Diff(before, after, cmp.Comparer(func(a, b tj.Position) bool {
		return a.Symbol == b.Symbol && a.Quantity.Equal(b.Quantity) && a.CostBasis.Equal(b.CostBasis)
	})); diff != "" {
		t.Errorf("positions changed (-before +after):\n%s", diff)
	}
}

// failingBatch is a Store whose batch saves fail.
type failingBatch struct{ tj.Store }

func (failingBatch) SaveBatch(context.Context, []tj.Trade, []tj.Dividend) ([]tj.Trade, []tj.Dividend, error) {
	return nil, nil, errors.New("disk full")
}

func TestService_ImportFailedSave(t *testing.T) {
	ctx := context.Background()
	s := tj.NewService(failingBatch{store.NewMemory()}, nil, nil)
	acc, err := s.CreateAccount(ctx, tj.Account{UserID: 1, Name: "brokerage"})
	if err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile("testdata/broker.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ImportFile(ctx, content, 1, acc.ID, tj.FormatAuto); err == nil {
		t.Fatal("ImportFile() with a failing store: want an error")
	}
	trades, _ := s.Trades(ctx, tj.Filter{UserID: 1, AccountID: acc.ID})
	dividends, _ := s.Store.ListDividends(ctx, tj.Filter{UserID: 1, AccountID: acc.ID})
	positions, _ := s.Positions(ctx, 1, acc.ID)
	if len(trades) != 0 || len(dividends) != 0 || len(positions) != 0 {
		t.Errorf("after a failed import: %d trades, %d dividends, %d positions, want none", len(trades), len(dividends), len(positions))
	}
}

func TestService_ImportUnknownAccount(t *testing.T) {
	s, acc := newService(t, nil)
	_, err := s.ImportFile(context.Background(), []byte("garbage"), 2, acc.ID, tj.FormatAuto)
	if !errors.Is(err, tj.ErrAccountNotFound) {
		t.Errorf("ImportFile() for another user = %v, want ErrAccountNotFound", err)
	}
}

func TestService_RecalculateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, acc := newService(t, nil)
	importBroker(t, s, acc)
	first, _ := s.Positions(ctx, 1, acc.ID)
	for range 2 {
		if err := s.RecalculatePositions(ctx, 1, acc.ID); err != nil {
			t.Fatal(err)
		}
	}
	second, _ := s.Positions(ctx, 1, acc.ID)
	if len(first) != len(second) {
		t.Fatalf("positions = %d after recalculation, want %d", len(second), len(first))
	}
	for i := range first {
		if !first[i].CostBasis.Equal(second[i].CostBasis) || !first[i].Quantity.Equal(second[i].Quantity) {
			t.Errorf("position %s changed: %+v -> %+v", first[i].Symbol, first[i], second[i])
		}
	}
}

func TestService_TradeLifecycle(t *testing.T) {
	ctx := context.Background()
	s, acc := newService(t, nil)
	buy := tj.Trade{UserID: 1, AccountID: acc.ID, Symbol: "MSFT", Class: tj.Stock, Action: tj.Buy,
		Quantity: tj.Q(10), Price: tj.M(400, "USD"), Fee: tj.M(0, "USD"), Date: date.New(2025, 1, 2)}

	saved, err := s.AddTrade(ctx, buy)
	if err != nil {
		t.Fatalf("AddTrade() failed: %v", err)
	}
	dup := buy
	if _, err := s.AddTrade(ctx, dup); err != nil {
		t.Fatalf("AddTrade() failed: %v", err)
	}
	positions, _ := s.Positions(ctx, 1, acc.ID)
	if len(positions) != 1 || !positions[0].Quantity.Equal(tj.Q(20)) {
		t.Fatalf("positions = %+v, want 20 MSFT", positions)
	}

	n, err := s.CleanupDuplicates(ctx, 1, acc.ID)
	if err != nil || n != 1 {
		t.Fatalf("CleanupDuplicates() = %d, %v, want 1", n, err)
	}
	positions, _ = s.Positions(ctx, 1, acc.ID)
	if len(positions) != 1 || !positions[0].Quantity.Equal(tj.Q(10)) {
		t.Fatalf("positions = %+v, want 10 MSFT", positions)
	}

	saved.Quantity = tj.Q(4)
	if _, err := s.UpdateTrade(ctx, saved); err != nil {
		t.Fatalf("UpdateTrade() failed: %v", err)
	}
	positions, _ = s.Positions(ctx, 1, acc.ID)
	if len(positions) != 1 || !positions[0].Quantity.Equal(tj.Q(4)) {
		t.Fatalf("positions = %+v, want 4 MSFT", positions)
	}

	if err := s.DeleteTrade(ctx, 1, saved.ID); err != nil {
		t.Fatalf("DeleteTrade() failed: %v", err)
	}
	if positions, _ = s.Positions(ctx, 1, acc.ID); len(positions) != 0 {
		t.Errorf("positions = %+v, want none", positions)
	}
	if err := s.DeleteTrade(ctx, 1, saved.ID); !errors.Is(err, tj.ErrNotFound) {
		t.Errorf("second DeleteTrade() = %v, want ErrNotFound", err)
	}
}

func TestService_DeleteAllTrades(t *testing.T) {
	ctx := context.Background()
	s, acc := newService(t, nil)
	importBroker(t, s, acc)
	n, err := s.DeleteAllTrades(ctx, 1, acc.ID)
	if err != nil || n != 5 {
		t.Fatalf("DeleteAllTrades() = %d, %v, want 5", n, err)
	}
	if positions, _ := s.Positions(ctx, 1, acc.ID); len(positions) != 0 {
		t.Errorf("positions = %+v, want none", positions)
	}
	if divs, _ := s.DividendSummary(ctx, 1, acc.ID, date.Range{}); divs.Count != 0 {
		t.Errorf("dividends = %d, want none", divs.Count)
	}
}

func TestService_PortfolioWithQuotes(t *testing.T) {
	ctx := context.Background()
	s, acc := newService(t, fakeQuotes{
		"AAPL": {Symbol: "AAPL", Price: tj.M(130, "USD"), Change: tj.M(2, "USD")},
	})
	importBroker(t, s, acc)

	pf, err := s.PortfolioWithQuotes(ctx, 1, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pf.Holdings) != 2 {
		t.Fatalf("holdings = %d, want 2", len(pf.Holdings))
	}
	aapl := pf.Holdings[0]
	if !aapl.MarketValue.Equal(tj.M(650, "USD")) || !aapl.UnrealizedPnL.Equal(tj.M(100, "USD")) || !aapl.DayChange.Equal(tj.M(10, "USD")) {
		t.Errorf("AAPL holding = value %s pnl %s change %s, want 650, 100, 10", aapl.MarketValue, aapl.UnrealizedPnL, aapl.DayChange)
	}
	if diff := cmp.Diff([]string{"AAPL250516C00150000"}, pf.Unquoted); diff != "" {
		t.Errorf("unquoted mismatch (-want +got):\n%s", diff)
	}
}

func TestService_DividendSummary(t *testing.T) {
	s, acc := newService(t, nil)
	importBroker(t, s, acc)
	got, err := s.DividendSummary(context.Background(), 1, acc.ID, date.Range{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 1 || !got.Total.Equal(tj.M(2.5, "USD")) {
		t.Errorf("DividendSummary() = %d dividends, total %s; want 1, $2.50", got.Count, got.Total)
	}
	if len(got.ByYear) != 1 || got.ByYear[0].Period != "2025" {
		t.Errorf("ByYear = %+v, want 2025 only", got.ByYear)
	}
}
