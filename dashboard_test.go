package tradejournal

import (
	"testing"

	"github.com/etnz/tradejournal/date"
	"github.com/google/go-cmp/cmp"
)

type dayRow struct {
	Date                               string
	PnL, Dividends, Cumulative, Equity float64
}

type periodRow struct {
	Period string
	Amount float64
}

func dayRows(points []DailyPoint) []dayRow {
	var res []dayRow
	for _, p := range points {
		res = append(res, dayRow{p.Date.String(), p.PnL.Float(), p.Dividends.Float(), p.Cumulative.Float(), p.Equity.Float()})
	}
	return res
}

func periodRows(amounts []PeriodAmount) []periodRow {
	var res []periodRow
	for _, a := range amounts {
		res = append(res, periodRow{a.Period, a.Amount.Float()})
	}
	return res
}

func dayOf(p *DailyPoint) string {
	if p == nil {
		return ""
	}
	return p.Date.String()
}

func TestDashboard(t *testing.T) {
	msftBuy := stock(4, "2025-02-03", Buy, "MSFT", 2, 400)
	msftBuy.Fee = USD(1)
	msftSell := stock(5, "2025-03-05", Sell, "MSFT", 2, 420)
	msftSell.Fee = USD(1)
	trades := []Trade{
		stock(1, "2025-01-02", Buy, "AAPL", 10, 100),
		stock(2, "2025-01-10", Sell, "AAPL", 5, 110), // +50
		stock(3, "2025-02-03", Sell, "AAPL", 5, 90),  // -50
		msftBuy,
		msftSell, // 840 - 800 - 2 fees = +38
	}
	dividends := []Dividend{
		{ID: 1, UserID: 1, AccountID: 1, Symbol: "AAPL", Amount: USD(2.5), Type: QualifiedDividend, PaymentDate: date.New(2025, 2, 14)},
		{ID: 2, UserID: 1, AccountID: 1, Symbol: "MSFT", Amount: USD(1.5), Type: QualifiedDividend, PaymentDate: date.New(2025, 3, 5)},
	}

	testCases := []struct {
		name             string
		r                date.Range
		daily            []dayRow
		monthlyPnL       []periodRow
		monthlyDividends []periodRow
		realized         float64
		dividends        float64
		fees             float64
		closed           int
		best, worst      string
	}{
		{
			name: "whole journal",
			daily: []dayRow{
				{"2025-01-10", 50, 0, 50, 50},
				{"2025-02-03", -50, 0, 0, 0},
				{"2025-02-14", 0, 2.5, 0, 2.5},
				{"2025-03-05", 38, 1.5, 38, 42},
			},
			monthlyPnL:       []periodRow{{"2025-01", 50}, {"2025-02", -50}, {"2025-03", 38}},
			monthlyDividends: []periodRow{{"2025-02", 2.5}, {"2025-03", 1.5}},
			realized:         38, dividends: 4, fees: 2, closed: 3,
			best: "2025-01-10", worst: "2025-02-03",
		},
		{
			// The February loss is still matched against the January lot.
			name: "range excludes early realizations",
			r:    date.NewRange(date.New(2025, 2, 1), date.New(2025, 3, 31)),
			daily: []dayRow{
				{"2025-02-03", -50, 0, -50, -50},
				{"2025-02-14", 0, 2.5, -50, -47.5},
				{"2025-03-05", 38, 1.5, -12, -8},
			},
			monthlyPnL:       []periodRow{{"2025-02", -50}, {"2025-03", 38}},
			monthlyDividends: []periodRow{{"2025-02", 2.5}, {"2025-03", 1.5}},
			realized:         -12, dividends: 4, fees: 2, closed: 2,
			best: "2025-03-05", worst: "2025-02-03",
		},
		{
			name:             "dividend only",
			r:                date.NewRange(date.New(2025, 2, 10), date.New(2025, 2, 20)),
			daily:            []dayRow{{"2025-02-14", 0, 2.5, 0, 2.5}},
			monthlyDividends: []periodRow{{"2025-02", 2.5}},
			dividends:        2.5,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Dashboard(trades, dividends, tc.r)
			if diff := cmp.Diff(tc.daily, dayRows(m.Daily)); diff != "" {
				t.Errorf("daily mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.monthlyPnL, periodRows(m.MonthlyPnL)); diff != "" {
				t.Errorf("monthly P&L mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.monthlyDividends, periodRows(m.MonthlyDividends)); diff != "" {
				t.Errorf("monthly dividends mismatch (-want +got):\n%s", diff)
			}
			if !m.TotalRealized.Equal(USD(tc.realized)) || !m.TotalDividends.Equal(USD(tc.dividends)) || !m.TotalFees.Equal(USD(tc.fees)) {
				t.Errorf("totals = %s %s %s, want %v %v %v", m.TotalRealized, m.TotalDividends, m.TotalFees, tc.realized, tc.dividends, tc.fees)
			}
			if m.ClosedTrades != tc.closed {
				t.Errorf("closed trades = %d, want %d", m.ClosedTrades, tc.closed)
			}
			if got := dayOf(m.BestDay); got != tc.best {
				t.Errorf("best day = %q, want %q", got, tc.best)
			}
			if got := dayOf(m.WorstDay); got != tc.worst {
				t.Errorf("worst day = %q, want %q", got, tc.worst)
			}
		})
	}
}
