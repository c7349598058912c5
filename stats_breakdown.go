package tradejournal

import (
	"cmp"
	"slices"
	"time"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// PeriodStats aggregates the realized P&L of a calendar period.
type PeriodStats struct {
	Period  string     `json:"period"` // the range identifier: 2025, 2025-03, 2025-W07
	Range   date.Range `json:"range"`
	Trades  int        `json:"trades"`
	Wins    int        `json:"wins"`
	WinRate Percent    `json:"win_rate"`
	PnL     Money      `json:"pnl"`
}

// SymbolStats aggregates the realized P&L of an underlying.
type SymbolStats struct {
	Symbol     string  `json:"symbol"`
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	WinRate    Percent `json:"win_rate"`
	PnL        Money   `json:"pnl"`
	AveragePnL Money   `json:"average_pnl"`
}

// WeekdayStats aggregates the realized P&L by day of the week.
type WeekdayStats struct {
	Weekday time.Weekday `json:"weekday"`
	Trades  int          `json:"trades"`
	Wins    int          `json:"wins"`
	WinRate Percent      `json:"win_rate"`
	PnL     Money        `json:"pnl"`
}

// CommissionStats describes what trading cost in fees.
type CommissionStats struct {
	Total           Money   `json:"total"`
	AveragePerTrade Money   `json:"average_per_trade"`
	Largest         Money   `json:"largest"`
	PercentOfGross  Percent `json:"percent_of_gross"` // fees over the P&L before fees
}

// bucket accumulates P&L.
type bucket struct {
	trades, wins int
	pnl          decimal.Decimal
}

func (b *bucket) add(p TradePnL) {
	b.trades++
	if p.PnL.IsPositive() {
		b.wins++
	}
	b.pnl = b.pnl.Add(p.PnL)
}

func (b bucket) winRate() Percent {
	if b.trades == 0 {
		return 0
	}
	return Percent(float64(b.wins) / float64(b.trades) * 100)
}

// periodBreakdown groups the P&L series by period, only periods with activity are returned.
func periodBreakdown(pnls []TradePnL, p date.Period, cur string) []PeriodStats {
	buckets := make(map[date.Range]*bucket)
	var ranges []date.Range
	for _, x := range pnls {
		r := p.Range(x.Date)
		b, ok := buckets[r]
		if !ok {
			b = &bucket{}
			buckets[r] = b
			ranges = append(ranges, r)
		}
		b.add(x)
	}
	slices.SortFunc(ranges, func(a, b date.Range) int { return a.From.Compare(b.From) })
	res := make([]PeriodStats, 0, len(ranges))
	for _, r := range ranges {
		res = append(res, periodStats(r, *buckets[r], cur))
	}
	return res
}

func periodStats(r date.Range, b bucket, cur string) PeriodStats {
	return PeriodStats{Period: r.Identifier(), Range: r, Trades: b.trades, Wins: b.wins, WinRate: b.winRate(), PnL: M(b.pnl, cur)}
}

// lastWeeks returns the n ISO weeks ending with the week of the last realization,
// including the weeks without activity.
func lastWeeks(pnls []TradePnL, n int, cur string) []PeriodStats {
	if len(pnls) == 0 {
		return nil
	}
	last := pnls[0].Date
	for _, p := range pnls {
		if p.Date.After(last) {
			last = p.Date
		}
	}
	first := last.StartOf(date.Weekly).Add(-7 * (n - 1))
	res := make([]PeriodStats, 0, n)
	for w := range date.NewRange(first, last).Periods(date.Weekly) {
		var b bucket
		for _, p := range pnls {
			if w.Contains(p.Date) {
				b.add(p)
			}
		}
		res = append(res, periodStats(w, b, cur))
	}
	return res
}

// symbolBreakdown groups the P&L series by underlying, best performers first.
func symbolBreakdown(pnls []TradePnL, cur string) []SymbolStats {
	buckets := make(map[string]*bucket)
	for _, p := range pnls {
		b, ok := buckets[p.Root]
		if !ok {
			b = &bucket{}
			buckets[p.Root] = b
		}
		b.add(p)
	}
	res := make([]SymbolStats, 0, len(buckets))
	for sym, b := range buckets {
		res = append(res, SymbolStats{
			Symbol:     sym,
			Trades:     b.trades,
			Wins:       b.wins,
			WinRate:    b.winRate(),
			PnL:        M(b.pnl, cur),
			AveragePnL: M(b.pnl.Div(decimal.NewFromInt(int64(b.trades))), cur),
		})
	}
	slices.SortFunc(res, func(a, b SymbolStats) int {
		if c := b.PnL.Decimal().Cmp(a.PnL.Decimal()); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return res
}

// weekdayBreakdown groups the P&L series by day of the week, Monday first.
func weekdayBreakdown(pnls []TradePnL, cur string) []WeekdayStats {
	var days [7]bucket
	for _, p := range pnls {
		days[p.Date.Weekday()].add(p)
	}
	res := make([]WeekdayStats, 0, 7)
	for i := range 7 {
		wd := time.Weekday((i + 1) % 7) // Monday first, Sunday last
		b := days[wd]
		res = append(res, WeekdayStats{Weekday: wd, Trades: b.trades, Wins: b.wins, WinRate: b.winRate(), PnL: M(b.pnl, cur)})
	}
	return res
}

// commissionStats aggregates the fees of trades. net is the realized P&L after fees.
func commissionStats(trades []Trade, net decimal.Decimal, cur string) CommissionStats {
	total, largest := decimal.Zero, decimal.Zero
	for _, t := range trades {
		f := t.Fee.Decimal()
		total = total.Add(f)
		largest = decimal.Max(largest, f)
	}
	s := CommissionStats{Total: M(total, cur), AveragePerTrade: M(0, cur), Largest: M(largest, cur)}
	if len(trades) > 0 {
		s.AveragePerTrade = M(total.Div(decimal.NewFromInt(int64(len(trades)))), cur)
	}
	if gross := net.Add(total); gross.IsPositive() {
		s.PercentOfGross = Percent(total.Div(gross).InexactFloat64() * 100)
	}
	return s
}
