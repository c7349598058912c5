package tradejournal

import (
	"slices"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// DailyPoint is one day of the dashboard time series.
type DailyPoint struct {
	Date       date.Date `json:"date"`
	PnL        Money     `json:"pnl"`        // realized that day
	Dividends  Money     `json:"dividends"`  // received that day
	Cumulative Money     `json:"cumulative"` // realized since the start of the range
	Equity     Money     `json:"equity"`     // cumulative realized plus dividends
}

// PeriodAmount is an amount attached to a calendar period.
type PeriodAmount struct {
	Period string `json:"period"`
	Amount Money  `json:"amount"`
}

// DashboardMetrics is the time series bundle behind the dashboard.
type DashboardMetrics struct {
	Currency         string         `json:"currency"`
	Range            date.Range     `json:"range"`
	Daily            []DailyPoint   `json:"daily"` // only days with activity
	MonthlyPnL       []PeriodAmount `json:"monthly_pnl"`
	MonthlyDividends []PeriodAmount `json:"monthly_dividends"`
	TotalRealized    Money          `json:"total_realized"`
	TotalDividends   Money          `json:"total_dividends"`
	TotalFees        Money          `json:"total_fees"`
	ClosedTrades     int            `json:"closed_trades"`
	WinRate          Percent        `json:"win_rate"`
	BestDay          *DailyPoint    `json:"best_day,omitempty"`
	WorstDay         *DailyPoint    `json:"worst_day,omitempty"`
}

// Dashboard computes the daily series of the activity within r. Like the summary,
// lots are matched on the full history.
func Dashboard(trades []Trade, dividends []Dividend, r date.Range) DashboardMetrics {
	cur := DefaultCurrency
	if len(trades) > 0 && trades[0].Currency() != "" {
		cur = trades[0].Currency()
	}

	type day struct{ pnl, divs decimal.Decimal }
	days := make(map[date.Date]*day)
	get := func(on date.Date) *day {
		d, ok := days[on]
		if !ok {
			d = &day{}
			days[on] = d
		}
		return d
	}
	monthlyPnL := make(map[date.Range]decimal.Decimal)
	monthlyDivs := make(map[date.Range]decimal.Decimal)

	m := DashboardMetrics{Currency: cur, Range: r}
	realized, divs, fees := decimal.Zero, decimal.Zero, decimal.Zero
	wins := 0
	for _, p := range Realize(trades) {
		if !r.Contains(p.Date) {
			continue
		}
		d := get(p.Date)
		d.pnl = d.pnl.Add(p.PnL)
		month := date.Monthly.Range(p.Date)
		monthlyPnL[month] = monthlyPnL[month].Add(p.PnL)
		realized = realized.Add(p.PnL)
		m.ClosedTrades++
		if p.PnL.IsPositive() {
			wins++
		}
	}
	for _, dv := range dividends {
		if !r.Contains(dv.PaymentDate) {
			continue
		}
		d := get(dv.PaymentDate)
		d.divs = d.divs.Add(dv.Amount.Decimal())
		month := date.Monthly.Range(dv.PaymentDate)
		monthlyDivs[month] = monthlyDivs[month].Add(dv.Amount.Decimal())
		divs = divs.Add(dv.Amount.Decimal())
	}
	for _, t := range trades {
		if r.Contains(t.Date) {
			fees = fees.Add(t.Fee.Decimal())
		}
	}

	dates := make([]date.Date, 0, len(days))
	for on := range days {
		dates = append(dates, on)
	}
	slices.SortFunc(dates, date.Date.Compare)
	cum, equity := decimal.Zero, decimal.Zero
	for _, on := range dates {
		d := days[on]
		cum = cum.Add(d.pnl)
		equity = equity.Add(d.pnl).Add(d.divs)
		m.Daily = append(m.Daily, DailyPoint{
			Date: on, PnL: M(d.pnl, cur), Dividends: M(d.divs, cur),
			Cumulative: M(cum, cur), Equity: M(equity, cur),
		})
	}
	for i := range m.Daily {
		p := &m.Daily[i]
		if p.PnL.IsPositive() && (m.BestDay == nil || p.PnL.GreaterThan(m.BestDay.PnL)) {
			m.BestDay = p
		}
		if p.PnL.IsNegative() && (m.WorstDay == nil || p.PnL.LessThan(m.WorstDay.PnL)) {
			m.WorstDay = p
		}
	}

	m.MonthlyPnL = periodAmounts(monthlyPnL, cur)
	m.MonthlyDividends = periodAmounts(monthlyDivs, cur)
	m.TotalRealized, m.TotalDividends, m.TotalFees = M(realized, cur), M(divs, cur), M(fees, cur)
	if m.ClosedTrades > 0 {
		m.WinRate = Percent(float64(wins) / float64(m.ClosedTrades) * 100)
	}
	return m
}

func periodAmounts(amounts map[date.Range]decimal.Decimal, cur string) []PeriodAmount {
	ranges := make([]date.Range, 0, len(amounts))
	for r := range amounts {
		ranges = append(ranges, r)
	}
	slices.SortFunc(ranges, func(a, b date.Range) int { return a.From.Compare(b.From) })
	res := make([]PeriodAmount, 0, len(ranges))
	for _, r := range ranges {
		res = append(res, PeriodAmount{Period: r.Identifier(), Amount: M(amounts[r], cur)})
	}
	return res
}
