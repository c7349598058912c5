package tradejournal

import (
	"cmp"
	"math"
	"slices"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// TradePnL is the realized profit or loss of one closing trade.
type TradePnL struct {
	TradeID   int64           `json:"trade_id"`
	AccountID int64           `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Root      string          `json:"root"`
	Date      date.Date       `json:"date"`
	Quantity  decimal.Decimal `json:"quantity"`
	PnL       decimal.Decimal `json:"pnl"`
}

// Realize runs the lot matcher for every (account, symbol) of the trades and returns
// the realized P&L of every closing trade, chronologically.
func Realize(trades []Trade) []TradePnL {
	byID := make(map[int64]Trade, len(trades))
	for _, t := range trades {
		byID[t.ID] = t
	}
	groups, keys := groupBySymbol(trades)
	var res []TradePnL
	for _, k := range keys {
		for _, r := range Match(events(groups[k]...)).Realized {
			t := byID[r.TradeID]
			res = append(res, TradePnL{
				TradeID:   r.TradeID,
				AccountID: k.AccountID,
				Symbol:    k.Symbol,
				Root:      t.Root(),
				Date:      r.Date,
				Quantity:  r.Quantity,
				PnL:       r.PnL,
			})
		}
	}
	slices.SortStableFunc(res, func(a, b TradePnL) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.TradeID, b.TradeID)
	})
	return res
}

// TradingSummary is the bundle of performance metrics over a realized P&L series.
//
// Rates are percentages. GrossLoss, AverageLoss and LargestLoss are magnitudes.
type TradingSummary struct {
	Currency string     `json:"currency"`
	Range    date.Range `json:"range"`

	TotalTrades     int `json:"total_trades"`  // trades executed
	ClosedTrades    int `json:"closed_trades"` // trades that realized a P&L
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakEvenTrades int `json:"break_even_trades"`

	WinRate  Percent `json:"win_rate"`
	LossRate Percent `json:"loss_rate"`

	GrossProfit Money `json:"gross_profit"`
	GrossLoss   Money `json:"gross_loss"`
	NetPnL      Money `json:"net_pnl"`
	AveragePnL  Money `json:"average_pnl"`
	AverageWin  Money `json:"average_win"`
	AverageLoss Money `json:"average_loss"`
	LargestWin  Money `json:"largest_win"`
	LargestLoss Money `json:"largest_loss"`

	ProfitFactor         Ratio   `json:"profit_factor"`
	GainToPain           Ratio   `json:"gain_to_pain"`
	WinLossRatio         Ratio   `json:"win_loss_ratio"`
	AdjustedWinLossRatio Ratio   `json:"adjusted_win_loss_ratio"`
	Expectancy           Money   `json:"expectancy"`
	Kelly                Percent `json:"kelly"`

	StdDev     Money `json:"std_dev"`
	WinStdDev  Money `json:"win_std_dev"`
	LossStdDev Money `json:"loss_std_dev"`
	SQN        Ratio `json:"sqn"`
	Sharpe     Ratio `json:"sharpe"`

	MaxDrawdown        Money   `json:"max_drawdown"`
	MaxDrawdownPercent Percent `json:"max_drawdown_percent"`
	MaxWinStreak       int     `json:"max_win_streak"`
	MaxLossStreak      int     `json:"max_loss_streak"`

	TotalDividends Money `json:"total_dividends"`
	TotalFees      Money `json:"total_fees"`

	Yearly      []PeriodStats   `json:"yearly"`
	Monthly     []PeriodStats   `json:"monthly"`
	Weekly      []PeriodStats   `json:"weekly"` // the 12 ISO weeks up to the last realization
	Symbols     []SymbolStats   `json:"symbols"`
	Weekdays    []WeekdayStats  `json:"weekdays"`
	Commissions CommissionStats `json:"commissions"`
}

// Summarize computes the summary of all the trades and dividends.
func Summarize(trades []Trade, dividends []Dividend) TradingSummary {
	return SummarizeRange(trades, dividends, date.Range{})
}

// SummarizeRange computes the summary of the activity within r.
//
// Lots are matched over the full trade history so that a sale in r is matched
// against purchases made before r.
func SummarizeRange(trades []Trade, dividends []Dividend, r date.Range) TradingSummary {
	cur := DefaultCurrency
	if len(trades) > 0 && trades[0].Currency() != "" {
		cur = trades[0].Currency()
	}

	var pnls []TradePnL
	for _, p := range Realize(trades) {
		if r.Contains(p.Date) {
			pnls = append(pnls, p)
		}
	}
	var inRange []Trade
	for _, t := range trades {
		if r.Contains(t.Date) {
			inRange = append(inRange, t)
		}
	}
	s := summarize(pnls, cur)
	s.Range = r
	s.TotalTrades = len(inRange)

	fees, divs := decimal.Zero, decimal.Zero
	for _, t := range inRange {
		fees = fees.Add(t.Fee.Decimal())
	}
	for _, d := range dividends {
		if r.Contains(d.PaymentDate) {
			divs = divs.Add(d.Amount.Decimal())
		}
	}
	s.TotalFees = M(fees, cur)
	s.TotalDividends = M(divs, cur)

	s.Yearly = periodBreakdown(pnls, date.Yearly, cur)
	s.Monthly = periodBreakdown(pnls, date.Monthly, cur)
	s.Weekly = lastWeeks(pnls, 12, cur)
	s.Symbols = symbolBreakdown(pnls, cur)
	s.Weekdays = weekdayBreakdown(pnls, cur)
	s.Commissions = commissionStats(inRange, s.GrossProfit.Decimal().Sub(s.GrossLoss.Decimal()), cur)
	return s
}

// summarize computes the scalar metrics of a chronological P&L series. It never
// divides by zero: every ratio has a zero or infinite value instead.
func summarize(pnls []TradePnL, cur string) TradingSummary {
	zero := M(0, cur)
	s := TradingSummary{
		Currency: cur, GrossProfit: zero, GrossLoss: zero, NetPnL: zero, AveragePnL: zero,
		AverageWin: zero, AverageLoss: zero, LargestWin: zero, LargestLoss: zero,
		Expectancy: zero, StdDev: zero, WinStdDev: zero, LossStdDev: zero,
		MaxDrawdown: zero, TotalDividends: zero, TotalFees: zero,
	}
	n := len(pnls)
	s.ClosedTrades = n
	if n == 0 {
		return s
	}

	gp, gl := decimal.Zero, decimal.Zero
	largestWin, largestLoss := decimal.Zero, decimal.Zero
	var all, wins, losses []float64
	for _, p := range pnls {
		all = append(all, p.PnL.InexactFloat64())
		switch p.PnL.Sign() {
		case 1:
			s.WinningTrades++
			gp = gp.Add(p.PnL)
			largestWin = decimal.Max(largestWin, p.PnL)
			wins = append(wins, p.PnL.InexactFloat64())
		case -1:
			s.LosingTrades++
			gl = gl.Add(p.PnL.Abs())
			largestLoss = decimal.Max(largestLoss, p.PnL.Abs())
			losses = append(losses, p.PnL.InexactFloat64())
		default:
			s.BreakEvenTrades++
		}
	}
	net := gp.Sub(gl)
	s.GrossProfit, s.GrossLoss, s.NetPnL = M(gp, cur), M(gl, cur), M(net, cur)
	s.LargestWin, s.LargestLoss = M(largestWin, cur), M(largestLoss, cur)
	s.AveragePnL = M(net.Div(decimal.NewFromInt(int64(n))), cur)

	winRate := float64(s.WinningTrades) / float64(n)
	lossRate := float64(s.LosingTrades) / float64(n)
	s.WinRate, s.LossRate = Percent(winRate*100), Percent(lossRate*100)

	avgWin, avgLoss := 0.0, 0.0
	if s.WinningTrades > 0 {
		avgWin = gp.InexactFloat64() / float64(s.WinningTrades)
		s.AverageWin = M(gp.Div(decimal.NewFromInt(int64(s.WinningTrades))), cur)
	}
	if s.LosingTrades > 0 {
		avgLoss = gl.InexactFloat64() / float64(s.LosingTrades)
		s.AverageLoss = M(gl.Div(decimal.NewFromInt(int64(s.LosingTrades))), cur)
	}

	s.ProfitFactor = ratio(gp.InexactFloat64(), gl.InexactFloat64())
	s.GainToPain = ratio(net.InexactFloat64(), gl.InexactFloat64())
	s.WinLossRatio = ratio(avgWin, avgLoss)
	s.AdjustedWinLossRatio = ratio(avgWin*winRate, avgLoss*lossRate)
	s.Expectancy = M(winRate*avgWin-lossRate*avgLoss, cur)
	if wl := s.WinLossRatio; !wl.IsInf() && wl > 0 {
		s.Kelly = Percent((winRate - (1-winRate)/float64(wl)) * 100)
	}

	sd := stddev(all)
	s.StdDev, s.WinStdDev, s.LossStdDev = M(sd, cur), M(stddev(wins), cur), M(stddev(losses), cur)
	if sd > 0 {
		m := mean(all)
		s.Sharpe = Ratio(m / sd)
		s.SQN = Ratio(m / sd * math.Sqrt(float64(n)))
	}

	dd, ddPeak := maxDrawdown(pnls)
	s.MaxDrawdown = M(dd, cur)
	if ddPeak.IsPositive() {
		s.MaxDrawdownPercent = Percent(dd.Div(ddPeak).InexactFloat64() * 100)
	}
	s.MaxWinStreak, s.MaxLossStreak = streaks(pnls)
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation, 0 under two points.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// maxDrawdown returns the largest fall of the cumulative P&L from its running
// peak, and the peak it fell from. The curve starts at zero.
func maxDrawdown(pnls []TradePnL) (drawdown, peakAtMax decimal.Decimal) {
	cum, peak := decimal.Zero, decimal.Zero
	drawdown, peakAtMax = decimal.Zero, decimal.Zero
	for _, p := range pnls {
		cum = cum.Add(p.PnL)
		peak = decimal.Max(peak, cum)
		if dd := peak.Sub(cum); dd.GreaterThan(drawdown) {
			drawdown, peakAtMax = dd, peak
		}
	}
	return drawdown, peakAtMax
}

// streaks returns the longest runs of wins and losses. A break-even trade ends both.
func streaks(pnls []TradePnL) (maxWin, maxLoss int) {
	win, loss := 0, 0
	for _, p := range pnls {
		switch p.PnL.Sign() {
		case 1:
			win, loss = win+1, 0
		case -1:
			win, loss = 0, loss+1
		default:
			win, loss = 0, 0
		}
		maxWin, maxLoss = max(maxWin, win), max(maxLoss, loss)
	}
	return maxWin, maxLoss
}
