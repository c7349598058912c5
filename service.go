package tradejournal

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// Service is the entry point of the journal: every operation reads the event log
// from the store and recomputes what it needs.
//
// Writes to the same (user, account) are not synchronized: callers serialize them.
type Service struct {
	Store      Store
	Quotes     QuoteProvider
	Aggregator *Aggregator
	Detector   *SpreadDetector
	Importer   *Importer
	Logger     *slog.Logger
}

// NewService wires a service over a store. quotes may be nil.
func NewService(store Store, quotes QuoteProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	agg := NewAggregator(store, store, logger)
	det := NewSpreadDetector(store, logger)
	return &Service{
		Store:      store,
		Quotes:     quotes,
		Aggregator: agg,
		Detector:   det,
		Importer: &Importer{
			Accounts: store, Trades: store, Dividends: store, Batches: store,
			Aggregator: agg, Detector: det, Logger: logger,
		},
		Logger: logger,
	}
}

// ImportFile imports a broker or generic CSV file into an account. format is
// FormatBroker, FormatGeneric or FormatAuto.
func (s *Service) ImportFile(ctx context.Context, content []byte, userID, accountID int64, format string) (ImportResult, error) {
	return s.Importer.Import(ctx, content, userID, accountID, format)
}

// RecalculatePositions rebuilds the positions of an account, or of every account
// of the user when accountID is 0.
func (s *Service) RecalculatePositions(ctx context.Context, userID, accountID int64) error {
	if accountID != 0 {
		if _, err := s.Store.GetAccount(ctx, userID, accountID); err != nil {
			return err
		}
	}
	return s.Aggregator.Recalculate(ctx, userID, accountID)
}

// DetectSpreads groups the ungrouped option legs of an account.
func (s *Service) DetectSpreads(ctx context.Context, userID, accountID int64) ([]SpreadGroup, error) {
	if _, err := s.Store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.Detector.DetectAndGroup(ctx, userID, accountID)
}

// history returns the full trade and dividend history of the scope.
func (s *Service) history(ctx context.Context, userID, accountID int64) ([]Trade, []Dividend, error) {
	f := Filter{UserID: userID, AccountID: accountID}
	trades, err := s.Store.ListTrades(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("could not list trades: %w", err)
	}
	dividends, err := s.Store.ListDividends(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("could not list dividends: %w", err)
	}
	return trades, dividends, nil
}

// ComputeSummary returns the performance metrics of the activity within r.
func (s *Service) ComputeSummary(ctx context.Context, userID, accountID int64, r date.Range) (TradingSummary, error) {
	trades, dividends, err := s.history(ctx, userID, accountID)
	if err != nil {
		return TradingSummary{}, err
	}
	return SummarizeRange(trades, dividends, r), nil
}

// ComputeDashboardMetrics returns the time series of the activity within r.
func (s *Service) ComputeDashboardMetrics(ctx context.Context, userID, accountID int64, r date.Range) (DashboardMetrics, error) {
	trades, dividends, err := s.history(ctx, userID, accountID)
	if err != nil {
		return DashboardMetrics{}, err
	}
	return Dashboard(trades, dividends, r), nil
}

// Positions returns the cached positions.
func (s *Service) Positions(ctx context.Context, userID, accountID int64) ([]Position, error) {
	return s.Store.ListPositions(ctx, userID, accountID)
}

// Trades returns the trades selected by f.
func (s *Service) Trades(ctx context.Context, f Filter) ([]Trade, error) {
	return s.Store.ListTrades(ctx, f)
}

// Accounts returns the accounts of the user.
func (s *Service) Accounts(ctx context.Context, userID int64) ([]Account, error) {
	return s.Store.ListAccounts(ctx, userID)
}

// CreateAccount creates an account.
func (s *Service) CreateAccount(ctx context.Context, a Account) (Account, error) {
	if strings.TrimSpace(a.Name) == "" {
		return Account{}, fmt.Errorf("%w: account name is missing", ErrInvalid)
	}
	return s.Store.CreateAccount(ctx, a)
}

// Holding is a position valued at its current quote.
type Holding struct {
	Position
	Quote             *Quote  `json:"quote,omitempty"`
	MarketValue       Money   `json:"market_value"`
	UnrealizedPnL     Money   `json:"unrealized_pnl"`
	UnrealizedPercent Percent `json:"unrealized_percent"`
	DayChange         Money   `json:"day_change"`
}

// Portfolio is the set of holdings of a scope, valued at current quotes.
type Portfolio struct {
	Holdings      []Holding `json:"holdings"`
	MarketValue   Money     `json:"market_value"`
	CostBasis     Money     `json:"cost_basis"`
	UnrealizedPnL Money     `json:"unrealized_pnl"`
	DayChange     Money     `json:"day_change"`
	Unquoted      []string  `json:"unquoted,omitempty"` // symbols valued at cost
}

// PortfolioWithQuotes values the positions at their current quotes. Positions
// without a quote are valued at cost. A failing quote provider is logged, not
// returned: quotes are presentation only.
func (s *Service) PortfolioWithQuotes(ctx context.Context, userID, accountID int64) (Portfolio, error) {
	positions, err := s.Store.ListPositions(ctx, userID, accountID)
	if err != nil {
		return Portfolio{}, fmt.Errorf("could not list positions: %w", err)
	}
	quotes := map[string]Quote{}
	if s.Quotes != nil && len(positions) > 0 {
		symbols := make([]string, 0, len(positions))
		for _, p := range positions {
			if !slices.Contains(symbols, p.Symbol) {
				symbols = append(symbols, p.Symbol)
			}
		}
		if q, err := s.Quotes.GetQuotes(ctx, symbols); err != nil {
			s.Logger.Warn("could not get quotes", "error", err)
		} else {
			quotes = q
		}
	}
	return valuePortfolio(positions, quotes), nil
}

func valuePortfolio(positions []Position, quotes map[string]Quote) Portfolio {
	var pf Portfolio
	cur := DefaultCurrency
	if len(positions) > 0 && positions[0].CostBasis.Currency() != "" {
		cur = positions[0].CostBasis.Currency()
	}
	mv, cost, change := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range positions {
		h := Holding{Position: p, MarketValue: p.CostBasis, UnrealizedPnL: M(0, cur), DayChange: M(0, cur)}
		if q, ok := quotes[p.Symbol]; ok {
			h.Quote = &q
			h.MarketValue = p.MarketValue(M(q.Price.Decimal(), cur))
			h.UnrealizedPnL = M(h.MarketValue.Decimal().Sub(p.CostBasis.Decimal()), cur)
			h.DayChange = p.MarketValue(M(q.Change.Decimal(), cur))
			if !p.CostBasis.IsZero() {
				h.UnrealizedPercent = Percent(h.UnrealizedPnL.Decimal().Div(p.CostBasis.Decimal().Abs()).InexactFloat64() * 100)
			}
		} else {
			pf.Unquoted = append(pf.Unquoted, p.Symbol)
		}
		mv = mv.Add(h.MarketValue.Decimal())
		cost = cost.Add(p.CostBasis.Decimal())
		change = change.Add(h.DayChange.Decimal())
		pf.Holdings = append(pf.Holdings, h)
	}
	pf.MarketValue, pf.CostBasis = M(mv, cur), M(cost, cur)
	pf.UnrealizedPnL, pf.DayChange = M(mv.Sub(cost), cur), M(change, cur)
	return pf
}

// DividendSummary aggregates dividends by symbol and by year.
type DividendSummary struct {
	Total       Money                  `json:"total"`
	TaxWithheld Money                  `json:"tax_withheld"`
	Count       int                    `json:"count"`
	BySymbol    []PeriodAmount         `json:"by_symbol"` // Period holds the symbol
	ByYear      []PeriodAmount         `json:"by_year"`
	ByType      map[DividendType]Money `json:"by_type"`
}

// SummarizeDividends aggregates the dividends paid within r.
func SummarizeDividends(dividends []Dividend, r date.Range) DividendSummary {
	cur := DefaultCurrency
	if len(dividends) > 0 && dividends[0].Amount.Currency() != "" {
		cur = dividends[0].Amount.Currency()
	}
	total, tax := decimal.Zero, decimal.Zero
	bySymbol := make(map[string]decimal.Decimal)
	byYear := make(map[date.Range]decimal.Decimal)
	byType := make(map[DividendType]decimal.Decimal)
	res := DividendSummary{ByType: make(map[DividendType]Money)}
	for _, d := range dividends {
		if !r.Contains(d.PaymentDate) {
			continue
		}
		res.Count++
		a := d.Amount.Decimal()
		total = total.Add(a)
		tax = tax.Add(d.TaxWithheld.Decimal())
		bySymbol[d.Symbol] = bySymbol[d.Symbol].Add(a)
		year := date.Yearly.Range(d.PaymentDate)
		byYear[year] = byYear[year].Add(a)
		byType[d.Type] = byType[d.Type].Add(a)
	}
	res.Total, res.TaxWithheld = M(total, cur), M(tax, cur)
	for sym, a := range bySymbol {
		res.BySymbol = append(res.BySymbol, PeriodAmount{Period: sym, Amount: M(a, cur)})
	}
	slices.SortFunc(res.BySymbol, func(a, b PeriodAmount) int {
		if c := b.Amount.Decimal().Cmp(a.Amount.Decimal()); c != 0 {
			return c
		}
		return cmp.Compare(a.Period, b.Period)
	})
	res.ByYear = periodAmounts(byYear, cur)
	for t, a := range byType {
		res.ByType[t] = M(a, cur)
	}
	return res
}

// DividendSummary returns the dividend summary of a scope within r.
func (s *Service) DividendSummary(ctx context.Context, userID, accountID int64, r date.Range) (DividendSummary, error) {
	dividends, err := s.Store.ListDividends(ctx, Filter{UserID: userID, AccountID: accountID})
	if err != nil {
		return DividendSummary{}, fmt.Errorf("could not list dividends: %w", err)
	}
	return SummarizeDividends(dividends, r), nil
}

// Spreads returns the spread groups whose legs were traded within r.
func (s *Service) Spreads(ctx context.Context, userID, accountID int64, r date.Range) ([]SpreadGroup, error) {
	trades, err := s.Store.ListTrades(ctx, Filter{UserID: userID, AccountID: accountID, Range: r})
	if err != nil {
		return nil, fmt.Errorf("could not list trades: %w", err)
	}
	return GroupedSpreads(trades), nil
}

// GroupedSpreads rebuilds the spread groups already assigned to trades, in the order
// of their first leg.
func GroupedSpreads(trades []Trade) []SpreadGroup {
	index := make(map[string]int)
	var groups []SpreadGroup
	for _, t := range trades {
		if t.SpreadGroupID == "" {
			continue
		}
		i, ok := index[t.SpreadGroupID]
		if !ok {
			i = len(groups)
			index[t.SpreadGroupID] = i
			groups = append(groups, SpreadGroup{ID: t.SpreadGroupID, Type: t.SpreadType})
		}
		groups[i].Legs = append(groups[i].Legs, t)
	}
	for i := range groups {
		g := &groups[i]
		slices.SortFunc(g.Legs, func(a, b Trade) int { return cmp.Compare(a.SpreadLeg, b.SpreadLeg) })
		g.NetPremium = NetPremium(g.Legs)
		g.Name = strategyName(g.Legs[0].Notes, g.Type)
	}
	return groups
}

// strategyName reads the strategy back from the leg annotation.
func strategyName(notes string, t SpreadType) string {
	_, after, ok := strings.Cut(notes, strategyMarker)
	if !ok {
		return string(t)
	}
	name, _, _ := strings.Cut(after, "|")
	return strings.TrimSpace(name)
}

// AddTrade validates and saves a manual trade, then recalculates the positions of its account.
func (s *Service) AddTrade(ctx context.Context, t Trade) (Trade, error) {
	if err := t.Validate(); err != nil {
		return Trade{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := s.Store.GetAccount(ctx, t.UserID, t.AccountID); err != nil {
		return Trade{}, err
	}
	t.ID = 0
	saved, err := s.Store.SaveTrades(ctx, []Trade{t})
	if err != nil {
		return Trade{}, fmt.Errorf("could not save trade: %w", err)
	}
	if err := s.Aggregator.Recalculate(ctx, t.UserID, t.AccountID); err != nil {
		return saved[0], err
	}
	return saved[0], nil
}

// UpdateTrade replaces a trade and recalculates the positions of the accounts it
// was and is in.
func (s *Service) UpdateTrade(ctx context.Context, t Trade) (Trade, error) {
	if err := t.Validate(); err != nil {
		return Trade{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	old, err := s.Store.GetTrade(ctx, t.UserID, t.ID)
	if err != nil {
		return Trade{}, err
	}
	if _, err := s.Store.GetAccount(ctx, t.UserID, t.AccountID); err != nil {
		return Trade{}, err
	}
	saved, err := s.Store.SaveTrades(ctx, []Trade{t})
	if err != nil {
		return Trade{}, fmt.Errorf("could not save trade: %w", err)
	}
	if err := s.Aggregator.Recalculate(ctx, t.UserID, t.AccountID); err != nil {
		return saved[0], err
	}
	if old.AccountID != t.AccountID {
		if err := s.Aggregator.Recalculate(ctx, t.UserID, old.AccountID); err != nil {
			return saved[0], err
		}
	}
	return saved[0], nil
}

// DeleteTrade deletes a trade and recalculates the positions of its account.
func (s *Service) DeleteTrade(ctx context.Context, userID, id int64) error {
	t, err := s.Store.GetTrade(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteTrade(ctx, userID, id); err != nil {
		return fmt.Errorf("could not delete trade %d: %w", id, err)
	}
	return s.Aggregator.Recalculate(ctx, userID, t.AccountID)
}

// DeleteAllTrades clears the trades and dividends of an account, its positions go with them.
func (s *Service) DeleteAllTrades(ctx context.Context, userID, accountID int64) (int, error) {
	if _, err := s.Store.GetAccount(ctx, userID, accountID); err != nil {
		return 0, err
	}
	n, err := s.Store.DeleteAllTrades(ctx, userID, accountID)
	if err != nil {
		return 0, fmt.Errorf("could not delete trades: %w", err)
	}
	if _, err := s.Store.DeleteAllDividends(ctx, userID, accountID); err != nil {
		return n, fmt.Errorf("could not delete dividends: %w", err)
	}
	s.Logger.Info("account cleared", "user", userID, "account", accountID, "trades", n)
	return n, s.Aggregator.Recalculate(ctx, userID, accountID)
}

// CleanupDuplicates deletes the trades of an account that duplicate an earlier
// one, and recalculates its positions. It returns the number of deleted trades.
func (s *Service) CleanupDuplicates(ctx context.Context, userID, accountID int64) (int, error) {
	if _, err := s.Store.GetAccount(ctx, userID, accountID); err != nil {
		return 0, err
	}
	trades, err := s.Store.ListTrades(ctx, Filter{UserID: userID, AccountID: accountID})
	if err != nil {
		return 0, fmt.Errorf("could not list trades: %w", err)
	}
	var kept []Trade
	deleted := 0
	for _, t := range trades {
		if containsFunc(kept, t, IsDuplicateTrade) {
			if err := s.Store.DeleteTrade(ctx, userID, t.ID); err != nil {
				return deleted, fmt.Errorf("could not delete trade %d: %w", t.ID, err)
			}
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	if deleted == 0 {
		return 0, nil
	}
	s.Logger.Info("duplicates removed", "user", userID, "account", accountID, "deleted", deleted)
	return deleted, s.Aggregator.Recalculate(ctx, userID, accountID)
}
