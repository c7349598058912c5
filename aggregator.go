package tradejournal

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/etnz/tradejournal/metrics"
	"github.com/shopspring/decimal"
)

// positionEpsilon is the quantity under which a holding is considered closed.
var positionEpsilon = decimal.New(1, -4)

// holdingKey identifies a position.
type holdingKey struct {
	AccountID int64
	Symbol    string
}

// groupBySymbol splits trades by (account, symbol), keeping their order.
func groupBySymbol(trades []Trade) (map[holdingKey][]Trade, []holdingKey) {
	groups := make(map[holdingKey][]Trade)
	var keys []holdingKey
	for _, t := range trades {
		k := holdingKey{t.AccountID, t.Symbol}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], t)
	}
	slices.SortFunc(keys, func(a, b holdingKey) int {
		if c := cmp.Compare(a.AccountID, b.AccountID); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return groups, keys
}

// BuildPositions runs the lot matcher for every (account, symbol) of the trades
// and returns the open positions, sorted by account and symbol. Closed holdings
// are absent.
func BuildPositions(trades []Trade) []Position {
	groups, keys := groupBySymbol(trades)
	positions := make([]Position, 0, len(keys))
	for _, k := range keys {
		if p, ok := buildPosition(groups[k]); ok {
			positions = append(positions, p)
		}
	}
	return positions
}

// buildPosition sums the open lots of the trades of a single symbol.
func buildPosition(trades []Trade) (Position, bool) {
	res := Match(events(trades...))
	qty := res.Quantity()
	if qty.Abs().LessThan(positionEpsilon) {
		return Position{}, false
	}
	last := trades[len(trades)-1]
	notional, cost := decimal.Zero, decimal.Zero
	for _, l := range res.Lots {
		notional = notional.Add(l.Quantity.Mul(l.Price))
		cost = cost.Add(l.Cost())
	}
	cur := last.Currency()
	return Position{
		UserID:       last.UserID,
		AccountID:    last.AccountID,
		Symbol:       last.Symbol,
		Quantity:     Q(qty),
		AveragePrice: M(notional.Div(qty), cur),
		CostBasis:    M(cost, cur),
		Multiplier:   last.Multiplier(),
	}, true
}

// events converts trades into matcher events.
func events(trades ...Trade) []MatchEvent {
	res := make([]MatchEvent, 0, len(trades))
	for _, t := range trades {
		res = append(res, EventOf(t))
	}
	return res
}

// Aggregator keeps the position cache in line with the trade log.
//
// It is never triggered by the stores: whoever changes trades must call
// Recalculate for the affected account afterwards.
type Aggregator struct {
	Trades    TradeStore
	Positions PositionStore
	Logger    *slog.Logger
}

// NewAggregator returns an aggregator over the given stores.
func NewAggregator(trades TradeStore, positions PositionStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{Trades: trades, Positions: positions, Logger: logger}
}

// Recalculate rebuilds every position of an account from its full trade history.
// An accountID of 0 rebuilds all the accounts of the user. It is idempotent.
func (a *Aggregator) Recalculate(ctx context.Context, userID, accountID int64) error {
	start := time.Now()
	defer metrics.ObserveSince(metrics.RecalculationDuration, start)
	metrics.Recalculations.Inc()

	trades, err := a.Trades.ListTrades(ctx, Filter{UserID: userID, AccountID: accountID})
	if err != nil {
		return fmt.Errorf("could not list trades: %w", err)
	}
	existing, err := a.Positions.ListPositions(ctx, userID, accountID)
	if err != nil {
		return fmt.Errorf("could not list positions: %w", err)
	}

	positions := BuildPositions(trades)
	open := make(map[holdingKey]bool, len(positions))
	for _, p := range positions {
		open[holdingKey{p.AccountID, p.Symbol}] = true
		if err := a.Positions.UpsertPosition(ctx, p); err != nil {
			return fmt.Errorf("could not save position %s: %w", p.Symbol, err)
		}
	}
	deleted := 0
	for _, p := range existing {
		if open[holdingKey{p.AccountID, p.Symbol}] {
			continue
		}
		if err := a.Positions.DeletePosition(ctx, userID, p.AccountID, p.Symbol); err != nil {
			return fmt.Errorf("could not delete position %s: %w", p.Symbol, err)
		}
		deleted++
	}
	a.Logger.Debug("positions recalculated", "user", userID, "account", accountID,
		"trades", len(trades), "open", len(positions), "deleted", deleted)
	return nil
}

// RecalculateAll rebuilds every position of every account of the user.
func (a *Aggregator) RecalculateAll(ctx context.Context, userID int64) error {
	return a.Recalculate(ctx, userID, 0)
}
