package tradejournal

import (
	"cmp"
	"slices"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// Lot is an open purchase, consumed oldest first.
type Lot struct {
	Date         date.Date
	Quantity     decimal.Decimal
	Price        decimal.Decimal // unit price
	FeeRemaining decimal.Decimal // the part of the purchase fee not yet consumed
	Multiplier   decimal.Decimal
}

// Cost returns the total cost of the lot, fee included.
func (l Lot) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.Price).Mul(l.Multiplier).Add(l.FeeRemaining)
}

// consume takes q (at most l.Quantity) out of the lot. It returns the cost of the
// consumed part, with the fee pro-rated on quantity, and the remainder lot if any.
func (l Lot) consume(q decimal.Decimal) (cost decimal.Decimal, remainder *Lot) {
	if q.GreaterThanOrEqual(l.Quantity) {
		return l.Cost(), nil
	}
	fee := l.FeeRemaining.Mul(q).Div(l.Quantity)
	cost = q.Mul(l.Price).Mul(l.Multiplier).Add(fee)
	rest := l
	rest.Quantity = l.Quantity.Sub(q)
	rest.FeeRemaining = l.FeeRemaining.Sub(fee)
	return cost, &rest
}

// Side is how an event moves a FIFO queue.
type Side int

const (
	// SideBuy opens a new lot.
	SideBuy Side = iota
	// SideCover buys back quantity previously sold without lots. Any excess opens a lot.
	SideCover
	// SideSell consumes lots. Quantity sold beyond the open lots is realized at
	// zero cost and remembered as uncovered.
	SideSell
	// SideSettle is an assignment, exercise or expiry: it closes long lots first
	// and then uncovered quantity, at the event price.
	SideSettle
)

// rank orders same-day events: buys before sells, settlements last.
func (s Side) rank() int {
	switch s {
	case SideBuy, SideCover:
		return 0
	case SideSell:
		return 1
	default:
		return 2
	}
}

// SideOf returns the queue side of a trade.
func SideOf(t Trade) Side {
	switch {
	case t.Action == BuyToClose:
		return SideCover
	case t.Action.IsBuy():
		return SideBuy
	case t.Action.IsSell():
		return SideSell
	default:
		return SideSettle
	}
}

// MatchEvent is one input of the matcher.
type MatchEvent struct {
	TradeID    int64
	Side       Side
	Date       date.Date
	Quantity   decimal.Decimal // always positive
	Price      decimal.Decimal
	Fee        decimal.Decimal
	Multiplier decimal.Decimal // zero means 1
}

// EventOf converts a trade into a matcher event.
func EventOf(t Trade) MatchEvent {
	return MatchEvent{
		TradeID:    t.ID,
		Side:       SideOf(t),
		Date:       t.Date,
		Quantity:   t.Quantity.Decimal().Abs(),
		Price:      t.Price.Decimal(),
		Fee:        t.Fee.Decimal(),
		Multiplier: decimal.NewFromInt(int64(t.Multiplier())),
	}
}

// Realization is the profit or loss locked in by one closing event.
type Realization struct {
	TradeID   int64
	Date      date.Date
	Quantity  decimal.Decimal
	Proceeds  decimal.Decimal // net of the closing fee, negative for a buy back
	CostBasis decimal.Decimal
	PnL       decimal.Decimal
	Unmatched decimal.Decimal // quantity closed without any lot to match
}

// MatchResult is the output of Match.
type MatchResult struct {
	Realized  []Realization // one per closing event, chronological
	Lots      []Lot         // open lots, oldest first
	Uncovered decimal.Decimal
}

// Quantity returns the quantity held in open lots.
func (r MatchResult) Quantity() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range r.Lots {
		sum = sum.Add(l.Quantity)
	}
	return sum
}

// SortEvents sorts events chronologically. On the same day buys come before sells and
// settlements come last, otherwise the input order is kept.
func SortEvents(events []MatchEvent) {
	slices.SortStableFunc(events, func(a, b MatchEvent) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Side.rank(), b.Side.rank())
	})
}

// Match runs the FIFO engine over the events of a single symbol. The input is not
// modified. No rounding happens here.
func Match(events []MatchEvent) MatchResult {
	sorted := slices.Clone(events)
	SortEvents(sorted)

	var res MatchResult
	var queue []Lot
	uncovered := decimal.Zero

	// take consumes up to q from the queue, oldest first.
	take := func(q decimal.Decimal) (cost, taken decimal.Decimal) {
		for q.IsPositive() && len(queue) > 0 {
			use := decimal.Min(q, queue[0].Quantity)
			c, rest := queue[0].consume(use)
			cost, taken, q = cost.Add(c), taken.Add(use), q.Sub(use)
			if rest != nil {
				queue[0] = *rest
			} else {
				queue = queue[1:]
			}
		}
		return cost, taken
	}

	for _, e := range sorted {
		mult := e.Multiplier
		if mult.IsZero() {
			mult = decimal.NewFromInt(1)
		}
		q := e.Quantity.Abs()
		gross := q.Mul(e.Price).Mul(mult)

		switch e.Side {
		case SideBuy:
			queue = append(queue, Lot{Date: e.Date, Quantity: q, Price: e.Price, FeeRemaining: e.Fee, Multiplier: mult})

		case SideCover:
			covered := decimal.Min(q, uncovered)
			if !covered.IsPositive() {
				queue = append(queue, Lot{Date: e.Date, Quantity: q, Price: e.Price, FeeRemaining: e.Fee, Multiplier: mult})
				continue
			}
			uncovered = uncovered.Sub(covered)
			fee := e.Fee.Mul(covered).Div(q)
			paid := covered.Mul(e.Price).Mul(mult).Add(fee)
			res.Realized = append(res.Realized, Realization{
				TradeID:  e.TradeID,
				Date:     e.Date,
				Quantity: covered,
				Proceeds: paid.Neg(),
				PnL:      paid.Neg(),
			})
			if rest := q.Sub(covered); rest.IsPositive() {
				queue = append(queue, Lot{Date: e.Date, Quantity: rest, Price: e.Price, FeeRemaining: e.Fee.Sub(fee), Multiplier: mult})
			}

		case SideSell:
			cost, taken := take(q)
			short := q.Sub(taken)
			uncovered = uncovered.Add(short)
			proceeds := gross.Sub(e.Fee)
			res.Realized = append(res.Realized, Realization{
				TradeID:   e.TradeID,
				Date:      e.Date,
				Quantity:  q,
				Proceeds:  proceeds,
				CostBasis: cost,
				PnL:       proceeds.Sub(cost),
				Unmatched: short,
			})

		case SideSettle:
			cost, taken := take(q)
			rest := q.Sub(taken)
			covered := decimal.Min(rest, uncovered)
			uncovered = uncovered.Sub(covered)
			// long part delivers at the price, covered part pays it
			proceeds := taken.Mul(e.Price).Mul(mult).
				Sub(covered.Mul(e.Price).Mul(mult)).
				Sub(e.Fee)
			res.Realized = append(res.Realized, Realization{
				TradeID:   e.TradeID,
				Date:      e.Date,
				Quantity:  q,
				Proceeds:  proceeds,
				CostBasis: cost,
				PnL:       proceeds.Sub(cost),
				Unmatched: rest.Sub(covered),
			})
		}
	}
	res.Lots = queue
	res.Uncovered = uncovered
	return res
}
