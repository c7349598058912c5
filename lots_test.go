package tradejournal

import (
	"testing"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

func TestMatch_FIFO(t *testing.T) {
	res := Match(events(
		stock(1, "2025-01-02", Buy, "AAPL", 10, 100),
		stock(2, "2025-01-03", Buy, "AAPL", 10, 110),
		stock(3, "2025-01-04", Sell, "AAPL", 15, 120),
	))

	if len(res.Realized) != 1 {
		t.Fatalf("Match() realized %d records, want 1", len(res.Realized))
	}
	r := res.Realized[0]
	if !r.PnL.Equal(dec(250)) {
		t.Errorf("pnl = %v, want 250", r.PnL)
	}
	if !r.CostBasis.Equal(dec(1550)) {
		t.Errorf("cost basis = %v, want 1550", r.CostBasis)
	}
	if r.TradeID != 3 {
		t.Errorf("realization attached to trade %d, want 3", r.TradeID)
	}
	if len(res.Lots) != 1 {
		t.Fatalf("Match() left %d lots, want 1", len(res.Lots))
	}
	if l := res.Lots[0]; !l.Quantity.Equal(dec(5)) || !l.Price.Equal(dec(110)) {
		t.Errorf("remaining lot = %v@%v, want 5@110", l.Quantity, l.Price)
	}
}

func TestMatch_SameDayBuyBeforeSell(t *testing.T) {
	// the sell is listed first, the buy of the same day must still cover it.
	res := Match(events(
		stock(2, "2025-01-02", Sell, "AAPL", 10, 120),
		stock(1, "2025-01-02", Buy, "AAPL", 10, 100),
	))
	if len(res.Realized) != 1 || !res.Realized[0].PnL.Equal(dec(200)) {
		t.Fatalf("Match() = %+v, want a single pnl of 200", res.Realized)
	}
	if !res.Realized[0].Unmatched.IsZero() {
		t.Errorf("same day sell must not be treated as a short")
	}
	if len(res.Lots) != 0 || !res.Uncovered.IsZero() {
		t.Errorf("expected a flat position, got lots %v uncovered %v", res.Lots, res.Uncovered)
	}
}

func TestMatch_FeeProration(t *testing.T) {
	buy := stock(1, "2025-01-02", Buy, "MSFT", 10, 100)
	buy.Fee = USD(10)
	sell := stock(2, "2025-01-03", Sell, "MSFT", 4, 110)
	sell.Fee = USD(2)

	res := Match(events(buy, sell))
	r := res.Realized[0]
	// cost = 4*100 + 10*4/10 = 404, proceeds = 440 - 2 = 438
	if !r.CostBasis.Equal(dec(404)) || !r.Proceeds.Equal(dec(438)) || !r.PnL.Equal(dec(34)) {
		t.Errorf("got cost %v proceeds %v pnl %v, want 404 438 34", r.CostBasis, r.Proceeds, r.PnL)
	}
	l := res.Lots[0]
	if !l.Quantity.Equal(dec(6)) || !l.FeeRemaining.Equal(dec(6)) {
		t.Errorf("remaining lot = %v with fee %v, want 6 with fee 6", l.Quantity, l.FeeRemaining)
	}
	if !l.Cost().Equal(dec(606)) {
		t.Errorf("remaining cost = %v, want 606", l.Cost())
	}
}

func TestMatch_UncoveredSell(t *testing.T) {
	res := Match(events(stock(1, "2025-01-02", Sell, "TSLA", 5, 200)))
	r := res.Realized[0]
	if !r.PnL.Equal(dec(1000)) || !r.CostBasis.IsZero() {
		t.Errorf("uncovered sell pnl %v cost %v, want 1000 at zero cost", r.PnL, r.CostBasis)
	}
	if !r.Unmatched.Equal(dec(5)) || !res.Uncovered.Equal(dec(5)) {
		t.Errorf("unmatched = %v, uncovered = %v, want 5", r.Unmatched, res.Uncovered)
	}
	if len(res.Lots) != 0 {
		t.Errorf("no lot expected, got %v", res.Lots)
	}
}

func TestMatch_ShortOptionRoundTrip(t *testing.T) {
	sto := option(1, "2025-03-03", SellToOpen, "SPY", "2025-03-21", Put, 500, 5)
	btc := option(2, "2025-03-10", BuyToClose, "SPY", "2025-03-21", Put, 500, 2)

	res := Match(events(sto, btc))
	if len(res.Realized) != 2 {
		t.Fatalf("Match() realized %d records, want 2", len(res.Realized))
	}
	if got := res.Realized[0].PnL; !got.Equal(dec(500)) {
		t.Errorf("opening credit = %v, want 500", got)
	}
	if got := res.Realized[1].PnL; !got.Equal(dec(-200)) {
		t.Errorf("buy back = %v, want -200", got)
	}
	if len(res.Lots) != 0 || !res.Uncovered.IsZero() {
		t.Errorf("round trip must be flat, lots %v uncovered %v", res.Lots, res.Uncovered)
	}
}

func TestMatch_Settlements(t *testing.T) {
	t.Run("long option expires worthless", func(t *testing.T) {
		bto := option(1, "2025-03-03", BuyToOpen, "SPY", "2025-03-21", Call, 600, 1.5)
		exp := option(2, "2025-03-21", Expired, "SPY", "2025-03-21", Call, 600, 0)
		res := Match(events(bto, exp))
		if got := res.Realized[0].PnL; !got.Equal(dec(-150)) {
			t.Errorf("pnl = %v, want -150", got)
		}
		if len(res.Lots) != 0 {
			t.Errorf("expired lot still open")
		}
	})
	t.Run("short option expires worthless", func(t *testing.T) {
		sto := option(1, "2025-03-03", SellToOpen, "SPY", "2025-03-21", Call, 600, 1.5)
		exp := option(2, "2025-03-21", Expired, "SPY", "2025-03-21", Call, 600, 0)
		res := Match(events(sto, exp))
		if len(res.Realized) != 2 {
			t.Fatalf("Match() realized %d records, want 2", len(res.Realized))
		}
		if got := res.Realized[1]; !got.PnL.IsZero() || !got.Unmatched.IsZero() {
			t.Errorf("expiry of a short = %+v, want zero pnl fully covered", got)
		}
		if !res.Uncovered.IsZero() {
			t.Errorf("uncovered = %v, want 0", res.Uncovered)
		}
	})
}

func TestMatch_InputNotModified(t *testing.T) {
	in := events(
		stock(2, "2025-01-03", Sell, "AAPL", 1, 120),
		stock(1, "2025-01-02", Buy, "AAPL", 1, 100),
	)
	Match(in)
	if in[0].TradeID != 2 {
		t.Errorf("Match() reordered its input")
	}
}

func TestLotConsume(t *testing.T) {
	l := Lot{Date: date.New(2025, 1, 1), Quantity: dec(3), Price: dec(10), FeeRemaining: dec(3), Multiplier: decimal.NewFromInt(100)}
	cost, rest := l.consume(dec(1))
	if !cost.Equal(dec(1001)) {
		t.Errorf("consume(1) cost = %v, want 1001", cost)
	}
	if rest == nil || !rest.Quantity.Equal(dec(2)) || !rest.FeeRemaining.Equal(dec(2)) {
		t.Fatalf("consume(1) remainder = %+v", rest)
	}
	cost, rest = rest.consume(dec(2))
	if !cost.Equal(dec(2002)) || rest != nil {
		t.Errorf("consume(all) = %v, %v; want 2002, nil", cost, rest)
	}
}
