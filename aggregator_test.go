package tradejournal

import "testing"

func TestBuildPositions(t *testing.T) {
	buy := stock(1, "2025-01-02", Buy, "AAPL", 10, 100)
	buy.Fee = USD(5)
	trades := []Trade{
		buy,
		stock(2, "2025-01-03", Buy, "AAPL", 10, 110),
		stock(3, "2025-01-04", Sell, "AAPL", 15, 120),
		stock(4, "2025-01-02", Buy, "MSFT", 3, 400),
		stock(5, "2025-01-05", Sell, "MSFT", 3, 420),
		option(6, "2025-01-06", BuyToOpen, "SPY", "2025-02-21", Call, 600, 2.5),
	}

	got := BuildPositions(trades)
	if len(got) != 2 {
		t.Fatalf("BuildPositions() returned %d positions, want 2: %+v", len(got), got)
	}

	aapl := got[0]
	if aapl.Symbol != "AAPL" || !aapl.Quantity.Equal(Q(5)) {
		t.Errorf("AAPL position = %s x %s, want 5", aapl.Symbol, aapl.Quantity)
	}
	if !aapl.AveragePrice.Equal(USD(110)) || !aapl.CostBasis.Equal(USD(550)) {
		t.Errorf("AAPL average %s cost %s, want 110 and 550", aapl.AveragePrice, aapl.CostBasis)
	}

	spy := got[1]
	if spy.Multiplier != 100 || !spy.CostBasis.Equal(USD(250)) {
		t.Errorf("option position multiplier %d cost %s, want 100 and 250", spy.Multiplier, spy.CostBasis)
	}
}

func TestBuildPositions_FeesOnlyInCostBasis(t *testing.T) {
	buy := stock(1, "2025-01-02", Buy, "AAPL", 10, 100)
	buy.Fee = USD(5)
	opt := option(3, "2025-01-06", BuyToOpen, "SPY", "2025-02-21", Call, 600, 2.5)
	opt.Fee = USD(0.65)

	testCases := []struct {
		name           string
		trades         []Trade
		average, basis Money
	}{
		{"whole lot", []Trade{buy}, USD(100), USD(1005)},
		{"partly sold", []Trade{buy, stock(2, "2025-01-03", Sell, "AAPL", 4, 120)}, USD(100), USD(603)},
		{"option", []Trade{opt}, USD(2.5), USD(250.65)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildPositions(tc.trades)
			if len(got) != 1 {
				t.Fatalf("BuildPositions() = %+v, want one position", got)
			}
			if !got[0].AveragePrice.Equal(tc.average) || !got[0].CostBasis.Equal(tc.basis) {
				t.Errorf("average %s cost %s, want %s and %s", got[0].AveragePrice, got[0].CostBasis, tc.average, tc.basis)
			}
		})
	}
}

func TestBuildPositions_NearZero(t *testing.T) {
	trades := []Trade{
		stock(1, "2025-01-02", Buy, "VTI", 1.00005, 100),
		stock(2, "2025-01-03", Sell, "VTI", 1, 100),
	}
	if got := BuildPositions(trades); len(got) != 0 {
		t.Errorf("dust holdings must be dropped, got %+v", got)
	}
}
