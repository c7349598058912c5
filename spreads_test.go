package tradejournal

import (
	"fmt"
	"testing"
)

// sequence returns a group ID generator yielding g1, g2...
func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}
}

func TestPlanSpreads_CreditCallSpread(t *testing.T) {
	trades := []Trade{
		option(1, "2025-04-01", SellToOpen, "AAPL", "2025-05-16", Call, 155, 5),
		option(2, "2025-04-01", BuyToOpen, "AAPL", "2025-05-16", Call, 150, 3),
	}
	groups, patches := PlanSpreads(trades, sequence())
	if len(groups) != 1 {
		t.Fatalf("PlanSpreads() found %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Type != CreditSpread || g.Name != "Credit Call Spread" {
		t.Errorf("group = %s %q, want CREDIT_SPREAD \"Credit Call Spread\"", g.Type, g.Name)
	}
	if !g.NetPremium.Equal(dec(200)) {
		t.Errorf("net premium = %v, want 200", g.NetPremium)
	}

	want := []SpreadPatch{
		{TradeID: 2, Type: CreditSpread, GroupID: "g1", Leg: 1, Notes: "Strategy: Credit Call Spread | Net premium: $200.00"},
		{TradeID: 1, Type: CreditSpread, GroupID: "g1", Leg: 2, Notes: "Strategy: Credit Call Spread | Net premium: $200.00"},
	}
	if len(patches) != len(want) {
		t.Fatalf("PlanSpreads() returned %d patches, want %d", len(patches), len(want))
	}
	for i := range want {
		if patches[i] != want[i] {
			t.Errorf("patch[%d] = %+v, want %+v", i, patches[i], want[i])
		}
	}
}

func TestPlanSpreads_DebitPutSpread(t *testing.T) {
	trades := []Trade{
		option(1, "2025-04-01", BuyToOpen, "QQQ", "2025-05-16", Put, 450, 8),
		option(2, "2025-04-01", SellToOpen, "QQQ", "2025-05-16", Put, 440, 5),
	}
	groups, _ := PlanSpreads(trades, sequence())
	if len(groups) != 1 || groups[0].Type != DebitSpread || groups[0].Name != "Debit Put Spread" {
		t.Fatalf("PlanSpreads() = %+v, want one debit put spread", groups)
	}
}

func TestPlanSpreads_IronCondorIsStable(t *testing.T) {
	trades := []Trade{
		option(1, "2025-04-01", BuyToOpen, "SPY", "2025-05-16", Put, 480, 1),
		option(2, "2025-04-01", SellToOpen, "SPY", "2025-05-16", Put, 490, 2),
		option(3, "2025-04-01", SellToOpen, "SPY", "2025-05-16", Call, 530, 2),
		option(4, "2025-04-01", BuyToOpen, "SPY", "2025-05-16", Call, 540, 1),
	}
	groups, patches := PlanSpreads(trades, sequence())
	if len(groups) != 1 || groups[0].Type != IronCondor || groups[0].Name != "Iron Condor" {
		t.Fatalf("PlanSpreads() = %+v, want one iron condor", groups)
	}
	for i, p := range patches {
		if p.Leg != i+1 || p.TradeID != int64(i+1) || p.GroupID != "g1" {
			t.Errorf("patch[%d] = %+v", i, p)
		}
	}

	// a second run over the patched trades changes nothing
	patched := make([]Trade, len(trades))
	for i, p := range patches {
		patched[i] = p.Apply(trades[p.TradeID-1])
	}
	if groups, patches := PlanSpreads(patched, sequence()); len(groups) != 0 || len(patches) != 0 {
		t.Errorf("second run regrouped trades: %+v", groups)
	}
}

func TestDetectSpreads_Shapes(t *testing.T) {
	testCases := []struct {
		name     string
		trades   []Trade
		wantType SpreadType
		wantName string
	}{
		{
			name: "long straddle",
			trades: []Trade{
				option(1, "2025-04-01", BuyToOpen, "NVDA", "2025-05-16", Call, 100, 6),
				option(2, "2025-04-01", BuyToOpen, "NVDA", "2025-05-16", Put, 100, 5),
			},
			wantType: Straddle, wantName: "Long Straddle",
		},
		{
			name: "short strangle",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "NVDA", "2025-05-16", Call, 110, 3),
				option(2, "2025-04-01", SellToOpen, "NVDA", "2025-05-16", Put, 90, 2),
			},
			wantType: Strangle, wantName: "Short Strangle",
		},
		{
			name: "long call butterfly",
			trades: []Trade{
				option(1, "2025-04-01", BuyToOpen, "IWM", "2025-05-16", Call, 200, 6),
				option(2, "2025-04-01", SellToOpen, "IWM", "2025-05-16", Call, 205, 3),
				option(3, "2025-04-01", BuyToOpen, "IWM", "2025-05-16", Call, 210, 1),
			},
			wantType: Butterfly, wantName: "Long Call Butterfly",
		},
		{
			name: "calendar",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "MSFT", "2025-04-17", Call, 400, 4),
				option(2, "2025-04-01", BuyToOpen, "MSFT", "2025-05-16", Call, 400, 9),
			},
			wantType: Calendar, wantName: "Calendar Call Spread",
		},
		{
			name: "diagonal",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "MSFT", "2025-04-17", Put, 380, 4),
				option(2, "2025-04-01", BuyToOpen, "MSFT", "2025-05-16", Put, 370, 6),
			},
			wantType: Diagonal, wantName: "Diagonal Put Spread",
		},
		{
			name: "jade lizard",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Put, 90, 2),
				option(2, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Call, 110, 1),
				option(3, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Call, 115, 0.5),
			},
			wantType: Custom, wantName: "Jade Lizard",
		},
		{
			name: "twisted sister",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Put, 90, 2),
				option(2, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Put, 85, 1),
				option(3, "2025-04-01", BuyToOpen, "AMD", "2025-05-16", Call, 115, 0.5),
			},
			wantType: Custom, wantName: "Twisted Sister",
		},
		{
			name: "five legs",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Put, 90, 2),
				option(2, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Put, 85, 1),
				option(3, "2025-04-01", BuyToOpen, "AMD", "2025-05-16", Call, 115, 0.5),
				option(4, "2025-04-01", BuyToOpen, "AMD", "2025-05-16", Call, 120, 0.5),
				option(5, "2025-04-01", BuyToOpen, "AMD", "2025-05-16", Call, 125, 0.5),
			},
			wantType: Custom, wantName: "Custom (5-leg)",
		},
		{
			name: "single",
			trades: []Trade{
				option(1, "2025-04-01", SellToOpen, "KO", "2025-05-16", Put, 60, 1),
			},
			wantType: Single, wantName: "Short Put",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			groups := DetectSpreads(tc.trades)
			if len(groups) != 1 {
				t.Fatalf("DetectSpreads() found %d groups, want 1: %+v", len(groups), groups)
			}
			if g := groups[0]; g.Type != tc.wantType || g.Name != tc.wantName || len(g.Legs) != len(tc.trades) {
				t.Errorf("DetectSpreads() = %s %q with %d legs, want %s %q", g.Type, g.Name, len(g.Legs), tc.wantType, tc.wantName)
			}
		})
	}
}

func TestDetectSpreads_PassOrder(t *testing.T) {
	// the two calls form a vertical before the custom pass could see three legs.
	trades := []Trade{
		option(1, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Put, 90, 2),
		option(2, "2025-04-01", SellToOpen, "AMD", "2025-05-16", Call, 110, 1),
		option(3, "2025-04-01", BuyToOpen, "AMD", "2025-05-16", Call, 115, 0.5),
	}
	groups := DetectSpreads(trades)
	if len(groups) != 2 {
		t.Fatalf("DetectSpreads() found %d groups, want 2", len(groups))
	}
	if groups[0].Type != CreditSpread || groups[1].Type != Single {
		t.Errorf("DetectSpreads() = %s then %s, want CREDIT_SPREAD then SINGLE", groups[0].Type, groups[1].Type)
	}
}

func TestDetectSpreads_Candidates(t *testing.T) {
	grouped := option(1, "2025-04-01", SellToOpen, "KO", "2025-05-16", Put, 60, 1)
	grouped.SpreadGroupID = "existing"
	trades := []Trade{
		grouped,
		option(2, "2025-05-16", Expired, "KO", "2025-05-16", Put, 60, 0),
		stock(3, "2025-04-01", Buy, "KO", 100, 62),
	}
	if groups := DetectSpreads(trades); len(groups) != 0 {
		t.Errorf("DetectSpreads() = %+v, want nothing", groups)
	}
}

func TestAnnotate(t *testing.T) {
	g := SpreadGroup{Name: "Short Put", NetPremium: dec(100), Legs: []Trade{{Price: USD(1)}}}
	if got := annotate("rolled", g); got != "rolled | Strategy: Short Put | Net premium: $100.00" {
		t.Errorf("annotate() = %q", got)
	}
	if got := annotate("Strategy: kept", g); got != "Strategy: kept" {
		t.Errorf("annotate() must not annotate twice, got %q", got)
	}
}
