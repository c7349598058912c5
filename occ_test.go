package tradejournal

import (
	"testing"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

func TestParseOption(t *testing.T) {
	testCases := []struct {
		name                        string
		symbol, description, action string
		want                        OptionContract
	}{
		{
			name:   "occ",
			symbol: "AAPL250516C00150000",
			want:   OptionContract{Call, decimal.NewFromInt(150), date.New(2025, 5, 16), "AAPL", 100},
		},
		{
			name:   "occ with padding and fractional strike",
			symbol: "SPY   250321P00512500",
			want:   OptionContract{Put, decimal.NewFromFloat(512.5), date.New(2025, 3, 21), "SPY", 100},
		},
		{
			name:   "broker short form",
			symbol: " -AAPL250516C150",
			want:   OptionContract{Call, decimal.NewFromInt(150), date.New(2025, 5, 16), "AAPL", 100},
		},
		{
			name:        "description",
			symbol:      "",
			description: "PUT (QQQ) INVESCO QQQ TR SEP 19 25 $440 (100 SHS)",
			want:        OptionContract{Put, decimal.NewFromInt(440), date.New(2025, 9, 19), "QQQ", 100},
		},
		{
			name:   "action with mini contract",
			symbol: "",
			action: "YOU SOLD OPENING TRANSACTION CALL (XYZ) XYZ CORP JAN 16 26 $12.5 (10 SHS) (Margin)",
			want:   OptionContract{Call, decimal.NewFromFloat(12.5), date.New(2026, 1, 16), "XYZ", 10},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseOption(tc.symbol, tc.description, tc.action)
			if !ok {
				t.Fatalf("ParseOption() failed")
			}
			if got.Class != tc.want.Class || !got.Strike.Equal(tc.want.Strike) || got.Expiration != tc.want.Expiration ||
				got.Underlying != tc.want.Underlying || got.Multiplier != tc.want.Multiplier {
				t.Errorf("ParseOption() = %+v, want %+v", got, tc.want)
			}
		})
	}

	if _, ok := ParseOption("AAPL", "APPLE INC", "YOU BOUGHT"); ok {
		t.Error("a stock must not parse as an option")
	}
}

func TestFormatOCC(t *testing.T) {
	got := FormatOCC("spy", date.New(2025, 3, 21), Put, decimal.NewFromFloat(512.5))
	if want := "SPY250321P00512500"; got != want {
		t.Errorf("FormatOCC() = %q, want %q", got, want)
	}
	c, ok := ParseOCC(got)
	if !ok || c.OCC() != got {
		t.Errorf("ParseOCC(FormatOCC()) = %+v", c)
	}
}
