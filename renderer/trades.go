package renderer

import (
	"fmt"
	"io"
	"strings"

	tj "github.com/etnz/tradejournal"
)

// RenderTrades renders the trade log as a table.
func RenderTrades(trades []tj.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trades\n\n")
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintln(w, "| ID | Date | Action | Quantity | Symbol | Price | Fee | Spread |")
		fmt.Fprintln(w, "|---:|:---|:---|---:|:---|---:|---:|:---|")
		for _, t := range trades {
			spread := ""
			if t.SpreadGroupID != "" {
				spread = fmt.Sprintf("%s #%d", t.SpreadType, t.SpreadLeg)
			}
			fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
				t.ID, t.Date, t.Action, t.Quantity, t.Symbol, t.Price, t.Fee, spread)
		}
		return len(trades) > 0
	})
	if len(trades) == 0 {
		fmt.Fprintln(&b, "No trade.")
	}
	return b.String()
}

// RenderPositions renders the position cache.
func RenderPositions(positions []tj.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Positions\n\n")
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintln(w, "| Account | Symbol | Quantity | Average | Cost basis |")
		fmt.Fprintln(w, "|---:|:---|---:|---:|---:|")
		for _, p := range positions {
			fmt.Fprintf(w, "| %d | %s | %s | %s | %s |\n", p.AccountID, p.Symbol, p.Quantity, p.AveragePrice, p.CostBasis)
		}
		return len(positions) > 0
	})
	if len(positions) == 0 {
		fmt.Fprintln(&b, "No open position.")
	}
	return b.String()
}
