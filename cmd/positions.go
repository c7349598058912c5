package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

// positionsCmd is the 'positions' subcommand.
type positionsCmd struct{}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "list the open positions" }
func (*positionsCmd) Usage() string {
	return `tj positions

  Lists the open long positions at their average cost, as last recalculated.
`
}

func (*positionsCmd) SetFlags(*flag.FlagSet) {}

func (*positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		positions, err := a.svc.Positions(ctx, a.cfg.UserID, a.cfg.AccountID)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderPositions(positions))
		return nil
	})
}

// holdingsCmd is the 'holdings' subcommand.
type holdingsCmd struct{}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "value the open positions at market prices" }
func (*holdingsCmd) Usage() string {
	return `tj holdings

  Values the open positions with the latest quotes: market value, unrealized
  P&L and day change. Positions without a quote are listed apart.
`
}

func (*holdingsCmd) SetFlags(*flag.FlagSet) {}

func (*holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		p, err := a.svc.PortfolioWithQuotes(ctx, a.cfg.UserID, a.cfg.AccountID)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderPortfolio(&p))
		return nil
	})
}

// recalcCmd is the 'recalc' subcommand.
type recalcCmd struct{}

func (*recalcCmd) Name() string     { return "recalc" }
func (*recalcCmd) Synopsis() string { return "rebuild positions from the trades" }
func (*recalcCmd) Usage() string {
	return `tj recalc

  Rebuilds the positions of the account, or of every account, by matching the
  whole trade history again.
`
}

func (*recalcCmd) SetFlags(*flag.FlagSet) {}

func (*recalcCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		if err := a.svc.RecalculatePositions(ctx, a.cfg.UserID, a.cfg.AccountID); err != nil {
			return err
		}
		fmt.Println("Positions recalculated.")
		return nil
	})
}
