package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

// tradesCmd holds the flags for the 'trades' subcommand.
type tradesCmd struct {
	rangeFlags
	symbol string
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list the trades of the journal" }
func (*tradesCmd) Usage() string {
	return `tj trades [-s <symbol>] [-from <date>] [-to <date>]

  Lists trades in chronological order.
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	c.rangeFlags.SetFlags(f)
	f.StringVar(&c.symbol, "s", "", "Only list the trades of this symbol")
}

func (c *tradesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := c.Range()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		trades, err := a.svc.Trades(ctx, tj.Filter{
			UserID:    a.cfg.UserID,
			AccountID: a.cfg.AccountID,
			Symbol:    strings.ToUpper(c.symbol),
			Range:     r,
		})
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderTrades(trades))
		return nil
	})
}

// addCmd holds the flags for the 'add' subcommand.
type addCmd struct {
	date     string
	action   string
	symbol   string
	quantity string
	price    string
	fee      string
	currency string
	notes    string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a trade by hand" }
func (*addCmd) Usage() string {
	return `tj -account <id> add -a <action> -s <symbol> -q <quantity> -p <price> [-d <date>] [-fee <fee>]

  Records a single trade. Option trades use their OCC symbol, e.g. AAPL250516C00150000.
  Actions are BUY, SELL, BUY_TO_OPEN, SELL_TO_OPEN, BUY_TO_CLOSE, SELL_TO_CLOSE,
  ASSIGNED, EXERCISED and EXPIRED.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the trade")
	f.StringVar(&c.action, "a", "", "Action of the trade")
	f.StringVar(&c.symbol, "s", "", "Symbol of the stock or OCC symbol of the option")
	f.StringVar(&c.quantity, "q", "", "Quantity, always positive")
	f.StringVar(&c.price, "p", "0", "Price per share or per contract share")
	f.StringVar(&c.fee, "fee", "0", "Fees and commissions")
	f.StringVar(&c.currency, "c", "USD", "Currency of price and fee")
	f.StringVar(&c.notes, "notes", "", "Free notes")
}

// trade builds the trade described by the flags.
func (c *addCmd) trade() (tj.Trade, error) {
	on, err := date.Parse(c.date)
	if err != nil {
		return tj.Trade{}, err
	}
	action, err := tj.ParseAction(c.action)
	if err != nil {
		return tj.Trade{}, err
	}
	qty, err := tj.ParseQuantity(c.quantity)
	if err != nil {
		return tj.Trade{}, fmt.Errorf("invalid quantity: %w", err)
	}
	price, err := tj.ParseMoney(c.price, c.currency)
	if err != nil {
		return tj.Trade{}, fmt.Errorf("invalid price: %w", err)
	}
	fee, err := tj.ParseMoney(c.fee, c.currency)
	if err != nil {
		return tj.Trade{}, fmt.Errorf("invalid fee: %w", err)
	}
	t := tj.Trade{
		Symbol:   strings.ToUpper(strings.TrimSpace(c.symbol)),
		Class:    tj.Stock,
		Action:   action,
		Quantity: qty,
		Price:    price,
		Fee:      fee,
		Date:     on,
		Notes:    c.notes,
	}
	if o, ok := tj.ParseOCC(t.Symbol); ok {
		t.Class, t.Option = tj.Option, &o
		t.Opening = action.IsOpening()
	}
	return t, nil
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := c.trade()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		if t.AccountID, err = a.requireAccount(); err != nil {
			return err
		}
		t.UserID = a.cfg.UserID
		saved, err := a.svc.AddTrade(ctx, t)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderTrades([]tj.Trade{saved}))
		return nil
	})
}

// deleteCmd holds the flags for the 'delete' subcommand.
type deleteCmd struct {
	all bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete trades" }
func (*deleteCmd) Usage() string {
	return `tj delete <trade id>...
tj -account <id> delete -all

  Deletes trades by id, or every trade and dividend of an account.
  Positions are recalculated afterwards.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Delete every trade and dividend of the account")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.all == (f.NArg() > 0) {
		fmt.Fprintln(os.Stderr, "delete requires either trade ids or -all")
		return subcommands.ExitUsageError
	}
	var ids []int64
	for _, arg := range f.Args() {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid trade id %q\n", arg)
			return subcommands.ExitUsageError
		}
		ids = append(ids, id)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		if c.all {
			account, err := a.requireAccount()
			if err != nil {
				return err
			}
			n, err := a.svc.DeleteAllTrades(ctx, a.cfg.UserID, account)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d trades.\n", n)
			return nil
		}
		var errs []error
		for _, id := range ids {
			if err := a.svc.DeleteTrade(ctx, a.cfg.UserID, id); err != nil {
				errs = append(errs, fmt.Errorf("trade %d: %w", id, err))
				continue
			}
			fmt.Printf("Deleted trade %d.\n", id)
		}
		return errors.Join(errs...)
	})
}

// dedupeCmd is the 'dedupe' subcommand.
type dedupeCmd struct{}

func (*dedupeCmd) Name() string     { return "dedupe" }
func (*dedupeCmd) Synopsis() string { return "remove duplicated trades" }
func (*dedupeCmd) Usage() string {
	return `tj -account <id> dedupe

  Removes trades identical to an earlier one on date, symbol, action, quantity
  and price. The earliest recorded copy is kept.
`
}

func (*dedupeCmd) SetFlags(*flag.FlagSet) {}

func (*dedupeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		account, err := a.requireAccount()
		if err != nil {
			return err
		}
		n, err := a.svc.CleanupDuplicates(ctx, a.cfg.UserID, account)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d duplicates.\n", n)
		return nil
	})
}
