package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

// accountsCmd holds the flags for the 'accounts' subcommand.
type accountsCmd struct {
	create string
	broker string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list or create accounts" }
func (*accountsCmd) Usage() string {
	return `tj accounts [-create <name> [-broker <broker>]]

  Lists the accounts of the journal, or creates one.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.create, "create", "", "Name of the account to create")
	f.StringVar(&c.broker, "broker", "", "Broker of the created account")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		if c.create != "" {
			acc, err := a.svc.CreateAccount(ctx, tj.Account{UserID: a.cfg.UserID, Name: c.create, Broker: c.broker})
			if err != nil {
				return err
			}
			fmt.Printf("Created account %d %q.\n", acc.ID, acc.Name)
			return nil
		}
		accounts, err := a.svc.Accounts(ctx, a.cfg.UserID)
		if err != nil {
			return err
		}
		printMarkdown(accountsMarkdown(accounts))
		return nil
	})
}

func accountsMarkdown(accounts []tj.Account) string {
	var b strings.Builder
	b.WriteString("# Accounts\n\n")
	renderer.ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintln(w, "| ID | Name | Broker |")
		fmt.Fprintln(w, "|---:|:---|:---|")
		for _, a := range accounts {
			fmt.Fprintf(w, "| %d | %s | %s |\n", a.ID, a.Name, a.Broker)
		}
		return len(accounts) > 0
	})
	if len(accounts) == 0 {
		b.WriteString("No account, create one with `tj accounts -create <name>`.\n")
	}
	return b.String()
}
