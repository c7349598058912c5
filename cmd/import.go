package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/renderer"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	format string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import trades and dividends from CSV files" }
func (*importCmd) Usage() string {
	return `tj -account <id> import [-f broker|generic] <file.csv>...

  Imports broker or generic CSV exports into an account. Rows already in the
  journal are skipped, so a file can be imported again safely.
  See 'tj topic import' for the supported columns.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "f", tj.FormatAuto, "Format of the files, detected from the header when empty")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "import requires at least one file")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		account, err := a.requireAccount()
		if err != nil {
			return err
		}
		for _, file := range f.Args() {
			content, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			res, err := a.svc.ImportFile(ctx, content, a.cfg.UserID, account, c.format)
			if err != nil {
				return fmt.Errorf("cannot import %q: %w", file, err)
			}
			printMarkdown(renderer.RenderImport(&res))
		}
		return nil
	})
}
