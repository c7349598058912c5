// Command tj is the trading journal command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"slices"

	"github.com/etnz/tradejournal/cmd"
	"github.com/etnz/tradejournal/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	names := []string{"help", "flags", "commands"}
	for group, commands := range cmd.Commands {
		for _, c := range commands {
			commander.Register(c, group)
			names = append(names, c.Name())
		}
	}

	completion().Complete("tj")

	flag.Parse()
	if sub := flag.Arg(0); sub != "" && !slices.Contains(names, sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion, installed with COMP_INSTALL=1 tj.
func completion() *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{},
	}
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		root.Flags[f.Name] = predict.Something
	})
	root.Flags["db"] = predict.Files("*.db")

	for _, commands := range cmd.Commands {
		for _, c := range commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			sub := &complete.Command{Flags: map[string]complete.Predictor{}}
			fs.VisitAll(func(f *flag.Flag) {
				sub.Flags[f.Name] = predict.Something
			})
			root.Sub[c.Name()] = sub
		}
	}

	root.Sub["import"].Args = predict.Files("*.csv")
	root.Sub["import"].Flags["f"] = predict.Set{"broker", "generic"}
	root.Sub["summary"].Flags["p"] = predict.Set{"day", "week", "month", "quarter", "year"}
	root.Sub["publish"].Flags["o"] = predict.Dirs("*")
	if topics, err := docs.Names(); err == nil {
		root.Sub["topic"].Args = predict.Set(topics)
	}
	return root
}
