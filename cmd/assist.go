package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/tradejournal/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with an AI assistant about the journal" }
func (*assistCmd) Usage() string {
	return `tj assist [<question>]

  Starts an interactive session with an assistant that reads the journal.
  The Gemini API key is read from GEMINI_API_KEY, the model from GEMINI_MODEL.
`
}

func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := strings.Join(f.Args(), " ")

	return run(ctx, func(ctx context.Context, a *app) error {
		client, err := genai.NewClient(ctx, nil)
		if err != nil {
			return fmt.Errorf("cannot initialize Gemini's client: %w", err)
		}

		coach := agent.NewCoach(a.svc, a.cfg.UserID, a.cfg.AccountID)
		assistant := agent.New(os.Stdout, os.Stdin, a.cfg.GeminiModel, agent.NewTrader(), coach)
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
			assistant.Render = func(md string) string {
				out, err := r.Render(md)
				if err != nil {
					return md
				}
				return out
			}
		}
		return assistant.Run(ctx, client, initialPrompt)
	})
}
