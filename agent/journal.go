package agent

import (
	"context"
	"fmt"
	"strings"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/docs"
	"github.com/etnz/tradejournal/renderer"
	"google.golang.org/genai"
)

// creates the facilitator
func newFacilitator(model string, experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is a trader reviewing their own trading journal. They want to understand
			their results, their open positions and how to improve.

			Devise a plan of questions to ask to each experts and come up with the best reponse to the user's request.
			The user will assume that you know about their symbols, ask the Coach first to understand what they trade.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader returns the expert grounded on Google Search.
func NewTrader() *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader,
		Very well aware of all the financial products, options strategies and markets,
		about the latest news about the different companies.
		Ask the Trader whenever you need recent or grounding information.`,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a expert in Trading, you can search and find about anything related to
			companies, markets and options. You Leverage Google Search to
			ground your assertions in a solid truth.
			You can get the latests news too, and you know how to relate them to the user's request.
				`}}},
		},
	}
}

// Journal is the part of the journal service the Coach reads.
type Journal interface {
	ComputeSummary(ctx context.Context, userID, accountID int64, r date.Range) (tj.TradingSummary, error)
	ComputeDashboardMetrics(ctx context.Context, userID, accountID int64, r date.Range) (tj.DashboardMetrics, error)
	Positions(ctx context.Context, userID, accountID int64) ([]tj.Position, error)
	PortfolioWithQuotes(ctx context.Context, userID, accountID int64) (tj.Portfolio, error)
	Spreads(ctx context.Context, userID, accountID int64, r date.Range) ([]tj.SpreadGroup, error)
	Trades(ctx context.Context, f tj.Filter) ([]tj.Trade, error)
	DividendSummary(ctx context.Context, userID, accountID int64, r date.Range) (tj.DividendSummary, error)
}

// NewCoach returns the expert reading the journal of userID. accountID 0 reads every account.
func NewCoach(j Journal, userID, accountID int64) *Expert {
	lib := JournalTools(j, userID, accountID)

	instruction := `
		You are a trading coach in charge of the user's trading journal.
		You know how to use the Tools to extract relevant information about the user's trades and results.
		You are part of a team of experts, yours is everything about the user's journal. They might ask
		you questions about the journal, pardon their approximative language and figure out what they meant.

		Use the available tools to get information about
		  - the performance summary and the dashboard over a date range
		  - open positions and their market value
		  - option spreads
		  - trades of a symbol
		  - dividends
	`
	if doc, err := docs.Get("statistics", "spreads"); err == nil {
		instruction += "\nThe journal computes its figures as documented here:\n\n" + doc
	}

	return &Expert{
		Name: "Coach",
		Description: `This is the Coach. They are in charge of reading the user's trading journal.
		They can compute performance statistics, list positions, spreads, trades and dividends.`,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		},
		Library: NewLibrary(lib),
	}
}

// Func implements a simple Function
type Func struct {
	Decl *genai.FunctionDeclaration
	// Run returns the markdown output of the function.
	Run func(ctx context.Context, args map[string]any) (string, error)
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	out, err := f.Run(ctx, args)
	if err != nil {
		return failure(id, f.Decl.Name, err)
	}
	return success(id, f.Decl.Name, out)
}

var dateHelp = "An empty date leaves the range open on that side. Otherwise:\n\n" + must(docs.Get("dates"))

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

var rangeSchema = map[string]*genai.Schema{
	"from": {Type: genai.TypeString, Description: "First day of the range. " + dateHelp},
	"to":   {Type: genai.TypeString, Description: "Last day of the range. " + dateHelp},
}

func markdownResponse(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

// JournalTools returns the functions reading the journal of userID in accountID.
func JournalTools(j Journal, userID, accountID int64) []*Func {
	return []*Func{
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Summary",
				Description: "Summary computes the trading performance over a date range: P&L, win rate, profit factor, drawdown, Sharpe ratio and breakdowns by year, month, symbol and weekday.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: rangeSchema},
				Response:    markdownResponse("A markdown report of the trading summary."),
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				r, err := parseRange(args)
				if err != nil {
					return "", err
				}
				s, err := j.ComputeSummary(ctx, userID, accountID, r)
				if err != nil {
					return "", err
				}
				return renderer.RenderSummary(&s), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Dashboard",
				Description: "Dashboard returns the headline metrics over a date range, including the daily P&L series.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: rangeSchema},
				Response:    markdownResponse("A markdown report of the dashboard metrics."),
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				r, err := parseRange(args)
				if err != nil {
					return "", err
				}
				m, err := j.ComputeDashboardMetrics(ctx, userID, accountID, r)
				if err != nil {
					return "", err
				}
				return renderer.RenderDashboard(&m), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Positions",
				Description: "Positions lists the open positions with their quantity, average cost and cost basis.",
				Response:    markdownResponse("A markdown table of the open positions."),
			},
			Run: func(ctx context.Context, _ map[string]any) (string, error) {
				p, err := j.Positions(ctx, userID, accountID)
				if err != nil {
					return "", err
				}
				return renderer.RenderPositions(p), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Holdings",
				Description: "Holdings values the open positions at the latest market quotes: market value, unrealized P&L and day change.",
				Response:    markdownResponse("A markdown table of the holdings."),
			},
			Run: func(ctx context.Context, _ map[string]any) (string, error) {
				p, err := j.PortfolioWithQuotes(ctx, userID, accountID)
				if err != nil {
					return "", err
				}
				return renderer.RenderPortfolio(&p), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Spreads",
				Description: "Spreads lists the option strategies detected in the journal over a date range, with their legs and net premium.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: rangeSchema},
				Response:    markdownResponse("A markdown list of the spreads."),
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				r, err := parseRange(args)
				if err != nil {
					return "", err
				}
				g, err := j.Spreads(ctx, userID, accountID, r)
				if err != nil {
					return "", err
				}
				return renderer.RenderSpreads(g), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Trades",
				Description: "Trades lists the trades of the journal, optionally restricted to a symbol and a date range.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"symbol": {Type: genai.TypeString, Description: "The symbol, as traded. Empty for every symbol."},
						"from":   rangeSchema["from"],
						"to":     rangeSchema["to"],
					},
				},
				Response: markdownResponse("A markdown table of the trades."),
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				r, err := parseRange(args)
				if err != nil {
					return "", err
				}
				symbol, _ := args["symbol"].(string)
				trades, err := j.Trades(ctx, tj.Filter{UserID: userID, AccountID: accountID, Symbol: strings.ToUpper(strings.TrimSpace(symbol)), Range: r})
				if err != nil {
					return "", err
				}
				return renderer.RenderTrades(trades), nil
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "Dividends",
				Description: "Dividends totals the dividends received over a date range, by symbol, year and type.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: rangeSchema},
				Response:    markdownResponse("A markdown report of the dividends."),
			},
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				r, err := parseRange(args)
				if err != nil {
					return "", err
				}
				d, err := j.DividendSummary(ctx, userID, accountID, r)
				if err != nil {
					return "", err
				}
				return renderer.RenderDividends(&d), nil
			},
		},
	}
}

func parseRange(args map[string]any) (date.Range, error) {
	var r date.Range
	for key, d := range map[string]*date.Date{"from": &r.From, "to": &r.To} {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return r, fmt.Errorf("invalid %s type %T, expected string", key, v)
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		on, err := date.Parse(s)
		if err != nil {
			return r, err
		}
		*d = on
	}
	if !r.From.IsZero() && !r.To.IsZero() {
		r = date.NewRange(r.From, r.To)
	}
	return r, nil
}
