package tradejournal

import (
	"context"

	"github.com/etnz/tradejournal/date"
)

// Filter selects events of a user.
type Filter struct {
	UserID    int64
	AccountID int64      // 0 for all accounts
	Symbol    string     // "" for all symbols
	Range     date.Range // zero for all time
}

// Match reports whether the filter selects an event.
func (f Filter) Match(userID, accountID int64, symbol string, on date.Date) bool {
	return userID == f.UserID &&
		(f.AccountID == 0 || f.AccountID == accountID) &&
		(f.Symbol == "" || f.Symbol == symbol) &&
		f.Range.Contains(on)
}

// TradeStore persists the trade log.
//
// ListTrades returns trades ordered by date then ID. SaveTrades inserts trades
// with a zero ID and updates the others, in a single batch, and returns them with
// their IDs.
type TradeStore interface {
	ListTrades(ctx context.Context, f Filter) ([]Trade, error)
	GetTrade(ctx context.Context, userID, id int64) (Trade, error)
	SaveTrades(ctx context.Context, trades []Trade) ([]Trade, error)
	DeleteTrade(ctx context.Context, userID, id int64) error
	DeleteAllTrades(ctx context.Context, userID, accountID int64) (int, error)
	ApplySpreadPatches(ctx context.Context, userID int64, patches []SpreadPatch) error
}

// DividendStore persists dividends.
type DividendStore interface {
	ListDividends(ctx context.Context, f Filter) ([]Dividend, error)
	SaveDividends(ctx context.Context, dividends []Dividend) ([]Dividend, error)
	DeleteDividend(ctx context.Context, userID, id int64) error
	DeleteAllDividends(ctx context.Context, userID, accountID int64) (int, error)
}

// PositionStore persists the derived positions. It never computes them.
type PositionStore interface {
	UpsertPosition(ctx context.Context, p Position) error
	DeletePosition(ctx context.Context, userID, accountID int64, symbol string) error
	ListPositions(ctx context.Context, userID, accountID int64) ([]Position, error)
}

// AccountStore persists accounts. GetAccount returns ErrAccountNotFound when the
// account does not exist or belongs to someone else.
type AccountStore interface {
	GetAccount(ctx context.Context, userID, accountID int64) (Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]Account, error)
	CreateAccount(ctx context.Context, a Account) (Account, error)
}

// BatchStore saves the trades and dividends of an import in a single
// transaction: either every row is saved or none is.
type BatchStore interface {
	SaveBatch(ctx context.Context, trades []Trade, dividends []Dividend) ([]Trade, []Dividend, error)
}

// Store groups every persistence collaborator of the journal.
type Store interface {
	TradeStore
	DividendStore
	BatchStore
	PositionStore
	AccountStore
}

// Quote is the market data of a symbol.
type Quote struct {
	Symbol      string `json:"symbol"`
	Price       Money  `json:"price"`
	Change      Money  `json:"change"`
	DayHigh     Money  `json:"day_high"`
	DayLow      Money  `json:"day_low"`
	Volume      int64  `json:"volume"`
	MarketState string `json:"market_state,omitempty"`
}

// QuoteProvider looks up current quotes. Symbols without a quote are absent from the result.
type QuoteProvider interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}
