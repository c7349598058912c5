package tradejournal

import (
	"fmt"
	"strings"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// Action is what a trade does. The quantity of a trade is always positive, the
// direction is carried by the action.
type Action string

const (
	Buy         Action = "BUY"
	Sell        Action = "SELL"
	BuyToOpen   Action = "BUY_TO_OPEN"
	SellToOpen  Action = "SELL_TO_OPEN"
	BuyToClose  Action = "BUY_TO_CLOSE"
	SellToClose Action = "SELL_TO_CLOSE"
	Assigned    Action = "ASSIGNED"
	Exercised   Action = "EXERCISED"
	Expired     Action = "EXPIRED"
)

var actions = []Action{Buy, Sell, BuyToOpen, SellToOpen, BuyToClose, SellToClose, Assigned, Exercised, Expired}

// ParseAction accepts canonical names as well as lower case and spaced forms
// like "buy to open".
func ParseAction(s string) (Action, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, a := range actions {
		if string(a) == norm {
			return a, nil
		}
	}
	switch norm {
	case "BTO":
		return BuyToOpen, nil
	case "STO":
		return SellToOpen, nil
	case "BTC":
		return BuyToClose, nil
	case "STC":
		return SellToClose, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// IsBuy reports whether the action adds to a long position or covers a short one.
func (a Action) IsBuy() bool { return a == Buy || a == BuyToOpen || a == BuyToClose }

// IsSell reports whether the action reduces a long position or opens a short one.
func (a Action) IsSell() bool { return a == Sell || a == SellToOpen || a == SellToClose }

// IsSettlement reports whether the action is an option lifecycle event.
func (a Action) IsSettlement() bool { return a == Assigned || a == Exercised || a == Expired }

// IsOpening reports whether the action explicitly opens an option position.
func (a Action) IsOpening() bool { return a == BuyToOpen || a == SellToOpen }

// AssetClass is the instrument class of a trade.
type AssetClass string

const (
	Stock  AssetClass = "STOCK"
	Option AssetClass = "OPTION"
)

// OptionClass is either a call or a put.
type OptionClass string

const (
	Call OptionClass = "CALL"
	Put  OptionClass = "PUT"
)

// ParseOptionClass accepts "C", "P", "call", "put" in any case.
func ParseOptionClass(s string) (OptionClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "C", "CALL":
		return Call, nil
	case "P", "PUT":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// Title returns "Call" or "Put".
func (c OptionClass) Title() string {
	if c == Put {
		return "Put"
	}
	return "Call"
}

// DefaultMultiplier is the number of shares per standard equity option contract.
const DefaultMultiplier = 100

// OptionContract describes the option a trade is about.
type OptionContract struct {
	Class      OptionClass     `json:"class"`
	Strike     decimal.Decimal `json:"strike"`
	Expiration date.Date       `json:"expiration"`
	Underlying string          `json:"underlying"`
	Multiplier int             `json:"multiplier"`
}

// OCC returns the canonical OCC symbol of the contract.
func (o OptionContract) OCC() string {
	return FormatOCC(o.Underlying, o.Expiration, o.Class, o.Strike)
}

// Trade is an immutable event of the journal.
//
// Spread fields are the only ones the journal itself ever changes, through the
// spread detector.
type Trade struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	AccountID int64      `json:"account_id"`
	Symbol    string     `json:"symbol"`
	Class     AssetClass `json:"class"`
	Action    Action     `json:"action"`
	Quantity  Quantity   `json:"quantity"`
	Price     Money      `json:"price"`
	Fee       Money      `json:"fee"`
	Date      date.Date  `json:"date"`
	Notes     string     `json:"notes,omitempty"`

	Option        *OptionContract `json:"option,omitempty"`
	Opening       bool            `json:"opening,omitempty"`
	SpreadType    SpreadType      `json:"spread_type,omitempty"`
	SpreadGroupID string          `json:"spread_group_id,omitempty"`
	SpreadLeg     int             `json:"spread_leg,omitempty"`
}

// IsOption reports whether the trade is on an option contract.
func (t Trade) IsOption() bool { return t.Class == Option && t.Option != nil }

// Multiplier returns the contract multiplier, 1 for stocks.
func (t Trade) Multiplier() int {
	if !t.IsOption() {
		return 1
	}
	if t.Option.Multiplier <= 0 {
		return DefaultMultiplier
	}
	return t.Option.Multiplier
}

// Root returns the underlying symbol for options and the symbol itself otherwise.
func (t Trade) Root() string {
	if t.IsOption() && t.Option.Underlying != "" {
		return t.Option.Underlying
	}
	return t.Symbol
}

// Currency returns the trade's currency.
func (t Trade) Currency() string {
	if c := t.Price.Currency(); c != "" {
		return c
	}
	return t.Fee.Currency()
}

// Notional returns quantity × price × multiplier, fees excluded.
func (t Trade) Notional() Money {
	return t.Price.Mul(t.Quantity).Mul(Q(t.Multiplier()))
}

// Validate checks the invariants of a trade before it is persisted.
func (t Trade) Validate() error {
	switch {
	case t.Symbol == "":
		return fmt.Errorf("trade has no symbol")
	case t.Date.IsZero():
		return fmt.Errorf("trade %s has no date", t.Symbol)
	case !t.Quantity.IsPositive():
		return fmt.Errorf("trade %s: quantity must be positive, got %s", t.Symbol, t.Quantity)
	case t.Price.IsNegative():
		return fmt.Errorf("trade %s: negative price %s", t.Symbol, t.Price.Decimal())
	case t.Class == Option && t.Option == nil:
		return fmt.Errorf("option trade %s has no contract", t.Symbol)
	}
	if _, err := ParseAction(string(t.Action)); err != nil {
		return fmt.Errorf("trade %s: %w", t.Symbol, err)
	}
	return nil
}

// SpreadType is the strategy family a group of option legs was classified into.
type SpreadType string

const (
	Single       SpreadType = "SINGLE"
	CreditSpread SpreadType = "CREDIT_SPREAD"
	DebitSpread  SpreadType = "DEBIT_SPREAD"
	IronCondor   SpreadType = "IRON_CONDOR"
	Straddle     SpreadType = "STRADDLE"
	Strangle     SpreadType = "STRANGLE"
	Butterfly    SpreadType = "BUTTERFLY"
	Calendar     SpreadType = "CALENDAR"
	Diagonal     SpreadType = "DIAGONAL"
	Custom       SpreadType = "CUSTOM"
)

// Account is a brokerage account owned by a user.
type Account struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Broker string `json:"broker,omitempty"`
}

// DividendType classifies a dividend payment.
type DividendType string

const (
	CashDividend         DividendType = "CASH"
	ReinvestedDividend   DividendType = "REINVESTED"
	QualifiedDividend    DividendType = "QUALIFIED"
	NonQualifiedDividend DividendType = "NON_QUALIFIED"
)

// Dividend is a payment received (or an adjustment, when negative) on a holding.
type Dividend struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	AccountID   int64        `json:"account_id"`
	Symbol      string       `json:"symbol"`
	Amount      Money        `json:"amount"`
	Type        DividendType `json:"type"`
	PaymentDate date.Date    `json:"payment_date"`
	ExDate      date.Date    `json:"ex_date,omitzero"`
	RecordDate  date.Date    `json:"record_date,omitzero"`
	TaxWithheld Money        `json:"tax_withheld"`
	Notes       string       `json:"notes,omitempty"`
}

// Net returns the amount after withholding tax.
func (d Dividend) Net() Money { return d.Amount.Sub(d.TaxWithheld) }

// Position is the derived holding of a symbol in an account.
//
// AveragePrice is the quantity-weighted unit price of the open lots, the price
// a trader compares with a quote. CostBasis is what the open lots cost in total:
// unit prices times the multiplier plus the fees of the open lots not yet
// consumed by a sale. Fees therefore only show in CostBasis.
type Position struct {
	UserID       int64    `json:"user_id"`
	AccountID    int64    `json:"account_id"`
	Symbol       string   `json:"symbol"`
	Quantity     Quantity `json:"quantity"`
	AveragePrice Money    `json:"average_price"` // per share or contract, fees excluded
	CostBasis    Money    `json:"cost_basis"`    // multiplier and pro-rated fees included
	Multiplier   int      `json:"multiplier"`
}

// MarketValue returns the value of the position at the given unit price.
func (p Position) MarketValue(price Money) Money {
	return price.Mul(p.Quantity).Mul(Q(p.Multiplier))
}
