package tradejournal

import (
	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// dec is a helper for test to create a decimal from const
func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// stock returns a stock trade, fee free.
func stock(id int64, on string, action Action, symbol string, qty, price float64) Trade {
	return Trade{
		ID: id, UserID: 1, AccountID: 1,
		Symbol: symbol, Class: Stock, Action: action,
		Quantity: Q(qty), Price: USD(price), Fee: USD(0),
		Date: date.MustParse(on),
	}
}

// option returns a single contract option trade on an underlying expiring on exp.
func option(id int64, on string, action Action, underlying, exp string, class OptionClass, strike, price float64) Trade {
	contract := &OptionContract{
		Class:      class,
		Strike:     decimal.NewFromFloat(strike),
		Expiration: date.MustParse(exp),
		Underlying: underlying,
		Multiplier: DefaultMultiplier,
	}
	return Trade{
		ID: id, UserID: 1, AccountID: 1,
		Symbol: contract.OCC(), Class: Option, Action: action,
		Quantity: Q(1), Price: USD(price), Fee: USD(0),
		Date:    date.MustParse(on),
		Option:  contract,
		Opening: action.IsOpening(),
	}
}
