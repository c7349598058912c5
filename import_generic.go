package tradejournal

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// genericColumns are the column names of the generic dialect, matched exactly
// (case insensitive). date, symbol and action are mandatory.
var genericColumns = []string{
	"date", "symbol", "action", "quantity", "price", "fee", "currency",
	"underlying", "option_type", "strike", "expiration", "multiplier",
	"amount", "dividend_type", "notes",
}

func genericHeader(record []string) (columns, bool) {
	cols := make(columns)
	for i, h := range record {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range genericColumns {
			if h == name {
				cols[name] = i
			}
		}
	}
	_, d := cols["date"]
	_, s := cols["symbol"]
	_, a := cols["action"]
	return cols, d && s && a
}

// parseGeneric reads the generic dialect: a header row, after any preamble, then
// one trade or dividend per row.
func parseGeneric(content []byte) ([]importRow, error) {
	r := newCSVReader(content)
	var cols columns
	var rows []importRow
	seen := false
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		seen = true
		line, _ := r.FieldPos(0)
		if cols == nil {
			if err == nil {
				if c, ok := genericHeader(record); ok {
					cols = c
				}
			}
			continue
		}
		if err != nil {
			rows = append(rows, importRow{line: line, err: err})
			continue
		}
		row := parseGenericRow(cols, record)
		row.line = line
		rows = append(rows, row)
	}
	if cols == nil && !seen {
		return nil, ErrEmptyFile
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: no header row naming date, symbol and action columns", ErrUnknownFormat)
	}
	return rows, nil
}

// parseFlexibleDate accepts ISO and US dates.
func parseFlexibleDate(s string) (date.Date, error) {
	if d, err := parseBrokerDate(s); err == nil {
		return d, nil
	}
	return date.Parse(strings.TrimSpace(s))
}

func parseGenericRow(cols columns, record []string) importRow {
	on, err := parseFlexibleDate(cols.get(record, "date"))
	if err != nil {
		return importRow{err: err}
	}
	cur := strings.ToUpper(cols.get(record, "currency"))
	if cur == "" {
		cur = DefaultCurrency
	}
	symbol := cleanSymbol(cols.get(record, "symbol"))
	if symbol == "" {
		return importRow{err: fmt.Errorf("missing symbol")}
	}
	action := strings.ToUpper(cols.get(record, "action"))

	if strings.Contains(action, "DIVIDEND") {
		amount, err := parseNumber(cols.get(record, "amount"))
		if err != nil {
			return importRow{err: fmt.Errorf("amount: %w", err)}
		}
		typ := CashDividend
		if v := strings.ToUpper(cols.get(record, "dividend_type")); v != "" {
			typ = DividendType(strings.ReplaceAll(v, "-", "_"))
			switch typ {
			case CashDividend, ReinvestedDividend, QualifiedDividend, NonQualifiedDividend:
			default:
				return importRow{err: fmt.Errorf("unknown dividend type %q", v)}
			}
		}
		return importRow{dividend: &Dividend{
			Symbol: symbol, Amount: M(amount, cur), Type: typ, PaymentDate: on,
			TaxWithheld: M(0, cur), Notes: cols.get(record, "notes"),
		}}
	}

	a, err := ParseAction(action)
	if err != nil {
		return importRow{skip: true}
	}
	t, err := genericTrade(cols, record, a, symbol, cur, on)
	if err != nil {
		return importRow{err: err}
	}
	return importRow{trade: &t}
}

func genericTrade(cols columns, record []string, a Action, symbol, cur string, on date.Date) (Trade, error) {
	qty, err := parseNumber(cols.get(record, "quantity"))
	if err != nil {
		return Trade{}, fmt.Errorf("quantity: %w", err)
	}
	if qty.IsZero() {
		return Trade{}, fmt.Errorf("missing quantity")
	}
	price, err := parseNumber(cols.get(record, "price"))
	if err != nil {
		return Trade{}, fmt.Errorf("price: %w", err)
	}
	fee, err := parseNumber(cols.get(record, "fee"))
	if err != nil {
		return Trade{}, fmt.Errorf("fee: %w", err)
	}
	t := Trade{
		Symbol: symbol, Class: Stock, Action: a,
		Quantity: Q(qty.Abs()), Price: M(price.Abs(), cur), Fee: M(fee.Abs(), cur),
		Date: on, Notes: cols.get(record, "notes"),
	}

	c, ok, err := genericContract(cols, record)
	if err != nil {
		return Trade{}, err
	}
	if !ok {
		c, ok = ParseOCC(symbol)
	}
	if !ok {
		if a == Buy || a == Sell {
			return t, nil
		}
		return Trade{}, fmt.Errorf("option action %s without option contract", a)
	}
	if m := cols.get(record, "multiplier"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n <= 0 {
			return Trade{}, fmt.Errorf("invalid multiplier %q", m)
		}
		c.Multiplier = n
	}
	switch a {
	case Buy:
		a = BuyToOpen
	case Sell:
		a = SellToOpen
	}
	t.Class, t.Option, t.Action, t.Symbol = Option, &c, a, c.OCC()
	t.Opening = a.IsOpening()
	return t, nil
}

// genericContract reads the explicit option columns, when filled.
func genericContract(cols columns, record []string) (OptionContract, bool, error) {
	kind := cols.get(record, "option_type")
	if kind == "" {
		return OptionContract{}, false, nil
	}
	class, err := ParseOptionClass(kind)
	if err != nil {
		return OptionContract{}, false, err
	}
	strike, err := decimal.NewFromString(strings.TrimPrefix(cols.get(record, "strike"), "$"))
	if err != nil {
		return OptionContract{}, false, fmt.Errorf("invalid strike %q", cols.get(record, "strike"))
	}
	exp, err := parseFlexibleDate(cols.get(record, "expiration"))
	if err != nil {
		return OptionContract{}, false, fmt.Errorf("expiration: %w", err)
	}
	underlying := strings.ToUpper(cols.get(record, "underlying"))
	if underlying == "" {
		underlying = cleanSymbol(cols.get(record, "symbol"))
	}
	return OptionContract{Class: class, Strike: strike, Expiration: exp, Underlying: underlying, Multiplier: DefaultMultiplier}, true, nil
}
