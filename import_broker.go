package tradejournal

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

// importRow is one classified row of an import file.
type importRow struct {
	line     int
	trade    *Trade
	dividend *Dividend
	skip     bool // neither a trade nor a dividend
	err      error
}

// brokerColumns are matched, case insensitive, as substrings of the header cells.
var brokerColumns = []string{"Run Date", "Action", "Symbol", "Description", "Quantity", "Price", "Commission", "Fees", "Amount"}

// columns maps a column name to its index in a record.
type columns map[string]int

// get returns the trimmed cell of the named column, "" when absent.
func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// matchColumns maps each name to the first header cell that contains it.
func matchColumns(header []string, names []string) columns {
	cols := make(columns)
	for _, name := range names {
		lname := strings.ToLower(name)
		for i, h := range header {
			if strings.Contains(strings.ToLower(strings.TrimSpace(h)), lname) {
				cols[name] = i
				break
			}
		}
	}
	return cols
}

func isBrokerHeader(record []string) bool {
	var runDate, action bool
	for _, cell := range record {
		c := strings.ToLower(cell)
		runDate = runDate || strings.Contains(c, "run date")
		action = action || strings.Contains(c, "action")
	}
	return runDate && action
}

// newCSVReader returns a lenient reader: variable field counts, stray quotes and a BOM.
func newCSVReader(content []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

// parseNumber reads broker numbers: "$1,234.50", "+3", "(12.00)". Empty is zero.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.NewReplacer("$", "", ",", "", "+", "", " ", "").Replace(s)
	if s == "" || s == "--" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	if neg {
		v = v.Neg()
	}
	return v, nil
}

// parseBrokerDate reads MM/DD/YYYY, ignoring anything after the first space ("as of ...").
func parseBrokerDate(s string) (date.Date, error) {
	s, _, _ = strings.Cut(strings.TrimSpace(s), " ")
	for _, layout := range []string{"01/02/2006", "1/2/2006", "01/02/06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return date.New(t.Date()), nil
		}
	}
	return date.Date{}, fmt.Errorf("invalid date %q, want MM/DD/YYYY", s)
}

// parseBroker reads a broker activity export. The header row is located after
// any preamble; lines with too few fields after it are disclaimers and ignored.
func parseBroker(content []byte) ([]importRow, error) {
	r := newCSVReader(content)
	var cols columns
	var rows []importRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line, _ := r.FieldPos(0)
		if err != nil {
			if cols == nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			rows = append(rows, importRow{line: line, err: err})
			continue
		}
		if cols == nil {
			if isBrokerHeader(record) {
				cols = matchColumns(record, brokerColumns)
			}
			continue
		}
		if len(record) < 3 || cols.get(record, "Action") == "" {
			continue
		}
		row := parseBrokerRow(cols, record)
		row.line = line
		rows = append(rows, row)
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: no header row with \"Run Date\" and \"Action\"", ErrUnknownFormat)
	}
	return rows, nil
}

func parseBrokerRow(cols columns, record []string) importRow {
	action := strings.ToUpper(cols.get(record, "Action"))
	on, err := parseBrokerDate(cols.get(record, "Run Date"))
	if err != nil {
		return importRow{err: err}
	}
	switch {
	case strings.Contains(action, "DIVIDEND") || strings.Contains(action, "REINVESTMENT"):
		d, err := brokerDividend(cols, record, action, on)
		if err != nil {
			return importRow{err: err}
		}
		return importRow{dividend: &d}
	case isTradeAction(action):
		t, err := brokerTrade(cols, record, action, on)
		if err != nil {
			return importRow{err: err}
		}
		return importRow{trade: &t}
	default:
		return importRow{skip: true}
	}
}

var tradeVerbs = []string{"BOUGHT", "SOLD", "OPENING", "CLOSING", "TO OPEN", "TO CLOSE", "ASSIGNED", "EXERCISED", "EXPIRED"}

func isTradeAction(action string) bool {
	for _, v := range tradeVerbs {
		if strings.Contains(action, v) {
			return true
		}
	}
	return false
}

func dividendTypeOf(action string) DividendType {
	switch {
	case strings.Contains(action, "REINVESTMENT"):
		return ReinvestedDividend
	case strings.Contains(action, "NON-QUALIFIED") || strings.Contains(action, "NON QUALIFIED") || strings.Contains(action, "NONQUALIFIED"):
		return NonQualifiedDividend
	case strings.Contains(action, "QUALIFIED"):
		return QualifiedDividend
	default:
		return CashDividend
	}
}

func brokerDividend(cols columns, record []string, action string, on date.Date) (Dividend, error) {
	amount, err := parseNumber(cols.get(record, "Amount"))
	if err != nil {
		return Dividend{}, fmt.Errorf("amount: %w", err)
	}
	typ := dividendTypeOf(action)
	if typ == ReinvestedDividend {
		// the broker books the share purchase, negative, on the reinvestment line.
		amount = amount.Abs()
	}
	symbol := cleanSymbol(cols.get(record, "Symbol"))
	if symbol == "" {
		return Dividend{}, fmt.Errorf("dividend without symbol")
	}
	return Dividend{
		Symbol:      symbol,
		Amount:      M(amount, DefaultCurrency),
		Type:        typ,
		PaymentDate: on,
		TaxWithheld: M(0, DefaultCurrency),
		Notes:       cols.get(record, "Description"),
	}, nil
}

// optionAction maps broker wording to an option action. Ambiguous wording opens.
func optionAction(action string, sell bool) Action {
	switch {
	case strings.Contains(action, "ASSIGNED"):
		return Assigned
	case strings.Contains(action, "EXERCISED"):
		return Exercised
	case strings.Contains(action, "EXPIRED"):
		return Expired
	}
	closing := strings.Contains(action, "CLOSING") || strings.Contains(action, "TO CLOSE")
	switch {
	case sell && closing:
		return SellToClose
	case sell:
		return SellToOpen
	case closing:
		return BuyToClose
	default:
		return BuyToOpen
	}
}

func brokerTrade(cols columns, record []string, action string, on date.Date) (Trade, error) {
	qty, err := parseNumber(cols.get(record, "Quantity"))
	if err != nil {
		return Trade{}, fmt.Errorf("quantity: %w", err)
	}
	if qty.IsZero() {
		return Trade{}, fmt.Errorf("missing quantity")
	}
	price, err := parseNumber(cols.get(record, "Price"))
	if err != nil {
		return Trade{}, fmt.Errorf("price: %w", err)
	}
	commission, err := parseNumber(cols.get(record, "Commission"))
	if err != nil {
		return Trade{}, fmt.Errorf("commission: %w", err)
	}
	fees, err := parseNumber(cols.get(record, "Fees"))
	if err != nil {
		return Trade{}, fmt.Errorf("fees: %w", err)
	}

	sell := strings.Contains(action, "SOLD") || strings.Contains(action, "SELL") ||
		(!strings.Contains(action, "BOUGHT") && !strings.Contains(action, "BUY") && qty.IsNegative())
	t := Trade{
		Quantity: Q(qty.Abs()),
		Price:    M(price.Abs(), DefaultCurrency),
		Fee:      M(commission.Abs().Add(fees.Abs()), DefaultCurrency),
		Date:     on,
		Notes:    cols.get(record, "Description"),
	}

	symbol := cols.get(record, "Symbol")
	if c, ok := ParseOption(symbol, cols.get(record, "Description"), action); ok {
		t.Class, t.Option = Option, &c
		t.Symbol = c.OCC()
		t.Action = optionAction(action, sell)
		t.Opening = t.Action.IsOpening()
		return t, nil
	}

	t.Class, t.Symbol, t.Action = Stock, cleanSymbol(symbol), Buy
	if sell {
		t.Action = Sell
	}
	if t.Symbol == "" {
		return Trade{}, fmt.Errorf("trade without symbol")
	}
	return t, nil
}
