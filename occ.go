package tradejournal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/tradejournal/date"
	"github.com/shopspring/decimal"
)

var (
	// AAPL250516C00150000: root, YYMMDD, C|P, strike in thousandths on 8 digits.
	occRE = regexp.MustCompile(`^([A-Z][A-Z0-9.]{0,5})\s*(\d{6})([CP])(\d{8})$`)
	// AAPL250516C150 or AAPL250516P152.5: strike at face value.
	brokerOptionRE = regexp.MustCompile(`^([A-Z][A-Z0-9.]{0,5})(\d{6})([CP])(\d+(?:\.\d+)?)$`)
	// CALL (AAPL) APPLE INC MAY 16 25 $150 (100 SHS)
	textOptionRE = regexp.MustCompile(`\b(CALL|PUT)\s*\(([A-Z][A-Z0-9.]*)\).*?\b(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)\s+(\d{1,2})\s+(\d{2})\s+\$(\d+(?:\.\d+)?)`)
	sharesRE     = regexp.MustCompile(`\((\d+)\s*SHS\)`)
)

var thousand = decimal.NewFromInt(1000)

// FormatOCC returns the OCC symbol of an option, without padding of the root.
func FormatOCC(underlying string, expiration date.Date, class OptionClass, strike decimal.Decimal) string {
	cp := "C"
	if class == Put {
		cp = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(underlying), expiration.Format("060102"), cp, strike.Mul(thousand).Round(0).IntPart())
}

// cleanSymbol trims spaces and the leading dash brokers put on option symbols.
func cleanSymbol(s string) string {
	return strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "-")
}

func parseYYMMDD(s string) (date.Date, error) {
	t, err := time.Parse("060102", s)
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid expiration %q: %w", s, err)
	}
	return date.New(t.Date()), nil
}

func contractOf(root, exp, cp, strike string, scale decimal.Decimal) (OptionContract, bool) {
	expiration, err := parseYYMMDD(exp)
	if err != nil {
		return OptionContract{}, false
	}
	k, err := decimal.NewFromString(strike)
	if err != nil {
		return OptionContract{}, false
	}
	class := Call
	if cp == "P" {
		class = Put
	}
	return OptionContract{Class: class, Strike: k.Div(scale), Expiration: expiration, Underlying: root, Multiplier: DefaultMultiplier}, true
}

// ParseOCC parses a standard OCC option symbol.
func ParseOCC(s string) (OptionContract, bool) {
	m := occRE.FindStringSubmatch(cleanSymbol(s))
	if m == nil {
		return OptionContract{}, false
	}
	return contractOf(m[1], m[2], m[3], m[4], thousand)
}

// ParseBrokerOption parses the short broker form where the strike is at face value.
func ParseBrokerOption(s string) (OptionContract, bool) {
	m := brokerOptionRE.FindStringSubmatch(cleanSymbol(s))
	if m == nil {
		return OptionContract{}, false
	}
	return contractOf(m[1], m[2], m[3], m[4], decimal.NewFromInt(1))
}

// ParseOptionText extracts an option from free text like "CALL (AAPL) APPLE INC MAY 16 25 $150".
func ParseOptionText(s string) (OptionContract, bool) {
	m := textOptionRE.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return OptionContract{}, false
	}
	t, err := time.Parse("Jan 2 06", fmt.Sprintf("%s%s %s %s", m[3][:1], strings.ToLower(m[3][1:]), m[4], m[5]))
	if err != nil {
		return OptionContract{}, false
	}
	k, err := decimal.NewFromString(m[6])
	if err != nil {
		return OptionContract{}, false
	}
	class := Call
	if m[1] == "PUT" {
		class = Put
	}
	return OptionContract{Class: class, Strike: k, Expiration: date.New(t.Date()), Underlying: m[2], Multiplier: DefaultMultiplier}, true
}

// ParseOption tries, in order, the symbol as OCC, the symbol in the broker short form,
// the description text and the action text. The multiplier is read from a
// "(N SHS)" mention when present.
func ParseOption(symbol, description, action string) (OptionContract, bool) {
	c, ok := ParseOCC(symbol)
	if !ok {
		c, ok = ParseBrokerOption(symbol)
	}
	if !ok {
		c, ok = ParseOptionText(description)
	}
	if !ok {
		c, ok = ParseOptionText(action)
	}
	if !ok {
		return OptionContract{}, false
	}
	for _, text := range []string{description, action} {
		if m := sharesRE.FindStringSubmatch(strings.ToUpper(text)); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				c.Multiplier = n
				break
			}
		}
	}
	return c, true
}
