package tradejournal

import (
	"encoding/json"
	"fmt"
	"math"
)

// Percent is a percentage, 12.5 stands for 12.5%.
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	return math.Abs(float64(p-q)) < 0.0001
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}

// Ratio is a dimensionless performance ratio. It may be +Inf (a profit factor
// with no losses) which JSON encodes as the string "Infinity".
type Ratio float64

// Inf is the positive infinite ratio.
var Inf = Ratio(math.Inf(1))

func (r Ratio) IsInf() bool { return math.IsInf(float64(r), 1) }

func (r Ratio) String() string {
	if r.IsInf() {
		return "∞"
	}
	return fmt.Sprintf("%.2f", float64(r))
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() {
		return json.Marshal("Infinity")
	}
	return json.Marshal(float64(r))
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "Infinity" {
			return fmt.Errorf("invalid ratio %q", s)
		}
		*r = Inf
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// ratio divides a by b with the journal's policy: a positive numerator over a zero
// denominator is +Inf, everything else over zero is 0.
func ratio(a, b float64) Ratio {
	if b == 0 {
		if a > 0 {
			return Inf
		}
		return 0
	}
	return Ratio(a / b)
}
