package carteira

import "fmt"

// Percent is a percentage change, 1.5 meaning +1.5%.
type Percent float64

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// SignedString returns the percentage with an explicit sign, "-" for zero.
func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}

// OptionalPercent renders a channel that may be absent, "n/a" for nil.
func OptionalPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return Percent(*p).SignedString()
}
