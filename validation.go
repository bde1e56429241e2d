package carteira

import (
	"fmt"
	"regexp"
	"strings"
)

// tickerPattern accepts B3 tickers (PETR4, HGLG11, BOVA11), provider symbols
// (PETR4.SA, BVSP.INDX) and index symbols (^BVSP).
var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,19}$`)

// ParseTicker normalizes and validates a ticker.
func ParseTicker(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" {
		return "", fmt.Errorf("%w: ticker is required", ErrInvalidInput)
	}
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: malformed ticker %q", ErrInvalidInput, s)
	}
	return t, nil
}
