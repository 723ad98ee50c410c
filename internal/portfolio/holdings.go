package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidHoldings is returned for non-numeric or negative holdings input.
var ErrInvalidHoldings = errors.New("invalid holdings")

// ParseHoldings validates user-entered holdings.
func ParseHoldings(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty input", ErrInvalidHoldings)
	}

	holdings, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidHoldings, input)
	}
	if holdings.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is negative", ErrInvalidHoldings, trimmed)
	}
	return holdings, nil
}
