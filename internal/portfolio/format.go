package portfolio

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var usd = money.GetCurrency(money.USD)

// FormatUSD renders value as US dollars with exactly two decimals, e.g. "$6,000.00".
// It works on the decimal directly, so totals of any size format correctly.
func FormatUSD(value decimal.Decimal) string {
	rounded := value.Round(int32(usd.Fraction))

	whole, frac, _ := strings.Cut(rounded.Abs().StringFixed(int32(usd.Fraction)), ".")
	amount := groupThousands(whole, usd.Thousand)
	if usd.Fraction > 0 {
		amount += usd.Decimal + frac
	}

	out := strings.Replace(usd.Template, "1", amount, 1)
	out = strings.Replace(out, "$", usd.Grapheme, 1)
	if rounded.IsNegative() {
		out = "-" + out
	}
	return out
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
