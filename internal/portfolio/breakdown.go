package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Palette holds the slice colours, cycled when there are more lines.
var Palette = []string{"#A78BFA", "#60A5FA", "#34D399", "#22D3EE", "#FB923C", "#F472B6"}

// Slice is one segment of the portfolio breakdown chart.
type Slice struct {
	Label   string
	Percent decimal.Decimal
	Color   string
}

var hundred = decimal.NewFromInt(100)

// Breakdown returns each line's share of the total in percent, in line order.
// Lines without value are skipped; an empty or zero portfolio has no slices.
func Breakdown(s Snapshot) []Slice {
	if !s.Total.Value.IsPositive() {
		return nil
	}

	slices := make([]Slice, 0, len(s.Lines))
	for _, l := range s.Lines {
		if !l.Value.IsPositive() {
			continue
		}
		slices = append(slices, Slice{
			Label:   fmt.Sprintf("%s (%s)", l.Quote.DisplayName, l.Quote.Symbol),
			Percent: l.Value.Div(s.Total.Value).Mul(hundred),
			Color:   Palette[len(slices)%len(Palette)],
		})
	}
	return slices
}
