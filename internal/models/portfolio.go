package models

import (
	"github.com/shopspring/decimal"
)

// PortfolioLine joins a quote with the holdings it is valued at.
type PortfolioLine struct {
	Token WatchedToken
	// Tracked is false when the holdings come from the default fallback
	Tracked bool
	Quote   MarketQuote
	Value   decimal.Decimal
}

// PortfolioTotal is the sum of all line values.
type PortfolioTotal struct {
	Formatted string
	Value     decimal.Decimal
}
