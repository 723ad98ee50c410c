package models

import (
	"github.com/shopspring/decimal"
)

// MaxSparklinePoints bounds the sparkline handed to the renderer.
const MaxSparklinePoints = 50

// MarketQuote is a market-data snapshot for one token.
type MarketQuote struct {
	ExternalID       string
	DisplayName      string
	Symbol           string
	IconURL          string
	Price            decimal.Decimal
	Change24hPercent decimal.Decimal
	// Sparkline holds recent prices, most recent last
	Sparkline []float64
}

// TrendingCoin is a search result without price data.
type TrendingCoin struct {
	ExternalID string
	Name       string
	Symbol     string
	IconURL    string
}

// CoinMarket is one entry of the /coins/markets response.
type CoinMarket struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	SparklineIn7d            *struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d,omitempty"`
}

// TrendingItem is one entry of the /search/trending response.
type TrendingItem struct {
	Item struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Small  string `json:"small"`
	} `json:"item"`
}

// TrendingResponse is the /search/trending response body.
type TrendingResponse struct {
	Coins []TrendingItem `json:"coins"`
}
