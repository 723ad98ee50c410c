package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/kelsos/coinfolio/internal/config"
	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/models"
)

const trendingCacheKey = "trending"

// MarketClient exposes the market-data operations the dashboard needs.
// Quotes are always fetched fresh; trending and paged listings, used only by
// the add-token search, are cached.
type MarketClient struct {
	api    *APIClient
	cache  *cache.Cache
	flight singleflight.Group
}

// NewMarketClient creates a market client on top of a fresh API client
func NewMarketClient(cfg *config.Config) *MarketClient {
	return NewMarketClientWithAPI(NewAPIClient(cfg), cfg.TrendingCacheTTL)
}

// NewMarketClientWithAPI creates a market client using an existing API client
func NewMarketClientWithAPI(api *APIClient, cacheTTL time.Duration) *MarketClient {
	return &MarketClient{
		api:   api,
		cache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// API returns the underlying API client
func (m *MarketClient) API() *APIClient {
	return m.api
}

// FetchQuotes fetches quotes with 7d sparklines for the given ids.
// An empty id set returns no quotes without issuing a request.
func (m *MarketClient) FetchQuotes(ctx context.Context, ids []string) ([]models.MarketQuote, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return []models.MarketQuote{}, nil
	}

	endpoint := BuildURLWithParams("/coins/markets", map[string]string{
		"vs_currency":             "usd",
		"ids":                     strings.Join(unique, ","),
		"order":                   "market_cap_desc",
		"sparkline":               "true",
		"price_change_percentage": "24h",
	})

	var markets []models.CoinMarket
	if err := m.api.Get(ctx, endpoint, &markets); err != nil {
		return nil, err
	}

	quotes := make([]models.MarketQuote, 0, len(markets))
	for _, market := range markets {
		quote, err := toQuote(market)
		if err != nil {
			return nil, &FetchError{URL: m.api.BuildURL(endpoint), Err: err}
		}
		quotes = append(quotes, quote)
	}

	logger.Debug("Fetched %d quotes for %d ids", len(quotes), len(unique))
	return quotes, nil
}

// FetchTrending fetches the trending coins list.
func (m *MarketClient) FetchTrending(ctx context.Context) ([]models.TrendingCoin, error) {
	if cached, ok := m.cache.Get(trendingCacheKey); ok {
		return cached.([]models.TrendingCoin), nil
	}

	v, err, _ := m.flight.Do(trendingCacheKey, func() (interface{}, error) {
		var response models.TrendingResponse
		if err := m.api.Get(ctx, "/search/trending", &response); err != nil {
			return nil, err
		}

		coins := make([]models.TrendingCoin, 0, len(response.Coins))
		for _, c := range response.Coins {
			if c.Item.ID == "" {
				continue
			}
			coins = append(coins, models.TrendingCoin{
				ExternalID: c.Item.ID,
				Name:       c.Item.Name,
				Symbol:     strings.ToUpper(c.Item.Symbol),
				IconURL:    c.Item.Small,
			})
		}

		m.cache.SetDefault(trendingCacheKey, coins)
		return coins, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]models.TrendingCoin), nil
}

// FetchPaged fetches one page of the market listing ordered by market cap.
// Returned quotes carry a price but no sparkline.
func (m *MarketClient) FetchPaged(ctx context.Context, page, perPage int) ([]models.MarketQuote, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be at least 1, got: %d", page)
	}
	if perPage < 1 {
		return nil, fmt.Errorf("per page must be at least 1, got: %d", perPage)
	}

	key := fmt.Sprintf("page:%d:%d", page, perPage)
	if cached, ok := m.cache.Get(key); ok {
		return cached.([]models.MarketQuote), nil
	}

	v, err, _ := m.flight.Do(key, func() (interface{}, error) {
		endpoint := BuildURLWithParams("/coins/markets", map[string]string{
			"vs_currency": "usd",
			"order":       "market_cap_desc",
			"per_page":    strconv.Itoa(perPage),
			"page":        strconv.Itoa(page),
			"sparkline":   "false",
		})

		var markets []models.CoinMarket
		if err := m.api.Get(ctx, endpoint, &markets); err != nil {
			return nil, err
		}

		quotes := make([]models.MarketQuote, 0, len(markets))
		for _, market := range markets {
			quote, err := toQuote(market)
			if err != nil {
				return nil, &FetchError{URL: m.api.BuildURL(endpoint), Err: err}
			}
			quote.Sparkline = nil
			quotes = append(quotes, quote)
		}

		m.cache.SetDefault(key, quotes)
		return quotes, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]models.MarketQuote), nil
}

func toQuote(market models.CoinMarket) (models.MarketQuote, error) {
	if market.ID == "" {
		return models.MarketQuote{}, fmt.Errorf("%w: market entry without id", ErrMalformedResponse)
	}
	if market.CurrentPrice.IsNegative() {
		return models.MarketQuote{}, fmt.Errorf("%w: negative price for %s", ErrMalformedResponse, market.ID)
	}

	var sparkline []float64
	if market.SparklineIn7d != nil {
		sparkline = TruncateSparkline(market.SparklineIn7d.Price, models.MaxSparklinePoints)
	}

	return models.MarketQuote{
		ExternalID:       market.ID,
		DisplayName:      market.Name,
		Symbol:           strings.ToUpper(market.Symbol),
		IconURL:          market.Image,
		Price:            market.CurrentPrice,
		Change24hPercent: market.PriceChangePercentage24h,
		Sparkline:        sparkline,
	}, nil
}

// TruncateSparkline keeps the most recent max samples.
func TruncateSparkline(samples []float64, max int) []float64 {
	if len(samples) > max {
		samples = samples[len(samples)-max:]
	}
	out := make([]float64, len(samples))
	copy(out, samples)
	return out
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		key := models.NormalizeID(id)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	return unique
}
