package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelsos/coinfolio/internal/models"
)

// CoinSource lists coins that can be added to the watchlist.
type CoinSource interface {
	FetchTrending(ctx context.Context) ([]models.TrendingCoin, error)
	FetchPaged(ctx context.Context, page, perPage int) ([]models.MarketQuote, error)
}

// Search loads candidate coins for the add-token flow. It holds no state
// and may run off the event loop.
type Search struct {
	source  CoinSource
	perPage int
}

// NewSearch creates a search over source loading perPage coins per page.
func NewSearch(source CoinSource, perPage int) *Search {
	return &Search{source: source, perPage: perPage}
}

// Trending returns the trending coins.
func (s *Search) Trending(ctx context.Context) ([]models.TrendingCoin, error) {
	coins, err := s.source.FetchTrending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending coins: %w", err)
	}
	return coins, nil
}

// Page returns one page of the market listing as search results.
func (s *Search) Page(ctx context.Context, page int) ([]models.TrendingCoin, error) {
	quotes, err := s.source.FetchPaged(ctx, page, s.perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coins page %d: %w", page, err)
	}

	coins := make([]models.TrendingCoin, 0, len(quotes))
	for _, q := range quotes {
		coins = append(coins, models.TrendingCoin{
			ExternalID: q.ExternalID,
			Name:       q.DisplayName,
			Symbol:     q.Symbol,
			IconURL:    q.IconURL,
		})
	}
	return coins, nil
}

// Candidates accumulates search results across trending and listing pages.
// It is owned by the event loop.
type Candidates struct {
	coins    []models.TrendingCoin
	seen     map[string]bool
	lastPage int
}

// NewCandidates returns an empty result set.
func NewCandidates() *Candidates {
	return &Candidates{seen: make(map[string]bool)}
}

// Merge appends coins not seen yet and returns how many were new.
func (c *Candidates) Merge(coins []models.TrendingCoin) int {
	added := 0
	for _, coin := range coins {
		key := models.NormalizeID(coin.ExternalID)
		if key == "" || c.seen[key] {
			continue
		}
		c.seen[key] = true
		c.coins = append(c.coins, coin)
		added++
	}
	return added
}

// MergePage merges a listing page and records it as loaded.
func (c *Candidates) MergePage(page int, coins []models.TrendingCoin) int {
	if page > c.lastPage {
		c.lastPage = page
	}
	return c.Merge(coins)
}

// NextPage returns the listing page to load next.
func (c *Candidates) NextPage() int {
	return c.lastPage + 1
}

// Len returns the number of candidates.
func (c *Candidates) Len() int {
	return len(c.coins)
}

// Filter returns candidates whose id, name or symbol contains query,
// ignoring case. An empty query matches everything.
func (c *Candidates) Filter(query string) []models.TrendingCoin {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.TrendingCoin, 0, len(c.coins))
	for _, coin := range c.coins {
		if query == "" ||
			strings.Contains(strings.ToLower(coin.ExternalID), query) ||
			strings.Contains(strings.ToLower(coin.Name), query) ||
			strings.Contains(strings.ToLower(coin.Symbol), query) {
			out = append(out, coin)
		}
	}
	return out
}
