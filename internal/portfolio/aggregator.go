package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/models"
	"github.com/kelsos/coinfolio/internal/watchlist"
)

// QuoteFetcher is the market-data capability the aggregator depends on.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, ids []string) ([]models.MarketQuote, error)
}

// Snapshot is one consistent view of the portfolio: the lines and the total
// computed from exactly those lines.
type Snapshot struct {
	Lines []models.PortfolioLine
	Total models.PortfolioTotal
}

var defaultSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(watchlist.DefaultCoins))
	for _, id := range watchlist.DefaultCoins {
		set[id] = struct{}{}
	}
	return set
}()

// IsDefaultCoin reports whether externalID is one of the always-shown coins.
func IsDefaultCoin(externalID string) bool {
	_, ok := defaultSet[models.NormalizeID(externalID)]
	return ok
}

// IDSet returns the normalized, deduplicated union of the watchlist ids and
// the default coins, watchlist ids first.
func IDSet(tokens []models.WatchedToken) []string {
	seen := make(map[string]struct{}, len(tokens)+len(watchlist.DefaultCoins))
	ids := make([]string, 0, len(tokens)+len(watchlist.DefaultCoins))

	add := func(id string) {
		key := models.NormalizeID(id)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		ids = append(ids, key)
	}

	for _, t := range tokens {
		add(t.ExternalID)
	}
	for _, id := range watchlist.DefaultCoins {
		add(id)
	}
	return ids
}

// Compute joins quotes with the watchlist and totals the result. Default coins
// sort after watchlist-only coins; the fetch order is kept otherwise. Quotes
// with no matching token are valued at the default holdings.
func Compute(tokens []models.WatchedToken, quotes []models.MarketQuote) Snapshot {
	byID := make(map[string]models.WatchedToken, len(tokens))
	for _, t := range tokens {
		key := models.NormalizeID(t.ExternalID)
		if _, dup := byID[key]; !dup {
			byID[key] = t
		}
	}

	sorted := make([]models.MarketQuote, len(quotes))
	copy(sorted, quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return !IsDefaultCoin(sorted[i].ExternalID) && IsDefaultCoin(sorted[j].ExternalID)
	})

	lines := make([]models.PortfolioLine, 0, len(sorted))
	for _, quote := range sorted {
		token, tracked := byID[models.NormalizeID(quote.ExternalID)]
		if !tracked {
			token = models.WatchedToken{
				ExternalID: models.NormalizeID(quote.ExternalID),
				Holdings:   watchlist.DefaultHoldings,
			}
		}
		lines = append(lines, models.PortfolioLine{
			Token:   token,
			Tracked: tracked,
			Quote:   quote,
			Value:   quote.Price.Mul(token.Holdings),
		})
	}

	return Snapshot{Lines: lines, Total: Total(lines)}
}

// Total sums the line values. It is always computed from the full line set.
func Total(lines []models.PortfolioLine) models.PortfolioTotal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Value)
	}
	return models.PortfolioTotal{Formatted: FormatUSD(sum), Value: sum}
}

// Aggregator runs the reconciliation cycle against a quote source.
type Aggregator struct {
	fetcher QuoteFetcher
}

// NewAggregator creates an aggregator reading quotes from fetcher.
func NewAggregator(fetcher QuoteFetcher) *Aggregator {
	return &Aggregator{fetcher: fetcher}
}

// Run fetches quotes for the watchlist plus the default coins and computes a
// snapshot. A fetch failure aborts the cycle without a partial result.
func (a *Aggregator) Run(ctx context.Context, tokens []models.WatchedToken) (Snapshot, error) {
	ids := IDSet(tokens)
	quotes, err := a.fetcher.FetchQuotes(ctx, ids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	snapshot := Compute(tokens, quotes)
	logger.Debug("Computed portfolio of %d lines, total %s", len(snapshot.Lines), snapshot.Total.Formatted)
	return snapshot, nil
}
