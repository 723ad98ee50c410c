package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/coinfolio/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *MarketClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.APIBaseURL = server.URL + "/api/v3"
	cfg.RequestsPerMinute = 6000
	cfg.HTTPTimeout = 5 * time.Second
	cfg.TrendingCacheTTL = time.Minute
	return NewMarketClient(cfg)
}

func sparkline(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%d", i)
	}
	return strings.Join(parts, ",")
}

func TestFetchQuotesBuildsRequestAndNormalizes(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/coins/markets", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"vs_currency":             q.Get("vs_currency"),
			"ids":                     q.Get("ids"),
			"order":                   q.Get("order"),
			"sparkline":               q.Get("sparkline"),
			"price_change_percentage": q.Get("price_change_percentage"),
		}
		fmt.Fprintf(w, `[{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png",
			"current_price":3000,"price_change_percentage_24h":-1.25,
			"sparkline_in_7d":{"price":[%s]}},
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"","current_price":60000.5,
			"price_change_percentage_24h":null}]`, sparkline(168))
	})

	quotes, err := client.FetchQuotes(context.Background(), []string{"Ethereum", "bitcoin", "ethereum", ""})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"vs_currency":             "usd",
		"ids":                     "ethereum,bitcoin",
		"order":                   "market_cap_desc",
		"sparkline":               "true",
		"price_change_percentage": "24h",
	}, gotQuery)

	require.Len(t, quotes, 2)
	eth := quotes[0]
	assert.Equal(t, "ethereum", eth.ExternalID)
	assert.Equal(t, "ETH", eth.Symbol)
	assert.True(t, eth.Price.Equal(decimal.NewFromInt(3000)))
	assert.True(t, eth.Change24hPercent.Equal(decimal.RequireFromString("-1.25")))
	require.Len(t, eth.Sparkline, 50)
	assert.Equal(t, float64(118), eth.Sparkline[0])
	assert.Equal(t, float64(167), eth.Sparkline[49], "most recent sample is last")

	btc := quotes[1]
	assert.True(t, btc.Change24hPercent.IsZero())
	assert.Empty(t, btc.Sparkline)
}

func TestFetchQuotesEmptySetSkipsRequest(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	quotes, err := client.FetchQuotes(context.Background(), []string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetchQuotesNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchQuotes(context.Background(), []string{"bitcoin"})
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
	assert.Equal(t, "Too Many Requests", fetchErr.Status)
	assert.Contains(t, err.Error(), "Too Many Requests")
}

func TestFetchQuotesMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"not an array"}`)
	})

	_, err := client.FetchQuotes(context.Background(), []string{"bitcoin"})
	require.Error(t, err)

	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestFetchQuotesRejectsEntryWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"btc","current_price":1}]`)
	})

	_, err := client.FetchQuotes(context.Background(), []string{"bitcoin"})
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestFetchTrendingIsCached(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "/api/v3/search/trending", r.URL.Path)
		fmt.Fprint(w, `{"coins":[
			{"item":{"id":"pepe","name":"Pepe","symbol":"pepe","small":"https://img/pepe.png"}},
			{"item":{"id":"","name":"Broken"}}]}`)
	})

	coins, err := client.FetchTrending(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "pepe", coins[0].ExternalID)
	assert.Equal(t, "PEPE", coins[0].Symbol)
	assert.Equal(t, "https://img/pepe.png", coins[0].IconURL)

	_, err = client.FetchTrending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchPaged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "20", q.Get("per_page"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("sparkline"))
		assert.Empty(t, q.Get("ids"))
		fmt.Fprint(w, `[{"id":"aave","symbol":"aave","name":"Aave","image":"x","current_price":95.1}]`)
	})

	quotes, err := client.FetchPaged(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAVE", quotes[0].Symbol)
	assert.Nil(t, quotes[0].Sparkline)
}

func TestFetchPagedValidatesArguments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.FetchPaged(context.Background(), 0, 20)
	assert.Error(t, err)
	_, err = client.FetchPaged(context.Background(), 1, 0)
	assert.Error(t, err)
}

func TestAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		fmt.Fprint(w, `{"gecko_says":"(V3) To the Moon!"}`)
	}))
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.APIBaseURL = server.URL
	cfg.APIKey = "secret"

	require.NoError(t, NewAPIClient(cfg).Ping(context.Background()))
}

func TestTransportFailureIsFetchError(t *testing.T) {
	cfg := config.NewConfig()
	cfg.APIBaseURL = "http://127.0.0.1:1"
	cfg.HTTPTimeout = time.Second

	_, err := NewMarketClient(cfg).FetchQuotes(context.Background(), []string{"bitcoin"})

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestTruncateSparkline(t *testing.T) {
	assert.Equal(t, []float64{3, 4}, TruncateSparkline([]float64{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{1}, TruncateSparkline([]float64{1}, 50))
	assert.Empty(t, TruncateSparkline(nil, 50))
}

func TestBuildURLWithParams(t *testing.T) {
	assert.Equal(t, "/ping", BuildURLWithParams("/ping", nil))
	assert.Equal(t, "/coins/markets?page=1&vs_currency=usd",
		BuildURLWithParams("/coins/markets?vs_currency=usd", map[string]string{"page": "1"}))
}
