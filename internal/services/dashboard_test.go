package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/coinfolio/internal/models"
	"github.com/kelsos/coinfolio/internal/portfolio"
	"github.com/kelsos/coinfolio/internal/storage"
	"github.com/kelsos/coinfolio/internal/wallet"
	"github.com/kelsos/coinfolio/internal/watchlist"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type fakeQuotes struct {
	prices map[string]string
	err    error
	calls  int
}

func (f *fakeQuotes) FetchQuotes(_ context.Context, ids []string) ([]models.MarketQuote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.MarketQuote
	for _, id := range ids {
		if price, ok := f.prices[id]; ok {
			out = append(out, models.MarketQuote{
				ExternalID:  id,
				DisplayName: id,
				Symbol:      id,
				Price:       decimal.RequireFromString(price),
			})
		}
	}
	return out, nil
}

type fakeBalances struct {
	balance *models.NativeBalance
	err     error
}

func (f *fakeBalances) NativeBalance(context.Context, string) (*models.NativeBalance, error) {
	return f.balance, f.err
}

func newTestDashboard(t *testing.T, prices map[string]string) (*Dashboard, *fakeQuotes, *memKV) {
	t.Helper()
	quotes := &fakeQuotes{prices: prices}
	kv := newMemKV()
	return NewDashboard(kv, watchlist.NewStore(), quotes, nil), quotes, kv
}

func TestRefreshPublishesPortfolio(t *testing.T) {
	d, _, _ := newTestDashboard(t, map[string]string{"ethereum": "3000", "pepe": "0.5"})

	assert.False(t, d.Loaded())
	require.NoError(t, d.Refresh(context.Background()))

	assert.True(t, d.Loaded())
	assert.False(t, d.UpdatedAt().IsZero())
	snap := d.Portfolio()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "$4,500.00", snap.Total.Formatted)
}

func TestEditHoldingsUpdatesTrackedToken(t *testing.T) {
	d, _, _ := newTestDashboard(t, map[string]string{"ethereum": "3000"})
	require.NoError(t, d.Refresh(context.Background()))

	req, err := d.EditHoldings("ethereum", "2")
	require.NoError(t, err)
	require.True(t, d.ApplyRefresh(d.Fetch(context.Background(), req)))

	snap := d.Portfolio()
	require.Len(t, snap.Lines, 1)
	assert.True(t, snap.Lines[0].Value.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, "$6,000.00", snap.Total.Formatted)
}

func TestEditHoldingsAddsUntrackedToken(t *testing.T) {
	d, _, _ := newTestDashboard(t, map[string]string{"pepe": "0.5"})

	_, err := d.EditHoldings("Pepe", "1000")
	require.NoError(t, err)

	token, ok := findToken(d.Tokens(), "pepe")
	require.True(t, ok)
	assert.Equal(t, 7, token.LocalID)
	assert.True(t, token.Holdings.Equal(decimal.NewFromInt(1000)))
}

func TestEditHoldingsRejectsInvalidInput(t *testing.T) {
	d, quotes, kv := newTestDashboard(t, map[string]string{"ethereum": "3000"})
	require.NoError(t, d.Refresh(context.Background()))

	before := d.Tokens()
	beforeSnap := d.Portfolio()
	calls := quotes.calls

	for _, input := range []string{"-1", "abc", ""} {
		req, err := d.EditHoldings("ethereum", input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, portfolio.ErrInvalidHoldings))
		assert.Zero(t, req.Seq, "no refresh is requested")
	}

	assert.Equal(t, before, d.Tokens())
	assert.Equal(t, beforeSnap, d.Portfolio())
	assert.Equal(t, calls, quotes.calls)
	_, saved, _ := kv.Get(context.Background(), storage.RootKey)
	assert.False(t, saved, "nothing persisted")
}

func TestFailedRefreshKeepsPreviousPortfolio(t *testing.T) {
	d, quotes, _ := newTestDashboard(t, map[string]string{"ethereum": "3000", "bitcoin": "60000"})
	require.NoError(t, d.Refresh(context.Background()))

	before := d.Portfolio()
	updatedAt := d.UpdatedAt()
	tokens := d.Tokens()

	quotes.err = errors.New("connection reset")
	err := d.Refresh(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, d.Portfolio())
	assert.Equal(t, updatedAt, d.UpdatedAt())
	assert.Equal(t, tokens, d.Tokens())
}

func TestOutOfOrderResultsKeepNewest(t *testing.T) {
	d, quotes, _ := newTestDashboard(t, map[string]string{"ethereum": "3000"})
	ctx := context.Background()

	first := d.BeginRefresh()
	second := d.BeginRefresh()

	newer := d.Fetch(ctx, second)
	quotes.prices["ethereum"] = "1"
	older := d.Fetch(ctx, first)

	assert.True(t, d.ApplyRefresh(newer))
	assert.False(t, d.ApplyRefresh(older))
	assert.Equal(t, "$4,500.00", d.Portfolio().Total.Formatted)
}

func TestMutationInvalidatesInFlightRefresh(t *testing.T) {
	d, _, _ := newTestDashboard(t, map[string]string{"ethereum": "3000"})
	ctx := context.Background()

	stale := d.Fetch(ctx, d.BeginRefresh())

	req, err := d.EditHoldings("ethereum", "2")
	require.NoError(t, err)

	assert.False(t, d.ApplyRefresh(stale))
	assert.False(t, d.Loaded())
	assert.True(t, d.ApplyRefresh(d.Fetch(ctx, req)))
	assert.Equal(t, "$6,000.00", d.Portfolio().Total.Formatted)
}

func TestRemoveTokenResumsOptimistically(t *testing.T) {
	d, _, _ := newTestDashboard(t, map[string]string{"ethereum": "3000", "chainlink": "10"})
	ctx := context.Background()

	_, _, err := d.AddToken("chainlink", "4")
	require.NoError(t, err)
	require.NoError(t, d.Refresh(ctx))
	assert.Equal(t, "$4,540.00", d.Portfolio().Total.Formatted)

	req := d.RemoveToken("chainlink")

	snap := d.Portfolio()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "ethereum", snap.Lines[0].Quote.ExternalID)
	assert.Equal(t, "$4,500.00", snap.Total.Formatted)
	_, tracked := findToken(d.Tokens(), "chainlink")
	assert.False(t, tracked)

	assert.True(t, d.ApplyRefresh(d.Fetch(ctx, req)))
	assert.Equal(t, "$4,500.00", d.Portfolio().Total.Formatted)
}

func TestRemoveDefaultCoinReappearsAfterRefresh(t *testing.T) {
	d, _, _ := newTestDashboard(t, map[string]string{"ethereum": "3000"})
	ctx := context.Background()
	require.NoError(t, d.Refresh(ctx))

	req := d.RemoveToken("ethereum")
	assert.Empty(t, d.Portfolio().Lines)
	assert.Equal(t, "$0.00", d.Portfolio().Total.Formatted)

	require.True(t, d.ApplyRefresh(d.Fetch(ctx, req)))
	snap := d.Portfolio()
	require.Len(t, snap.Lines, 1)
	assert.False(t, snap.Lines[0].Tracked)
	assert.Equal(t, "$4,500.00", snap.Total.Formatted)
}

func TestMutationsArePersisted(t *testing.T) {
	d, _, kv := newTestDashboard(t, nil)
	ctx := context.Background()

	_, _, err := d.AddToken("chainlink", "3")
	require.NoError(t, err)
	_, err = d.RemoveLocal(1)
	require.NoError(t, err)

	restored, err := storage.LoadWatchlist(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, d.Tokens(), restored.Tokens())
	assert.Equal(t, 8, restored.NextID())
}

func TestLocalIDOperations(t *testing.T) {
	d, _, _ := newTestDashboard(t, nil)

	_, err := d.SetHoldings(2, "7")
	require.NoError(t, err)
	assert.True(t, d.Tokens()[1].Holdings.Equal(decimal.NewFromInt(7)))

	_, err = d.SetHoldings(99, "7")
	assert.True(t, errors.Is(err, ErrTokenNotFound))
	_, err = d.RemoveLocal(99)
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	_, _, err = d.AddToken("  ", "1")
	assert.Error(t, err)

	d.ClearWatchlist()
	assert.Empty(t, d.Tokens())
}

func TestAddTokensSkipsInvalidEntries(t *testing.T) {
	d, _, _ := newTestDashboard(t, nil)
	d.ClearWatchlist()

	d.AddTokens([]watchlist.Entry{
		{ExternalID: "pepe", Holdings: decimal.Zero},
		{ExternalID: "", Holdings: decimal.Zero},
		{ExternalID: "aave", Holdings: decimal.NewFromInt(-1)},
		{ExternalID: "bonk", Holdings: decimal.Zero},
	})

	var ids []string
	for _, tok := range d.Tokens() {
		ids = append(ids, tok.ExternalID)
	}
	assert.Equal(t, []string{"pepe", "bonk"}, ids)
}

func TestWalletFlow(t *testing.T) {
	balances := &fakeBalances{balance: &models.NativeBalance{Decimals: 18, Formatted: "1.5", Symbol: "ETH", Value: "1500000000000000000"}}
	d := NewDashboard(nil, watchlist.NewStore(), &fakeQuotes{}, balances)
	ctx := context.Background()
	addr := "0x52908400098527886E0F7030069857D2E4169EE7"

	queryAddr, ok := d.ApplyWalletEvent(wallet.Event{Kind: wallet.EventConnected, Address: addr})
	require.True(t, ok)
	assert.Equal(t, addr, queryAddr)
	assert.True(t, d.Wallet().Connected)
	assert.Nil(t, d.Wallet().Balance)

	res := d.QueryBalance(ctx, queryAddr)
	d.ApplyBalance(res)
	require.NotNil(t, d.Wallet().Balance)
	assert.Equal(t, "1.5", d.Wallet().Balance.Formatted)

	_, ok = d.ApplyWalletEvent(wallet.Event{Kind: wallet.EventDisconnected})
	assert.False(t, ok)
	assert.Equal(t, models.WalletConnection{}, d.Wallet())

	d.ApplyBalance(res)
	assert.Nil(t, d.Wallet().Balance, "late balance for a disconnected wallet is ignored")
}

func TestWalletBalanceFailureClearsBalance(t *testing.T) {
	balances := &fakeBalances{balance: &models.NativeBalance{Formatted: "2"}}
	d := NewDashboard(nil, watchlist.NewStore(), &fakeQuotes{}, balances)
	ctx := context.Background()
	addr := "0x52908400098527886E0F7030069857D2E4169EE7"

	d.ApplyWalletEvent(wallet.Event{Kind: wallet.EventConnected, Address: addr})
	d.ApplyBalance(d.QueryBalance(ctx, addr))
	require.NotNil(t, d.Wallet().Balance)

	balances.err = errors.New("rpc down")
	d.ApplyBalance(d.QueryBalance(ctx, addr))
	assert.Nil(t, d.Wallet().Balance)
	assert.True(t, d.Wallet().Connected)
}

func TestWalletWithoutBalanceReader(t *testing.T) {
	d := NewDashboard(nil, watchlist.NewStore(), &fakeQuotes{}, nil)

	_, ok := d.ApplyWalletEvent(wallet.Event{Kind: wallet.EventConnected, Address: "0xabc"})
	assert.False(t, ok)
	assert.True(t, d.Wallet().Connected)
}

func findToken(tokens []models.WatchedToken, id string) (models.WatchedToken, bool) {
	for _, t := range tokens {
		if t.ExternalID == id {
			return t, true
		}
	}
	return models.WatchedToken{}, false
}
