package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/models"
	"github.com/kelsos/coinfolio/internal/portfolio"
	"github.com/kelsos/coinfolio/internal/storage"
	"github.com/kelsos/coinfolio/internal/wallet"
	"github.com/kelsos/coinfolio/internal/watchlist"
)

const persistTimeout = 5 * time.Second

// ErrTokenNotFound is returned when a local id is not in the watchlist.
var ErrTokenNotFound = errors.New("token not found in watchlist")

// RefreshRequest describes one aggregator cycle: its sequence number and the
// watchlist it was started with.
type RefreshRequest struct {
	Seq    uint64
	Tokens []models.WatchedToken
}

// RefreshResult is the outcome of Fetch.
type RefreshResult struct {
	Seq      uint64
	Snapshot portfolio.Snapshot
	Err      error
}

// BalanceResult is the outcome of QueryBalance.
type BalanceResult struct {
	Address string
	Balance *models.NativeBalance
	Err     error
}

// Dashboard owns the application state: watchlist, wallet mirror and the
// published portfolio. Every method except Fetch and QueryBalance mutates or
// reads that state and must be called from the single event loop. Fetch and
// QueryBalance only do I/O; their results are applied back on the loop.
type Dashboard struct {
	kv         storage.KV
	watchlist  *watchlist.Store
	wallet     *wallet.Store
	board      *portfolio.Board
	aggregator *portfolio.Aggregator
	balances   wallet.BalanceQuerier
	now        func() time.Time
}

// NewDashboard wires the state holders. balances may be nil when no RPC is
// configured; the wallet then shows no balance.
func NewDashboard(kv storage.KV, list *watchlist.Store, quotes portfolio.QuoteFetcher, balances wallet.BalanceQuerier) *Dashboard {
	return &Dashboard{
		kv:         kv,
		watchlist:  list,
		wallet:     wallet.NewStore(),
		board:      portfolio.NewBoard(),
		aggregator: portfolio.NewAggregator(quotes),
		balances:   balances,
		now:        time.Now,
	}
}

// BeginRefresh starts a cycle against the current watchlist.
func (d *Dashboard) BeginRefresh() RefreshRequest {
	return RefreshRequest{Seq: d.board.Begin(), Tokens: d.watchlist.Tokens()}
}

// Fetch runs the aggregator for req. It touches no dashboard state and may
// run off the event loop.
func (d *Dashboard) Fetch(ctx context.Context, req RefreshRequest) RefreshResult {
	snapshot, err := d.aggregator.Run(ctx, req.Tokens)
	return RefreshResult{Seq: req.Seq, Snapshot: snapshot, Err: err}
}

// ApplyRefresh publishes a successful result. Failed or stale results leave
// the published portfolio untouched. It reports whether the board changed.
func (d *Dashboard) ApplyRefresh(res RefreshResult) bool {
	if res.Err != nil {
		logger.Error("Error fetching crypto data, keeping previous portfolio: %v", res.Err)
		return false
	}
	if !d.board.Publish(res.Seq, res.Snapshot, d.now()) {
		logger.Debug("Discarded stale refresh #%d", res.Seq)
		return false
	}
	logger.Info("Portfolio refreshed (#%d): %d tokens, total %s", res.Seq, len(res.Snapshot.Lines), res.Snapshot.Total.Formatted)
	return true
}

// Refresh runs a full cycle synchronously.
func (d *Dashboard) Refresh(ctx context.Context) error {
	res := d.Fetch(ctx, d.BeginRefresh())
	d.ApplyRefresh(res)
	return res.Err
}

// EditHoldings sets the holdings of the token behind a portfolio line. A
// token that is not tracked yet is added. Invalid input changes nothing and
// requests no refresh.
func (d *Dashboard) EditHoldings(externalID, input string) (RefreshRequest, error) {
	holdings, err := portfolio.ParseHoldings(input)
	if err != nil {
		return RefreshRequest{}, err
	}

	if token, ok := d.watchlist.FindByExternalID(externalID); ok {
		d.watchlist.Update(token.LocalID, holdings)
		logger.Info("Updated holdings of %s to %s", token.ExternalID, holdings)
	} else {
		token := d.watchlist.Add(externalID, holdings)
		logger.Info("Added %s to the watchlist with holdings %s", token.ExternalID, holdings)
	}

	return d.afterMutation(), nil
}

// SetHoldings sets the holdings of a watchlist entry by local id.
func (d *Dashboard) SetHoldings(localID int, input string) (RefreshRequest, error) {
	holdings, err := portfolio.ParseHoldings(input)
	if err != nil {
		return RefreshRequest{}, err
	}
	if !d.watchlist.Update(localID, holdings) {
		return RefreshRequest{}, fmt.Errorf("%w: id %d", ErrTokenNotFound, localID)
	}
	return d.afterMutation(), nil
}

// AddToken adds one token with the given holdings input.
func (d *Dashboard) AddToken(externalID, input string) (models.WatchedToken, RefreshRequest, error) {
	if models.NormalizeID(externalID) == "" {
		return models.WatchedToken{}, RefreshRequest{}, fmt.Errorf("token id cannot be empty")
	}
	holdings, err := portfolio.ParseHoldings(input)
	if err != nil {
		return models.WatchedToken{}, RefreshRequest{}, err
	}
	token := d.watchlist.Add(externalID, holdings)
	return token, d.afterMutation(), nil
}

// AddTokens adds the tokens picked in the search flow.
func (d *Dashboard) AddTokens(entries []watchlist.Entry) RefreshRequest {
	valid := make([]watchlist.Entry, 0, len(entries))
	for _, e := range entries {
		if models.NormalizeID(e.ExternalID) != "" && !e.Holdings.IsNegative() {
			valid = append(valid, e)
		}
	}
	added := d.watchlist.AddBatch(valid)
	logger.Info("Added %d tokens to the watchlist", len(added))
	return d.afterMutation()
}

// RemoveToken drops the line of externalID. The token leaves the watchlist if
// tracked, the total is re-summed locally right away and a full refresh is
// requested.
func (d *Dashboard) RemoveToken(externalID string) RefreshRequest {
	if token, ok := d.watchlist.FindByExternalID(externalID); ok {
		d.watchlist.Remove(token.LocalID)
		logger.Info("Removed %s from the watchlist", token.ExternalID)
	}
	d.board.RemoveLine(externalID)
	return d.afterMutation()
}

// RemoveLocal drops a watchlist entry by local id.
func (d *Dashboard) RemoveLocal(localID int) (RefreshRequest, error) {
	for _, t := range d.watchlist.Tokens() {
		if t.LocalID == localID {
			return d.RemoveToken(t.ExternalID), nil
		}
	}
	return RefreshRequest{}, fmt.Errorf("%w: id %d", ErrTokenNotFound, localID)
}

// ClearWatchlist removes every tracked token.
func (d *Dashboard) ClearWatchlist() RefreshRequest {
	d.watchlist.Clear()
	logger.Info("Cleared the watchlist")
	return d.afterMutation()
}

func (d *Dashboard) afterMutation() RefreshRequest {
	d.persist()
	d.board.Invalidate()
	return d.BeginRefresh()
}

func (d *Dashboard) persist() {
	if d.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := storage.SaveWatchlist(ctx, d.kv, d.watchlist); err != nil {
		logger.Error("Failed to persist watchlist: %v", err)
	}
}

// ApplyWalletEvent mirrors a connector event. It returns the address whose
// balance should be queried, if any.
func (d *Dashboard) ApplyWalletEvent(ev wallet.Event) (string, bool) {
	d.wallet.Apply(ev)
	if ev.Kind != wallet.EventConnected || d.balances == nil {
		return "", false
	}
	return ev.Address, true
}

// QueryBalance reads the native balance of address. It touches no dashboard
// state and may run off the event loop.
func (d *Dashboard) QueryBalance(ctx context.Context, address string) BalanceResult {
	if d.balances == nil {
		return BalanceResult{Address: address}
	}
	balance, err := d.balances.NativeBalance(ctx, address)
	return BalanceResult{Address: address, Balance: balance, Err: err}
}

// ApplyBalance writes a balance result; a failed query clears the balance.
func (d *Dashboard) ApplyBalance(res BalanceResult) {
	if res.Err != nil {
		logger.Error("Failed to fetch balance of %s: %v", res.Address, res.Err)
		d.wallet.SetBalance(res.Address, nil)
		return
	}
	d.wallet.SetBalance(res.Address, res.Balance)
}

// Tokens returns the watchlist in order.
func (d *Dashboard) Tokens() []models.WatchedToken {
	return d.watchlist.Tokens()
}

// Portfolio returns the published portfolio.
func (d *Dashboard) Portfolio() portfolio.Snapshot {
	return d.board.Snapshot()
}

// Breakdown returns the published portfolio split per token.
func (d *Dashboard) Breakdown() []portfolio.Slice {
	return portfolio.Breakdown(d.board.Snapshot())
}

// Loaded reports whether a refresh has been published yet.
func (d *Dashboard) Loaded() bool {
	return d.board.Published()
}

// UpdatedAt returns when the portfolio was last refreshed.
func (d *Dashboard) UpdatedAt() time.Time {
	return d.board.UpdatedAt()
}

// Wallet returns the mirrored wallet connection.
func (d *Dashboard) Wallet() models.WalletConnection {
	return d.wallet.State()
}
