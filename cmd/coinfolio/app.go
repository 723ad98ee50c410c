package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kelsos/coinfolio/internal/client"
	"github.com/kelsos/coinfolio/internal/config"
	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/services"
	"github.com/kelsos/coinfolio/internal/storage"
	"github.com/kelsos/coinfolio/internal/utils"
	"github.com/kelsos/coinfolio/internal/wallet"
)

const (
	pingAttempts = 3
	pingDelay    = 2 * time.Second
)

// app holds the services shared by the commands.
type app struct {
	cfg       *config.Config
	kv        storage.KV
	closeKV   func()
	market    *client.MarketClient
	search    *services.Search
	wallets   *wallet.Manager
	dashboard *services.Dashboard
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	kv, closeKV, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	list, err := storage.LoadWatchlist(ctx, kv)
	if err != nil {
		logger.Error("Using default watchlist: %v", err)
	}

	market := client.NewMarketClient(cfg)

	return &app{
		cfg:       cfg,
		kv:        kv,
		closeKV:   closeKV,
		market:    market,
		search:    services.NewSearch(market, cfg.PageSize),
		wallets:   newWalletManager(cfg),
		dashboard: services.NewDashboard(kv, list, market, newBalanceQuerier(ctx, cfg)),
	}, nil
}

func (a *app) Close() {
	if a.closeKV != nil {
		a.closeKV()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.KV, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		rs, err := storage.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis store")
		return rs, func() {
			if err := rs.Close(); err != nil {
				logger.Warn("Failed to close redis store: %v", err)
			}
		}, nil
	default:
		fs, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file store in %s", fs.Dir())
		return fs, nil, nil
	}
}

func newWalletManager(cfg *config.Config) *wallet.Manager {
	var connectors []wallet.Connector
	if cfg.WalletAddress != "" {
		connectors = append(connectors, wallet.NewAddressConnector(cfg.WalletAddress))
	}
	if cfg.KeystoreDir != "" {
		connectors = append(connectors, wallet.NewKeystoreConnector(cfg.KeystoreDir))
	}
	return wallet.NewManager(connectors...)
}

func newBalanceQuerier(ctx context.Context, cfg *config.Config) wallet.BalanceQuerier {
	if cfg.EthRPCURL == "" {
		return nil
	}
	balances, err := wallet.DialEthBalance(ctx, cfg.EthRPCURL)
	if err != nil {
		logger.Warn("Wallet balances disabled: %v", err)
		return nil
	}
	return balances
}

// checkMarketAPI warns when the market API is unreachable; the dashboard
// still starts and keeps retrying on every refresh.
func (a *app) checkMarketAPI(ctx context.Context) {
	if !utils.WaitForAPIReady(ctx, a.market.API(), pingAttempts, pingDelay) {
		logger.Warn("Market API at %s is not reachable, starting anyway", a.cfg.APIBaseURL)
	}
}

func (a *app) connectDefaultWallet(ctx context.Context) {
	for _, choice := range a.wallets.Choices() {
		if choice != a.cfg.DefaultConnector {
			continue
		}
		if err := a.wallets.Connect(ctx, choice); err != nil {
			logger.Warn("Could not connect default wallet: %v", err)
		}
		return
	}
}

func (a *app) refresh(ctx context.Context) error {
	if err := a.dashboard.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh portfolio: %w", err)
	}
	return nil
}
