package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kelsos/coinfolio/internal/config"
	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/tui"
	"github.com/kelsos/coinfolio/internal/utils"
)

func main() {
	logger.Init()
	utils.LoadEnvironment()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()

	var (
		apiURL          string
		dataDir         string
		store           string
		redisURL        string
		refreshInterval time.Duration
		logDir          string
		walletAddress   string
		keystoreDir     string
		rpcURL          string
	)

	rootCmd := &cobra.Command{
		Use:   "coinfolio",
		Short: "A terminal dashboard for a crypto portfolio",
		Long: `coinfolio tracks a watchlist of crypto tokens, values it against live
market data and shows the portfolio total together with a connected wallet.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.LoadFromEnvironment()

			flags := cmd.Flags()
			if flags.Changed("api-url") {
				cfg.APIBaseURL = apiURL
			}
			if flags.Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("store") {
				cfg.Store = store
			}
			if flags.Changed("redis-url") {
				cfg.RedisURL = redisURL
			}
			if flags.Changed("refresh-interval") {
				cfg.RefreshInterval = refreshInterval
			}
			if flags.Changed("log-dir") {
				cfg.LogDir = logDir
			}
			if flags.Changed("wallet-address") {
				cfg.WalletAddress = walletAddress
			}
			if flags.Changed("keystore-dir") {
				cfg.KeystoreDir = keystoreDir
			}
			if flags.Changed("rpc-url") {
				cfg.EthRPCURL = rpcURL
			}

			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath, err := logger.InitFileOnly(cfg.LogDir)
			if err != nil {
				return err
			}
			defer logger.Close()

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			a.checkMarketAPI(cmd.Context())
			a.connectDefaultWallet(cmd.Context())

			monitor := tui.NewMonitor(tui.Options{
				Dashboard:       a.dashboard,
				Search:          a.search,
				Wallets:         a.wallets,
				RefreshInterval: cfg.RefreshInterval,
				LogPath:         logPath,
			})

			go func() {
				<-cmd.Context().Done()
				monitor.Stop()
			}()

			return monitor.Run(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&apiURL, "api-url", "", cfg.APIBaseURL, "Base URL of the market data API")
	pf.StringVarP(&dataDir, "data-dir", "", "", "Directory where the watchlist is stored (default: $XDG_DATA_HOME/coinfolio)")
	pf.StringVarP(&store, "store", "s", cfg.Store, "Storage backend: file or redis")
	pf.StringVarP(&redisURL, "redis-url", "", "", "Redis URL used by the redis store")

	rootCmd.Flags().DurationVarP(&refreshInterval, "refresh-interval", "i", cfg.RefreshInterval, "How often the portfolio is refreshed")
	rootCmd.Flags().StringVarP(&logDir, "log-dir", "", cfg.LogDir, "Directory for log files")
	rootCmd.Flags().StringVarP(&walletAddress, "wallet-address", "w", "", "Watch-only wallet address")
	rootCmd.Flags().StringVarP(&keystoreDir, "keystore-dir", "k", "", "Keystore directory of the wallet")
	rootCmd.Flags().StringVarP(&rpcURL, "rpc-url", "", cfg.EthRPCURL, "Ethereum JSON-RPC endpoint used for balances")

	rootCmd.AddCommand(newSummaryCmd(cfg))
	rootCmd.AddCommand(newWatchlistCmd(cfg))
	rootCmd.AddCommand(newBackupCmd(cfg))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Fatal("Failed to execute command: %v", err)
	}
}
