package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kelsos/coinfolio/internal/backup"
	"github.com/kelsos/coinfolio/internal/config"
	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/portfolio"
	"github.com/kelsos/coinfolio/internal/services"
	"github.com/kelsos/coinfolio/internal/storage"
)

func newSummaryCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Refresh the portfolio once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.refresh(cmd.Context()); err != nil {
				return err
			}
			printPortfolio(a.dashboard)
			return nil
		},
	}
}

func printPortfolio(d *services.Dashboard) {
	snap := d.Portfolio()

	rows := make([][]string, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		holdings := l.Token.Holdings.String()
		if !l.Tracked {
			holdings += "*"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s (%s)", l.Quote.DisplayName, l.Quote.Symbol),
			"$" + l.Quote.Price.String(),
			l.Quote.Change24hPercent.StringFixed(2) + "%",
			holdings,
			portfolio.FormatUSD(l.Value),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TOKEN", "PRICE", "24H", "HOLDINGS", "VALUE").
		Rows(rows...)

	fmt.Println(t.Render())
	fmt.Printf("Total: %s\n", snap.Total.Formatted)
	for _, slice := range d.Breakdown() {
		fmt.Printf("  %-30s %6s%%\n", slice.Label, slice.Percent.StringFixed(1))
	}
}

func newWatchlistCmd(cfg *config.Config) *cobra.Command {
	watchlistCmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the tracked tokens",
	}

	// withApp opens the store, runs fn and prints the resulting watchlist.
	withApp := func(fn func(a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := fn(a, args); err != nil {
				return err
			}
			printWatchlist(a.dashboard)
			return nil
		}
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the tracked tokens",
		Args:  cobra.NoArgs,
		RunE:  withApp(func(*app, []string) error { return nil }),
	}

	addCmd := &cobra.Command{
		Use:   "add <token-id> [holdings]",
		Short: "Track a token, with 0 holdings unless given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withApp(func(a *app, args []string) error {
			holdings := "0"
			if len(args) == 2 {
				holdings = args[1]
			}
			token, _, err := a.dashboard.AddToken(args[0], holdings)
			if err != nil {
				return err
			}
			logger.Info("Tracking %s as #%d", token.ExternalID, token.LocalID)
			return nil
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set <local-id> <holdings>",
		Short: "Set the holdings of a tracked token",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(a *app, args []string) error {
			id, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			_, err = a.dashboard.SetHoldings(id, args[1])
			return err
		}),
	}

	removeCmd := &cobra.Command{
		Use:   "remove <local-id>",
		Short: "Stop tracking a token",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(a *app, args []string) error {
			id, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			_, err = a.dashboard.RemoveLocal(id)
			return err
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every tracked token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(a *app, _ []string) error {
			a.dashboard.ClearWatchlist()
			return nil
		}),
	}

	watchlistCmd.AddCommand(listCmd, addCmd, setCmd, removeCmd, clearCmd)
	return watchlistCmd
}

func parseLocalID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid token id %q", arg)
	}
	return id, nil
}

func printWatchlist(d *services.Dashboard) {
	tokens := d.Tokens()
	if len(tokens) == 0 {
		fmt.Println("The watchlist is empty")
		return
	}

	rows := make([][]string, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, []string{strconv.Itoa(t.LocalID), t.ExternalID, t.Holdings.String()})
	}
	fmt.Println(table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TOKEN", "HOLDINGS").
		Rows(rows...).
		Render())
}

func newBackupCmd(cfg *config.Config) *cobra.Command {
	var backupDir string

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the stored watchlist",
		Long:  `Create a zip backup of the coinfolio data directory. Only the file store can be backed up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Store != config.StoreFile {
				return fmt.Errorf("backup is only supported for the file store, not %q", cfg.Store)
			}
			if backupDir == "" {
				backupDir = cfg.BackupDir
			}

			dataDir, err := storage.GetAppDataDir(cfg.DataDir)
			if err != nil {
				return err
			}

			backupFile, err := backup.CreateBackup(dataDir, backupDir)
			if err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}
			logger.Info("Backup created successfully: %s", backupFile)
			return nil
		},
	}
	backupCmd.Flags().StringVarP(&backupDir, "backup-dir", "", "", "Directory where the backup will be stored (default: ~/backups)")
	return backupCmd
}
