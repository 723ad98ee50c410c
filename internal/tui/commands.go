package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kelsos/coinfolio/internal/models"
	"github.com/kelsos/coinfolio/internal/services"
	"github.com/kelsos/coinfolio/internal/wallet"
)

type RefreshDone struct {
	Result services.RefreshResult
}

type RefreshTick struct {
	At time.Time
}

type WalletEvent struct {
	Event wallet.Event
}

type WalletFailed struct {
	Err error
}

type BalanceLoaded struct {
	Result services.BalanceResult
}

// CoinsLoaded carries search results; Page is zero for the trending list.
type CoinsLoaded struct {
	Page  int
	Coins []models.TrendingCoin
	Err   error
}

func fetchCmd(ctx context.Context, d *services.Dashboard, req services.RefreshRequest) tea.Cmd {
	return func() tea.Msg {
		return RefreshDone{Result: d.Fetch(ctx, req)}
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return RefreshTick{At: t}
	})
}

func listenWalletCmd(ctx context.Context, events <-chan wallet.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-events:
			return WalletEvent{Event: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

func connectCmd(ctx context.Context, m *wallet.Manager, choice string) tea.Cmd {
	return func() tea.Msg {
		if err := m.Connect(ctx, choice); err != nil {
			return WalletFailed{Err: err}
		}
		return nil
	}
}

func disconnectCmd(ctx context.Context, m *wallet.Manager) tea.Cmd {
	return func() tea.Msg {
		if err := m.Disconnect(ctx); err != nil {
			return WalletFailed{Err: err}
		}
		return nil
	}
}

func balanceCmd(ctx context.Context, d *services.Dashboard, address string) tea.Cmd {
	return func() tea.Msg {
		return BalanceLoaded{Result: d.QueryBalance(ctx, address)}
	}
}

func trendingCmd(ctx context.Context, s *services.Search) tea.Cmd {
	return func() tea.Msg {
		coins, err := s.Trending(ctx)
		return CoinsLoaded{Coins: coins, Err: err}
	}
}

func pageCmd(ctx context.Context, s *services.Search, page int) tea.Cmd {
	return func() tea.Msg {
		coins, err := s.Page(ctx, page)
		return CoinsLoaded{Page: page, Coins: coins, Err: err}
	}
}
