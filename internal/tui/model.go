package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/models"
	"github.com/kelsos/coinfolio/internal/services"
	"github.com/kelsos/coinfolio/internal/wallet"
	"github.com/kelsos/coinfolio/internal/watchlist"
)

const rowsPerPage = 8

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeAdd
	modeConnect
)

// Options wires the model to the application services. Search and Wallets
// may be nil, which disables the add-token and wallet flows.
type Options struct {
	Dashboard       *services.Dashboard
	Search          *services.Search
	Wallets         *wallet.Manager
	RefreshInterval time.Duration
	LogPath         string
}

// Model is the dashboard screen. Update is the only place application state
// changes; network work runs in commands and comes back as messages.
type Model struct {
	ctx       context.Context
	dashboard *services.Dashboard
	search    *services.Search
	wallets   *wallet.Manager
	interval  time.Duration
	logPath   string

	mode      mode
	page      int
	cursor    int
	inFlight  int
	status    string
	statusErr bool

	spinner spinner.Model
	editor  textinput.Model
	editID  string

	filter       textinput.Model
	candidates   *services.Candidates
	selected     map[string]bool
	addCursor    int
	loadingCoins bool

	choices      []string
	choiceCursor int

	width  int
	height int
	quit   bool
}

func NewModel(ctx context.Context, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	editor := textinput.New()
	editor.Placeholder = "holdings"
	editor.CharLimit = 32

	filter := textinput.New()
	filter.Placeholder = "filter by name or symbol"
	filter.CharLimit = 64

	return Model{
		ctx:        ctx,
		dashboard:  opts.Dashboard,
		search:     opts.Search,
		wallets:    opts.Wallets,
		interval:   opts.RefreshInterval,
		logPath:    opts.LogPath,
		spinner:    sp,
		editor:     editor,
		filter:     filter,
		candidates: services.NewCandidates(),
		selected:   make(map[string]bool),
		width:      100,
		height:     30,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		func() tea.Msg { return RefreshTick{At: time.Now()} },
	}
	if m.wallets != nil {
		cmds = append(cmds, listenWalletCmd(m.ctx, m.wallets.Events()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RefreshTick:
		var cmd tea.Cmd
		m, cmd = m.startRefresh()
		if m.interval > 0 {
			return m, tea.Batch(cmd, tickCmd(m.interval))
		}
		return m, cmd

	case RefreshDone:
		return m.handleRefreshDone(msg), nil

	case WalletEvent:
		return m.handleWalletEvent(msg)

	case WalletFailed:
		logger.Error("Wallet operation failed: %v", msg.Err)
		m = m.setError(msg.Err)
		return m, nil

	case BalanceLoaded:
		m.dashboard.ApplyBalance(msg.Result)
		return m, nil

	case CoinsLoaded:
		return m.handleCoinsLoaded(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quit = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeEdit:
		return m.handleEditKey(msg)
	case modeAdd:
		return m.handleAddKey(msg)
	case modeConnect:
		return m.handleConnectKey(msg)
	default:
		return m.handleBrowseKey(msg)
	}
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quit = true
		return m, tea.Quit

	case "r":
		return m.startRefresh()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.pageLines())-1 {
			m.cursor++
		}

	case "left", "h":
		if m.page > 0 {
			m.page--
			m.cursor = 0
		}

	case "right", "l":
		if m.page < m.pageCount()-1 {
			m.page++
			m.cursor = 0
		}

	case "e":
		line, ok := m.selectedLine()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editID = line.Quote.ExternalID
		m.editor.SetValue(line.Token.Holdings.String())
		m.editor.CursorEnd()
		m.status = ""
		return m, m.editor.Focus()

	case "d":
		line, ok := m.selectedLine()
		if !ok {
			return m, nil
		}
		req := m.dashboard.RemoveToken(line.Quote.ExternalID)
		m = m.setStatus(fmt.Sprintf("Removed %s", line.Quote.DisplayName))
		m = m.clampPage()
		return m.runRefresh(req)

	case "a":
		if m.search == nil {
			return m.setStatus("Token search is not available"), nil
		}
		m.mode = modeAdd
		m.addCursor = 0
		m.selected = make(map[string]bool)
		m.filter.Reset()
		focus := m.filter.Focus()
		if m.candidates.Len() == 0 && !m.loadingCoins {
			m.loadingCoins = true
			return m, tea.Batch(focus, trendingCmd(m.ctx, m.search))
		}
		return m, focus

	case "c":
		if m.wallets == nil || len(m.wallets.Choices()) == 0 {
			return m.setStatus("No wallet connectors configured"), nil
		}
		m.mode = modeConnect
		m.choices = m.wallets.Choices()
		m.choiceCursor = 0

	case "x":
		if m.wallets == nil {
			return m, nil
		}
		return m, disconnectCmd(m.ctx, m.wallets)
	}

	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.editor.Blur()
		return m, nil

	case "enter":
		req, err := m.dashboard.EditHoldings(m.editID, m.editor.Value())
		if err != nil {
			return m.setError(err), nil
		}
		m.mode = modeBrowse
		m.editor.Blur()
		m = m.setStatus(fmt.Sprintf("Updated holdings of %s", m.editID))
		return m.runRefresh(req)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.candidates.Filter(m.filter.Value())

	if msg.Type == tea.KeySpace {
		if m.addCursor < len(visible) {
			id := models.NormalizeID(visible[m.addCursor].ExternalID)
			if m.selected[id] {
				delete(m.selected, id)
			} else {
				m.selected[id] = true
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.filter.Blur()
		return m, nil

	case "up":
		if m.addCursor > 0 {
			m.addCursor--
		}
		return m, nil

	case "down":
		if m.addCursor < len(visible)-1 {
			m.addCursor++
		}
		return m, nil

	case "ctrl+n":
		if m.loadingCoins {
			return m, nil
		}
		m.loadingCoins = true
		return m, pageCmd(m.ctx, m.search, m.candidates.NextPage())

	case "enter":
		entries := m.selectedEntries()
		if len(entries) == 0 {
			return m.setStatus("No tokens selected"), nil
		}
		m.mode = modeBrowse
		m.filter.Blur()
		req := m.dashboard.AddTokens(entries)
		m = m.setStatus(fmt.Sprintf("Added %d tokens", len(entries)))
		return m.runRefresh(req)
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.addCursor = 0
	return m, cmd
}

func (m Model) handleConnectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse

	case "up", "k":
		if m.choiceCursor > 0 {
			m.choiceCursor--
		}

	case "down", "j":
		if m.choiceCursor < len(m.choices)-1 {
			m.choiceCursor++
		}

	case "enter":
		m.mode = modeBrowse
		if m.choiceCursor >= len(m.choices) {
			return m, nil
		}
		choice := m.choices[m.choiceCursor]
		m = m.setStatus(fmt.Sprintf("Connecting through %s...", choice))
		return m, connectCmd(m.ctx, m.wallets, choice)
	}
	return m, nil
}

func (m Model) startRefresh() (Model, tea.Cmd) {
	return m.runRefresh(m.dashboard.BeginRefresh())
}

func (m Model) runRefresh(req services.RefreshRequest) (Model, tea.Cmd) {
	m.inFlight++
	return m, fetchCmd(m.ctx, m.dashboard, req)
}

func (m Model) handleRefreshDone(msg RefreshDone) Model {
	if m.inFlight > 0 {
		m.inFlight--
	}
	if msg.Result.Err != nil {
		m.dashboard.ApplyRefresh(msg.Result)
		return m.setError(fmt.Errorf("error fetching crypto data: %w", msg.Result.Err))
	}
	if m.dashboard.ApplyRefresh(msg.Result) && m.statusErr {
		m.status = ""
		m.statusErr = false
	}
	return m.clampPage()
}

func (m Model) handleWalletEvent(msg WalletEvent) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{listenWalletCmd(m.ctx, m.wallets.Events())}

	address, query := m.dashboard.ApplyWalletEvent(msg.Event)
	if query {
		cmds = append(cmds, balanceCmd(m.ctx, m.dashboard, address))
	}
	m = m.setStatus(fmt.Sprintf("Wallet %s", msg.Event.Kind))
	return m, tea.Batch(cmds...)
}

func (m Model) handleCoinsLoaded(msg CoinsLoaded) Model {
	m.loadingCoins = false
	if msg.Err != nil {
		logger.Error("Failed to load coins: %v", msg.Err)
		return m.setError(msg.Err)
	}
	if msg.Page > 0 {
		m.candidates.MergePage(msg.Page, msg.Coins)
	} else {
		m.candidates.Merge(msg.Coins)
	}
	return m
}

func (m Model) selectedEntries() []watchlist.Entry {
	var entries []watchlist.Entry
	for _, coin := range m.candidates.Filter("") {
		if m.selected[models.NormalizeID(coin.ExternalID)] {
			entries = append(entries, watchlist.Entry{ExternalID: coin.ExternalID, Holdings: decimal.Zero})
		}
	}
	return entries
}

func (m Model) lines() []models.PortfolioLine {
	return m.dashboard.Portfolio().Lines
}

func (m Model) pageCount() int {
	n := len(m.lines())
	if n == 0 {
		return 1
	}
	return (n + rowsPerPage - 1) / rowsPerPage
}

func (m Model) pageLines() []models.PortfolioLine {
	lines := m.lines()
	start := m.page * rowsPerPage
	if start >= len(lines) {
		return nil
	}
	end := start + rowsPerPage
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start:end]
}

func (m Model) selectedLine() (models.PortfolioLine, bool) {
	lines := m.pageLines()
	if m.cursor < 0 || m.cursor >= len(lines) {
		return models.PortfolioLine{}, false
	}
	return lines[m.cursor], true
}

func (m Model) clampPage() Model {
	if last := m.pageCount() - 1; m.page > last {
		m.page = last
	}
	if n := len(m.pageLines()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

func (m Model) setStatus(status string) Model {
	m.status = status
	m.statusErr = false
	return m
}

func (m Model) setError(err error) Model {
	m.status = err.Error()
	m.statusErr = true
	return m
}
