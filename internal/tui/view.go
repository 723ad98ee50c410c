package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/shopspring/decimal"

	"github.com/kelsos/coinfolio/internal/models"
	"github.com/kelsos/coinfolio/internal/portfolio"
	"github.com/kelsos/coinfolio/internal/utils"
)

const (
	sparkWidth   = 20
	barWidth     = 30
	modalRows    = 10
	tokenColumn  = 24
	numberColumn = 14
)

func (m Model) View() string {
	if m.quit {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(m.renderHeader())
	s.WriteString("\n\n")
	s.WriteString(m.renderTotal())
	s.WriteString("\n\n")
	s.WriteString(m.renderTable())
	s.WriteString("\n")

	switch m.mode {
	case modeEdit:
		s.WriteString("\n" + m.renderEditor() + "\n")
	case modeAdd:
		s.WriteString("\n" + m.renderAddModal() + "\n")
	case modeConnect:
		s.WriteString("\n" + m.renderConnect() + "\n")
	}

	if m.status != "" {
		style := mutedStyle
		if m.statusErr {
			style = errorStyle
		}
		s.WriteString("\n" + style.Render(m.status) + "\n")
	}

	s.WriteString("\n" + m.renderFooter())
	return s.String()
}

func (m Model) renderHeader() string {
	title := headerStyle.Render("💰 Coinfolio")

	w := m.dashboard.Wallet()
	if !w.Connected {
		return title + "  " + mutedStyle.Render("○ Wallet not connected")
	}

	status := "● " + shortAddress(w.Address)
	if w.Balance != nil {
		status += fmt.Sprintf("  %s %s", w.Balance.Formatted, w.Balance.Symbol)
	}
	return title + "  " + positiveStyle.Render(status)
}

func (m Model) renderTotal() string {
	var card strings.Builder
	card.WriteString(mutedStyle.Render("Total Portfolio Value") + "\n")

	if !m.dashboard.Loaded() {
		card.WriteString(m.spinner.View() + " Loading portfolio...")
		return cardStyle.Render(card.String())
	}

	snap := m.dashboard.Portfolio()
	card.WriteString(totalStyle.Render(snap.Total.Formatted))
	if m.inFlight > 0 {
		card.WriteString(" " + m.spinner.View())
	}
	card.WriteString("\n")
	updatedAt := m.dashboard.UpdatedAt()
	card.WriteString(mutedStyle.Render("Last updated: " + updatedAt.Format("15:04:05")))
	if m.interval > 0 && utils.HasEnoughTimeElapsed(updatedAt, 2*m.interval) {
		card.WriteString(" " + errorStyle.Render("(stale)"))
	}
	card.WriteString("\n")

	for _, slice := range m.dashboard.Breakdown() {
		card.WriteString("\n" + renderSlice(slice))
	}
	return cardStyle.Render(card.String())
}

func renderSlice(slice portfolio.Slice) string {
	bar := progress.New(
		progress.WithSolidFill(slice.Color),
		progress.WithoutPercentage(),
		progress.WithWidth(barWidth),
	)
	return fmt.Sprintf("%s %6s%%  %s",
		bar.ViewAs(slice.Percent.InexactFloat64()/100),
		slice.Percent.StringFixed(1),
		truncate(slice.Label, tokenColumn))
}

func (m Model) renderTable() string {
	var s strings.Builder

	header := fmt.Sprintf("  %-*s %*s %9s  %-*s %*s %*s",
		tokenColumn, "Token",
		numberColumn, "Price",
		"24h",
		sparkWidth, "7d",
		numberColumn, "Holdings",
		numberColumn, "Value")
	s.WriteString(mutedStyle.Render(header) + "\n")
	s.WriteString(mutedStyle.Render(strings.Repeat("─", len([]rune(header)))) + "\n")

	lines := m.pageLines()
	if len(lines) == 0 {
		s.WriteString(mutedStyle.Render("  No tokens to show") + "\n")
	}

	for i, line := range lines {
		s.WriteString(m.renderRow(line, i == m.cursor && m.mode == modeBrowse) + "\n")
	}

	s.WriteString(mutedStyle.Render(fmt.Sprintf("Page %d/%d", m.page+1, m.pageCount())))
	return s.String()
}

func (m Model) renderRow(line models.PortfolioLine, selected bool) string {
	q := line.Quote
	trend := trendStyle(q.Change24hPercent)

	holdings := line.Token.Holdings.String()
	if !line.Tracked {
		holdings += "*"
	}

	marker := "  "
	if selected {
		marker = "> "
	}

	row := fmt.Sprintf("%-*s %*s %s  %s %*s %*s",
		tokenColumn, truncate(fmt.Sprintf("%s (%s)", q.DisplayName, q.Symbol), tokenColumn),
		numberColumn, formatPrice(q.Price),
		trend.Render(fmt.Sprintf("%9s", formatChange(q.Change24hPercent))),
		trend.Render(fmt.Sprintf("%-*s", sparkWidth, RenderSparkline(q.Sparkline, sparkWidth))),
		numberColumn, holdings,
		numberColumn, portfolio.FormatUSD(line.Value))

	if selected {
		return selectedStyle.Render(marker) + row
	}
	return marker + row
}

func (m Model) renderEditor() string {
	var s strings.Builder
	s.WriteString(fmt.Sprintf("Edit holdings for %s\n", m.editID))
	s.WriteString(m.editor.View() + "\n")
	s.WriteString(footerStyle.Render("enter save • esc cancel"))
	return modalStyle.Render(s.String())
}

func (m Model) renderAddModal() string {
	var s strings.Builder
	s.WriteString("Add tokens\n")
	s.WriteString(m.filter.View() + "\n\n")

	visible := m.candidates.Filter(m.filter.Value())
	if len(visible) == 0 && !m.loadingCoins {
		s.WriteString(mutedStyle.Render("No matching tokens") + "\n")
	}

	start := 0
	if m.addCursor >= modalRows {
		start = m.addCursor - modalRows + 1
	}
	for i := start; i < len(visible) && i < start+modalRows; i++ {
		coin := visible[i]
		check := "[ ]"
		if m.selected[models.NormalizeID(coin.ExternalID)] {
			check = "[x]"
		}
		row := fmt.Sprintf("%s %s (%s)", check, coin.Name, coin.Symbol)
		if i == m.addCursor {
			row = selectedStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		s.WriteString(row + "\n")
	}

	if m.loadingCoins {
		s.WriteString(m.spinner.View() + " Loading tokens...\n")
	}

	s.WriteString(footerStyle.Render(fmt.Sprintf(
		"%d selected • space select • ctrl+n more • enter add • esc close", len(m.selected))))
	return modalStyle.Render(s.String())
}

func (m Model) renderConnect() string {
	var s strings.Builder
	s.WriteString("Connect wallet\n")
	for i, choice := range m.choices {
		if i == m.choiceCursor {
			s.WriteString(selectedStyle.Render("> "+choice) + "\n")
		} else {
			s.WriteString("  " + choice + "\n")
		}
	}
	s.WriteString(footerStyle.Render("enter connect • esc cancel"))
	return modalStyle.Render(s.String())
}

func (m Model) renderFooter() string {
	footer := "r refresh • e edit • d delete • a add • c connect • x disconnect • ←/→ page • q quit"
	if m.logPath != "" {
		footer += " | Logs: " + m.logPath
	}
	return footerStyle.Render(footer)
}

func formatPrice(price decimal.Decimal) string {
	if price.LessThan(decimal.NewFromInt(1)) {
		return "$" + price.StringFixed(6)
	}
	return portfolio.FormatUSD(price)
}

func formatChange(change decimal.Decimal) string {
	sign := ""
	if !change.IsNegative() {
		sign = "+"
	}
	return sign + change.StringFixed(2) + "%"
}

func shortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
