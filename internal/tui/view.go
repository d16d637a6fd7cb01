package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

func (m MainModel) View() string {
	if m.quitting {
		return ""
	}

	outerStyle := baseStyle.
		Width(m.width-2).
		Height(m.height-2).
		Padding(0, 1)

	status := "Mode: Navigation (Press / to search)"
	if m.input.Focused() {
		status = "Mode: Searching (Press Esc/Enter to stop)"
	}
	if m.statusMsg != "" {
		status = errorStyle.Render(m.statusMsg)
	}

	activeBorderColor := lipgloss.Color("#5f5fd7") // Purple/Blue
	dimBorderColor := lipgloss.Color("#585858")    // Dark Gray

	detailBorderColor := dimBorderColor
	detailHeaderColor := lipgloss.Color("#bcbcbc") // Light Gray
	if m.listFocus == focusSide {
		detailBorderColor = activeBorderColor
		detailHeaderColor = activeBorderColor
	}

	detailContainerStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(detailBorderColor).
		PaddingLeft(2).
		Height(m.table.Height())

	detailHeader := "Record"
	if selected := m.table.SelectedRow(); len(selected) > 1 {
		detailHeader = fmt.Sprintf("Port %s", selected[1])
	}
	if !m.detail.AtTop() && !m.detail.AtBottom() {
		detailHeader += " ↕"
	} else if !m.detail.AtTop() {
		detailHeader += " ↑"
	} else if !m.detail.AtBottom() {
		detailHeader += " ↓"
	}

	detailHeaderStyle := tableHeaderStyle.
		Width(m.detail.Width).
		Foreground(detailHeaderColor).
		BorderForeground(detailBorderColor)

	s := table.DefaultStyles()
	if m.listFocus == focusMain {
		s.Header = tableHeaderStyle.BorderForeground(activeBorderColor)
	} else {
		s.Header = tableHeaderStyle.BorderForeground(dimBorderColor)
	}
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffaf")). // Light Yellow
		Background(lipgloss.Color("#5f00d7")). // Purple
		Bold(false)
	m.table.SetStyles(s)

	availableWidth := m.width - 6
	listPaneWidth := int(float64(availableWidth) * 0.6)
	if listPaneWidth < 10 {
		listPaneWidth = 10
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listPaneWidth).Render(m.table.View()),
		detailContainerStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				detailHeaderStyle.Render(detailHeader),
				lipgloss.NewStyle().PaddingLeft(1).Render(m.detail.View()),
			),
		),
	)

	helpText := fmt.Sprintf("Total: %d | r: Rescan | a/p/v/n: Sort | /: Search | Esc/q: Quit | Tab: Focus", len(m.filtered))
	footerContent := helpText
	if m.version != "" {
		gap := m.width - 6 - lipgloss.Width(helpText) - lipgloss.Width(m.version)
		if gap > 0 {
			footerContent = helpText + strings.Repeat(" ", gap) + m.version
		}
	}

	return outerStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("listeners"),
			lipgloss.NewStyle().Height(1).Render(""),
			lipgloss.NewStyle().MarginBottom(1).PaddingLeft(1).Render(status),
			lipgloss.NewStyle().MarginBottom(1).PaddingLeft(1).Render(m.input.View()),
			mainContent,
			lipgloss.NewStyle().Height(1).Render(""),
			footerStyle.Width(m.width-4).Render(footerContent),
		),
	)
}
