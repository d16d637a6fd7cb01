package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/islameehassan/listeners"
)

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.statusMsg = "" // clear any transient error on interaction
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

		if m.input.Focused() {
			if msg.String() == "enter" || msg.String() == "esc" {
				m.input.Blur()
				return m, nil
			}
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			m.filterRecords()
			m.table.SetCursor(0)
			m.updateDetail()
			return m, inputCmd
		}

		switch msg.String() {
		case "/":
			m.input.Focus()
			return m, textinput.Blink

		case "q", "esc":
			m.quitting = true
			return m, tea.Quit

		case "r", "R":
			m.statusMsg = "Rescanning..."
			return m, m.refresh()

		// Focus Switching
		case "tab", "right", "left", "l", "h":
			if m.listFocus == focusMain {
				m.listFocus = focusSide
			} else {
				m.listFocus = focusMain
			}
			return m, nil

		// Sorting Keys
		case "a", "A", "p", "P", "n", "N", "v", "V":
			newCol := ""
			switch msg.String() {
			case "a", "A":
				newCol = "addr"
			case "p", "P":
				newCol = "port"
			case "n", "N":
				newCol = "name"
			case "v", "V":
				newCol = "ver"
			}

			if m.sortCol == newCol {
				m.sortDesc = !m.sortDesc
			} else {
				m.sortCol = newCol
				m.sortDesc = false
			}
			m.sortRecords()
			m.filterRecords()
			cols := m.table.Columns()
			newCols := m.getColumns()
			for i := range cols {
				if i < len(newCols) {
					newCols[i].Width = cols[i].Width
				}
			}
			m.table.SetColumns(newCols)
			m.updateDetail()
			return m, nil
		}

		// Table navigation or detail scrolling
		var cmd tea.Cmd
		if m.listFocus == focusMain {
			prevCursor := m.table.Cursor()
			m.table, cmd = m.table.Update(msg)
			if m.table.Cursor() != prevCursor {
				m.updateDetail()
			}
		} else {
			m.detail, cmd = m.detail.Update(msg)
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		availableWidth := msg.Width - 6
		if availableWidth < 0 {
			availableWidth = 0
		}

		listHeight := msg.Height - 11
		if listHeight < 5 {
			listHeight = 5
		}

		listPaneWidth := int(float64(availableWidth) * 0.6)
		if listPaneWidth < 10 {
			listPaneWidth = 10
		}

		tablePadding := 4
		listWidth := listPaneWidth - tablePadding
		if listWidth < 10 {
			listWidth = 10
		}

		// The address column absorbs whatever the fixed ones leave over.
		fixedColumnsWidth := 40 // Port(7)+Ver(5)+PID(8)+Process(20)
		addrWidth := listWidth - fixedColumnsWidth - 12
		if addrWidth < 15 {
			addrWidth = 15
		}

		columns := m.getColumns()
		columns[0].Width = addrWidth
		m.table.SetColumns(columns)
		m.table.SetWidth(listWidth)
		m.table.SetHeight(listHeight)

		detailWidth := availableWidth - listPaneWidth - 4
		if detailWidth < 10 {
			detailWidth = 10
		}
		m.detail.Width = detailWidth
		m.detail.Height = listHeight - 2
		if m.detail.Height < 0 {
			m.detail.Height = 0
		}

		m.updateDetail()

	case []listeners.Listener:
		m.statusMsg = ""

		// Keep the cursor on the same record across rescans when it
		// survived.
		var current string
		if row := m.table.SelectedRow(); len(row) >= 4 {
			current = row[0] + "|" + row[1] + "|" + row[2] + "|" + row[3]
		}

		m.records = msg
		m.sortRecords()
		m.filterRecords()

		cursor := 0
		if current != "" {
			for i, row := range m.table.Rows() {
				if len(row) >= 4 && row[0]+"|"+row[1]+"|"+row[2]+"|"+row[3] == current {
					cursor = i
					break
				}
			}
		}
		m.table.SetCursor(cursor)
		m.updateDetail()

	case error:
		m.statusMsg = fmt.Sprintf("Error: %v", msg)
	}

	return m, nil
}
