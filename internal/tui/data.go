package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/islameehassan/listeners"
	"github.com/muesli/reflow/wrap"
)

func (m MainModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ls, err := listeners.GetAll()
		if err != nil {
			return err
		}
		return ls
	}
}

func ownerName(l listeners.Listener) string {
	if l.Process == nil {
		return ""
	}
	return l.Process.Name
}

func (m *MainModel) sortRecords() {
	sort.Slice(m.records, func(i, j int) bool {
		a, b := m.records[i], m.records[j]
		var less bool
		switch m.sortCol {
		case "addr":
			less = a.Addr.Compare(b.Addr) < 0
		case "ver":
			if a.Version != b.Version {
				less = a.Version < b.Version
			} else {
				less = a.Port < b.Port
			}
		case "name":
			less = strings.ToLower(ownerName(a)) < strings.ToLower(ownerName(b))
		default:
			if a.Port != b.Port {
				less = a.Port < b.Port
			} else {
				less = a.Addr.Compare(b.Addr) < 0
			}
		}
		if m.sortDesc {
			return !less
		}
		return less
	})
}

func (m *MainModel) filterRecords() {
	filter := strings.ToLower(m.input.Value())
	var rows []table.Row

	m.filtered = nil
	for _, l := range m.records {
		pid, name := "-", "-"
		if l.Process != nil {
			pid = strconv.Itoa(l.Process.PID)
			name = l.Process.Name
		}

		match := false
		if filter == "" {
			match = true
		} else {
			match = strings.Contains(l.Addr.String(), filter) ||
				strings.Contains(strconv.Itoa(int(l.Port)), filter) ||
				strings.Contains(l.Version.String(), filter) ||
				strings.Contains(pid, filter) ||
				strings.Contains(strings.ToLower(name), filter)
		}

		if match {
			m.filtered = append(m.filtered, l)
			rows = append(rows, table.Row{
				l.Addr.String(),
				strconv.Itoa(int(l.Port)),
				l.Version.String(),
				pid,
				name,
			})
		}
	}
	m.table.SetRows(rows)
}

func (m *MainModel) getColumns() []table.Column {
	cols := []table.Column{
		{Title: "Address", Width: 30},
		{Title: "Port", Width: 7},
		{Title: "Ver", Width: 5},
		{Title: "PID", Width: 8},
		{Title: "Process", Width: 20},
	}

	addArrow := func(idx int, key string) {
		if m.sortCol == key {
			if m.sortDesc {
				cols[idx].Title += " ↓"
			} else {
				cols[idx].Title += " ↑"
			}
		}
	}

	addArrow(0, "addr")
	addArrow(1, "port")
	addArrow(2, "ver")
	addArrow(4, "name")

	return cols
}

func (m *MainModel) updateDetail() {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.filtered) {
		m.detail.SetContent(dimStyle.Render("No record selected."))
		return
	}
	l := m.filtered[idx]

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", labelStyle.Render("Socket:"))
	fmt.Fprintf(&b, "%s (%s)\n\n", l.AddrPort(), l.Version)

	fmt.Fprintf(&b, "%s\n", labelStyle.Render("Process:"))
	if l.Process != nil {
		fmt.Fprintf(&b, "%s\n", l.Process)
	} else {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("Not attributed. Rerun with elevated privileges to resolve owners."))
	}

	// Other sockets on the same port, e.g. the v6 twin of a dual bind.
	var others []listeners.Listener
	for _, o := range m.records {
		if o.Port == l.Port && o != l {
			others = append(others, o)
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(&b, "\n%s\n", labelStyle.Render("Same port:"))
		for _, o := range others {
			if o.Process != nil {
				fmt.Fprintf(&b, "%s (%s) %s\n", o.AddrPort(), o.Version, o.Process)
			} else {
				fmt.Fprintf(&b, "%s (%s)\n", o.AddrPort(), o.Version)
			}
		}
	}

	content := b.String()
	if m.detail.Width > 0 {
		content = wrap.String(content, m.detail.Width)
	}
	m.detail.SetContent(content)
}
