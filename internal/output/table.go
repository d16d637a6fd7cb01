package output

import (
	"strconv"
	"strings"

	"github.com/islameehassan/listeners"
)

var (
	colorReset   = "\033[0m"
	colorMagenta = "\033[35m"
	colorBold    = "\033[2m"
	colorGreen   = "\033[32m"
)

var tableHeaders = [5]string{"ADDRESS", "PORT", "VER", "PID", "PROCESS"}

// RenderTable lays the records out in aligned columns. Widths come from
// the plain cell text; escape codes are added only after padding, so
// colored output lines up with plain output.
func RenderTable(ls []listeners.Listener, colorEnabled bool) string {
	rows := make([][5]string, 0, len(ls))
	for _, l := range ls {
		pid, name := "-", "-"
		if l.Process != nil {
			pid = strconv.Itoa(l.Process.PID)
			name = l.Process.Name
		}
		rows = append(rows, [5]string{
			l.Addr.String(),
			strconv.Itoa(int(l.Port)),
			l.Version.String(),
			pid,
			name,
		})
	}

	var widths [5]int
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder

	for i, h := range tableHeaders {
		if i > 0 {
			b.WriteString("  ")
		}
		if i < len(tableHeaders)-1 {
			h = pad(h, widths[i])
		}
		if colorEnabled {
			b.WriteString(colorBold + h + colorReset)
		} else {
			b.WriteString(h)
		}
	}
	b.WriteByte('\n')

	for _, r := range rows {
		for i, cell := range r {
			if i > 0 {
				b.WriteString("  ")
			}
			if i < len(r)-1 {
				cell = pad(cell, widths[i])
			}
			if colorEnabled {
				switch i {
				case 2:
					cell = colorMagenta + cell + colorReset
				case 3:
					cell = colorBold + cell + colorReset
				case 4:
					if cell != "-" {
						cell = colorGreen + cell + colorReset
					}
				}
			}
			b.WriteString(cell)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
