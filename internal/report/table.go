// Package report renders computed enum layouts as a terminal table.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"enumgen/internal/abicache"
)

// Options control table rendering.
type Options struct {
	Color bool
	// Width truncates the enum column so rows fit; 0 disables truncation.
	Width int
	// Patterns lists the storage pattern of every empty case under its enum.
	Patterns bool
}

var columns = []string{"ENUM", "STRATEGY", "KIND", "SIZE", "ALIGN", "STRIDE", "PAYLOAD", "XTAG", "SPARE TAGS", "XI"}

// numeric columns are right aligned
var numeric = map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true, 9: true}

const enumColumn = 0

func row(r abicache.Record) []string {
	spare := r.SpareTagBits
	if spare == "" {
		spare = "-"
	}
	return []string{
		r.Name,
		r.Strategy,
		r.Kind,
		strconv.Itoa(r.Size),
		strconv.Itoa(r.Align),
		strconv.Itoa(r.Stride),
		strconv.Itoa(r.PayloadBits),
		strconv.Itoa(r.ExtraTagBits),
		spare,
		strconv.FormatUint(uint64(r.ExtraInhabitants), 10),
	}
}

// Render writes a header line for path and one row per record.
func Render(w io.Writer, path string, records []abicache.Record, opts Options) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = row(r)
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	if opts.Width > 0 {
		rest := 0
		for i, wd := range widths {
			if i != enumColumn {
				rest += wd + 2
			}
		}
		if limit := opts.Width - rest; limit >= len(columns[enumColumn]) && limit < widths[enumColumn] {
			widths[enumColumn] = limit
		}
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	headerStyle := lipgloss.NewStyle().Bold(true)
	render := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	b.WriteString(render(titleStyle, path))
	b.WriteString("\n")

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = pad(c, widths[i], numeric[i])
	}
	b.WriteString(render(headerStyle, strings.TrimRight(strings.Join(header, "  "), " ")))
	b.WriteString("\n")

	for i, r := range rows {
		cells := make([]string, len(r))
		for j, cell := range r {
			text := pad(truncate(cell, widths[j]), widths[j], numeric[j])
			if j == 1 {
				text = render(styleStrategy(cell), text)
			}
			cells[j] = text
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
		if opts.Patterns {
			writePatterns(&b, records[i])
		}
	}
	if len(records) == 0 {
		b.WriteString("  (no enums)\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writePatterns(b *strings.Builder, r abicache.Record) {
	for _, c := range r.Cases {
		switch {
		case c.Payload != "":
			fmt.Fprintf(b, "    %s(%s)\n", c.Name, c.Payload)
		case c.Pattern != "":
			fmt.Fprintf(b, "    %s = %s\n", c.Name, c.Pattern)
		default:
			fmt.Fprintf(b, "    %s\n", c.Name)
		}
	}
}

func pad(s string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

func styleStrategy(strategy string) lipgloss.Style {
	switch strategy {
	case "singleton", "no-payload", "c-no-payload":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "single-payload":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case "multi-payload":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
