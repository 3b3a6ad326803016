package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Column is a fixed-width table column. Right aligns numeric columns such as
// chain ids and gas figures.
type Column struct {
	Title string
	Width int
	Right bool
}

// Row holds one cell per column. Cells may already be styled.
type Row []string

// Table is a plain column table for listings (chains, wallets, functions).
type Table struct {
	Columns []Column
	Rows    []Row
}

func NewTable(cols []Column) *Table {
	return &Table{Columns: cols}
}

func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// fit pads s to exactly col.Width display cells, truncating with an
// ellipsis. Escape codes in styled cells do not count towards the width.
func fit(s string, col Column) string {
	if col.Width <= 0 {
		return ""
	}
	if lipgloss.Width(s) > col.Width {
		s = ansi.Truncate(s, col.Width, "…")
	}
	gap := strings.Repeat(" ", col.Width-lipgloss.Width(s))
	if col.Right {
		return gap + s
	}
	return s + gap
}

var (
	tableHeader = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	tableCell   = lipgloss.NewStyle().Foreground(ColorValue)
)

func (t *Table) line(cells func(i int, col Column) string) string {
	parts := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		parts[i] = cells(i, col)
	}
	return strings.Join(parts, " ") + "\n"
}

// Render returns the header, a divider and every row. Missing cells render
// empty.
func (t *Table) Render() string {
	var sb strings.Builder
	sb.WriteString(t.line(func(_ int, col Column) string {
		return tableHeader.Render(fit(col.Title, col))
	}))
	sb.WriteString(t.line(func(_ int, col Column) string {
		return StyleDim.Render(strings.Repeat("-", col.Width))
	}))
	for _, row := range t.Rows {
		sb.WriteString(t.line(func(i int, col Column) string {
			if i >= len(row) {
				return fit("", col)
			}
			return tableCell.Render(fit(row[i], col))
		}))
	}
	return sb.String()
}

// KeyValueBlock renders labelled values in a rounded box, in the given
// order.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		sb.WriteString(fmt.Sprintf("  %s %s\n", StyleMeta.Render(fmt.Sprintf("%-20s", p[0]+":")), StyleValue.Render(p[1])))
	}
	return StyleBorder.Render(sb.String())
}
