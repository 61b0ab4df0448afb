package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Align controls how a column's cells are padded.
type Align int

const (
	// AlignLeft pads cells on the right.
	AlignLeft Align = iota
	// AlignRight pads cells on the left, for numbers.
	AlignRight
)

// Table represents a simple table formatter with dynamic column widths.
// Widths are measured in terminal cells, so styled (ANSI) cells line up.
type Table struct {
	headers []string
	rows    [][]string
	align   map[int]Align
	padding int
}

// NewTable creates a new table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		align:   make(map[int]Align),
		padding: 2, // 2 spaces between columns
	}
}

// SetAlign sets the alignment of a column.
func (t *Table) SetAlign(colIndex int, align Align) {
	t.align[colIndex] = align
}

// AddRow adds a row to the table, padding or truncating it to the header count.
func (t *Table) AddRow(row []string) {
	normalised := make([]string, len(t.headers))
	copy(normalised, row)
	t.rows = append(t.rows, normalised)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render formats and returns the table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(t.headers))
	for i, h := range t.headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			colWidths[i] = max(colWidths[i], lipgloss.Width(cell))
		}
	}

	var result strings.Builder
	sep := strings.Repeat(" ", t.padding)

	t.writeLine(&result, t.headers, colWidths, sep)

	rule := make([]string, len(t.headers))
	for i, w := range colWidths {
		rule[i] = strings.Repeat("-", w)
	}
	t.writeLine(&result, rule, colWidths, sep)

	for _, row := range t.rows {
		t.writeLine(&result, row, colWidths, sep)
	}

	return result.String()
}

func (t *Table) writeLine(b *strings.Builder, cells []string, widths []int, sep string) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = pad(cell, widths[i], t.align[i])
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, sep), " "))
	b.WriteString("\n")
}

// pad pads s with spaces to the desired display width.
// If s is already at least that wide, it is returned unchanged.
func pad(s string, width int, align Align) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	fill := strings.Repeat(" ", width-w)
	if align == AlignRight {
		return fill + s
	}
	return s + fill
}
