package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"estimator/internal/core"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorText   = lipgloss.Color("#FFFCF0")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	dimStyle    = lipgloss.NewStyle().Foreground(colorBorder)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// Separator as the only cell of a row draws a horizontal rule.
const Separator = "---"

// Table is a bordered text table. Columns after the first are right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderMuted renders a dimmed hint line.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && !isSeparator(row) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right) + "\n")
	}
	line := func(cells []string, style lipgloss.Style, header bool) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 || header {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│") + "\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle, true)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			rule("├", "┼", "┤")
			continue
		}
		line(row, valueStyle, false)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == Separator
}

// Truncate shortens s to n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// Money formats amounts for one locale and currency.
type Money struct {
	Locale   string
	Currency string
}

func (m Money) Format(v float64) string {
	return core.FormatCurrency(v, m.Locale, m.Currency)
}

// ProjectRows renders one row per project: name, client, status, dates.
func ProjectRows(projects []core.Project) [][]string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			Truncate(p.Name, 28),
			Truncate(p.Client, 20),
			p.Status.Label(),
			dateCell(p.StartDate),
			dateCell(p.EndDate),
		})
	}
	return rows
}

// EstimationRows renders one row per estimation with its grand total.
func EstimationRows(estimations []core.Estimation, money Money) [][]string {
	rows := make([][]string, 0, len(estimations))
	for _, e := range estimations {
		rows = append(rows, []string{
			e.ID,
			Truncate(e.Name, 32),
			e.Status,
			dateCell(e.CreatedAt),
			money.Format(core.EstimationTotal(e.Sections)),
		})
	}
	return rows
}

// SummaryRows renders item lines grouped by section. Each section ends with
// its subtotal and the table with the grand total.
func SummaryRows(s core.EstimationSummary, money Money) [][]string {
	var rows [][]string
	for _, sec := range s.Sections {
		for _, it := range sec.Items {
			rows = append(rows, []string{
				Truncate(it.Title, 32),
				fmt.Sprintf("%g %s", it.Quantity, it.Unit),
				money.Format(it.Price),
				fmt.Sprintf("%g%%", it.Margin),
				money.Format(it.Total),
			})
		}
		rows = append(rows, []string{sec.Name + " subtotal", "", "", "", money.Format(sec.Total)})
		rows = append(rows, []string{Separator})
	}
	rows = append(rows, []string{"Total", "", "", "", money.Format(s.Total)})
	return rows
}

func dateCell(d core.Date) string {
	if d.IsEmpty() {
		return "-"
	}
	return d.String()
}
