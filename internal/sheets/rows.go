package sheets

import (
	"estimator/internal/core"
)

// Header is the column row above the item lines.
var Header = []interface{}{"Section", "Item", "Unit", "Quantity", "Price", "Margin %", "Total"}

// Layout controls how exported rows are rendered.
type Layout struct {
	Locale   string
	Currency string
}

// TabTitle names the tab an estimation is exported to. Ids are stable while
// names change, so the tab is keyed by id.
func TabTitle(prefix, estimationID string) string {
	return prefix + estimationID
}

// BuildRows lays e out as a header block, one row per item, a subtotal row
// per section and a closing grand total. Amounts are plain numbers so the
// sheet can compute with them; the last row repeats the total formatted.
func (l Layout) BuildRows(e core.Estimation) [][]interface{} {
	sum := core.Summarize(e)
	rows := [][]interface{}{
		{"Estimation", e.Name},
		{"Status", e.Status},
		{"Created", e.CreatedAt.String()},
		{"Description", e.Description},
		{},
		Header,
	}
	for _, s := range sum.Sections {
		for _, it := range s.Items {
			rows = append(rows, []interface{}{s.Name, it.Title, it.Unit, it.Quantity, it.Price, it.Margin, it.Total})
		}
		rows = append(rows, []interface{}{s.Name, "Subtotal", "", "", "", "", s.Total})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"", "Grand total", "", "", "", "", sum.Total},
		[]interface{}{"", "Formatted", "", "", "", "", core.FormatCurrency(sum.Total, l.locale(), l.currency())},
	)
	return rows
}

func (l Layout) locale() string {
	if l.Locale == "" {
		return core.DefaultLocale
	}
	return l.Locale
}

func (l Layout) currency() string {
	if l.Currency == "" {
		return core.DefaultCurrency
	}
	return l.Currency
}
