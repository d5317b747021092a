// Package report renders backtest summaries for the terminal and as
// Markdown.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	symbolStyle = cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle   = numStyle.Foreground(lipgloss.Color("10"))
	lossStyle   = numStyle.Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ---------------------------------------------------------------------------
// Sorting
// ---------------------------------------------------------------------------

// Sort keys accepted by SortRows.
const (
	SortNone   = ""
	SortTicker = "ticker"
	SortSharpe = "sharpe"
	SortReturn = "return"
	SortDD     = "drawdown"
)

// SortRows orders rows in place. Metric keys sort best first; ties keep
// their input order.
func SortRows(rows []domain.Summary, key string) error {
	var less func(a, b domain.Summary) bool
	switch key {
	case SortNone:
		return nil
	case SortTicker:
		less = func(a, b domain.Summary) bool { return a.Ticker < b.Ticker }
	case SortSharpe:
		less = func(a, b domain.Summary) bool { return a.Sharpe > b.Sharpe }
	case SortReturn:
		less = func(a, b domain.Summary) bool { return a.CumulativeReturn > b.CumulativeReturn }
	case SortDD:
		less = func(a, b domain.Summary) bool { return a.MaxDrawdown > b.MaxDrawdown }
	default:
		return fmt.Errorf("unknown sort key %q: %w", key, domain.ErrInvalidInput)
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return nil
}

// ---------------------------------------------------------------------------
// Terminal table
// ---------------------------------------------------------------------------

// RenderTable renders rows as a bordered terminal table with bar and trade
// counts. Positive returns are green and negative ones red when the output
// supports color.
func RenderTable(rows []domain.Summary) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{
			r.Ticker,
			FormatSharpe(r.Sharpe),
			FormatPct(r.MaxDrawdown),
			FormatPct(r.CumulativeReturn),
			FormatInt(r.Bars),
			FormatInt(r.Trades),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("TICKER", "SHARPE", "MAX DD", "RETURN", "BARS", "TRADES").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(rows) {
				return numStyle
			}
			switch col {
			case 0:
				return symbolStyle
			case 1, 3:
				v := rows[row].Sharpe
				if col == 3 {
					v = rows[row].CumulativeReturn
				}
				switch {
				case v > 0:
					return gainStyle
				case v < 0:
					return lossStyle
				}
			}
			return numStyle
		})
	return t.String()
}

// RenderRuns renders recorded runs as a terminal table, newest first.
func RenderRuns(runs []store.Run) string {
	data := make([][]string, len(runs))
	for i, r := range runs {
		data[i] = []string{
			r.ID,
			r.Strategy,
			r.Start.Format("2006-01-02"),
			r.End.AddDate(0, 0, -1).Format("2006-01-02"),
			FormatInt(r.Tickers),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("RUN", "STRATEGY", "FROM", "TO", "TICKERS", "CREATED").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// ---------------------------------------------------------------------------
// Markdown
// ---------------------------------------------------------------------------

// RenderMarkdown renders rows as a pipe table with a left-aligned ticker
// column and right-aligned metric columns.
func RenderMarkdown(rows []domain.Summary) string {
	headers := []string{"ticker", "sharpe", "max_drawdown", "cumulative_return"}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.Ticker, FormatSharpe(r.Sharpe), FormatPct(r.MaxDrawdown), FormatPct(r.CumulativeReturn)}
	}

	widths := make([]int, len(headers))
	for c, h := range headers {
		widths[c] = len(h)
		for _, row := range cells {
			widths[c] = max(widths[c], len(row[c]))
		}
	}

	var b strings.Builder
	writeRow := func(vals []string) {
		b.WriteByte('|')
		for c, v := range vals {
			pad := strings.Repeat(" ", widths[c]-len(v))
			if c == 0 {
				b.WriteString(" " + v + pad + " |")
			} else {
				b.WriteString(" " + pad + v + " |")
			}
		}
		b.WriteByte('\n')
	}

	writeRow(headers)
	b.WriteByte('|')
	for c, w := range widths {
		if c == 0 {
			b.WriteString(":" + strings.Repeat("-", w+1) + "|")
		} else {
			b.WriteString(strings.Repeat("-", w+1) + ":|")
		}
	}
	b.WriteByte('\n')
	for _, row := range cells {
		writeRow(row)
	}
	return b.String()
}
