package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSharpe formats a Sharpe ratio with two decimals.
func FormatSharpe(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatPct formats a fraction as a percentage with two decimals, e.g.
// -0.0213 as "-2.13%".
func FormatPct(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	pct := v * 100
	// Avoid printing "-0.00%".
	if math.Abs(pct) < 0.005 {
		pct = 0
	}
	return fmt.Sprintf("%.2f%%", pct)
}
