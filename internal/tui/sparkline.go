package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws samples as block glyphs, one per sample, keeping the
// most recent width samples. A flat series is drawn at mid height.
func RenderSparkline(samples []float64, width int) string {
	if width <= 0 || len(samples) == 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	top := len(sparkGlyphs) - 1
	for _, v := range samples {
		idx := top / 2
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(top)))
		}
		b.WriteRune(sparkGlyphs[idx])
	}
	return b.String()
}

// trendStyle colours by the sign of the 24h change.
func trendStyle(change decimal.Decimal) lipgloss.Style {
	if change.IsNegative() {
		return negativeStyle
	}
	return positiveStyle
}
