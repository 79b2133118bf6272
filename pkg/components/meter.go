package components

import (
	"math"
	"strings"
)

// eighths holds the partial block glyphs, index n covering n/8 of a cell.
var eighths = [9]rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉', '█'}

var levels = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Meter draws value/max as a horizontal bar width cells wide with
// eighth-cell resolution. Values are clamped to [0, max].
func Meter(value, max float64, width int) string {
	if width <= 0 {
		return ""
	}
	ratio := 0.0
	if max > 0 {
		ratio = math.Min(math.Max(value/max, 0), 1)
	}
	total := int(math.Round(ratio * float64(width*8)))
	full, part := total/8, total%8

	var b strings.Builder
	b.WriteString(strings.Repeat("█", full))
	if full < width {
		b.WriteRune(eighths[part])
		b.WriteString(strings.Repeat(" ", width-full-1))
	}
	return b.String()
}

// Spark draws the last width samples as a one-line sparkline scaled to
// their own range. Flat series render at mid height.
func Spark(samples []float64, width int) string {
	if width <= 0 || len(samples) == 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	for _, v := range samples {
		i := 3
		if hi > lo {
			i = int(math.Round((v - lo) / (hi - lo) * 7))
		}
		b.WriteRune(levels[i])
	}
	return b.String()
}
