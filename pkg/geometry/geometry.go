// Package geometry sizes a page so it fits its container without
// distortion, in single or dual (two pages side by side) presentation.
package geometry

import "math"

// Default padding in pixels.
const (
	DefaultXPadding = 120
	DefaultYPadding = 60
)

// Size is a page's display size in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Empty reports whether the size cannot hold a page.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Padding is subtracted from the container before fitting. X is the total
// horizontal padding of a spread; each page of a dual spread gives up half.
type Padding struct {
	X, Y float64
}

// DefaultPadding returns the stock padding.
func DefaultPadding() Padding {
	return Padding{X: DefaultXPadding, Y: DefaultYPadding}
}

// Available returns the box one page may occupy.
func Available(containerW, containerH float64, dual bool, pad Padding) Size {
	w := containerW - pad.X
	if dual {
		w = containerW/2 - pad.X/2
	}
	return Size{Width: math.Max(w, 0), Height: math.Max(containerH-pad.Y, 0)}
}

// ComputeSize fits a page with the given width/height aspect ratio into the
// container. If the available box is wider than the page, height limits;
// otherwise width does. A non-positive aspect or an empty box yields the
// zero Size.
func ComputeSize(containerW, containerH, aspect float64, dual bool, pad Padding) Size {
	box := Available(containerW, containerH, dual, pad)
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) || box.Empty() {
		return Size{}
	}
	if box.Width/box.Height > aspect {
		return Size{Width: box.Height * aspect, Height: box.Height}
	}
	return Size{Width: box.Width, Height: box.Width / aspect}
}

// Aspect returns w/h, or 0 when h is not positive.
func Aspect(w, h float64) float64 {
	if h <= 0 || w <= 0 {
		return 0
	}
	return w / h
}

// Cells converts a pixel size to whole terminal cells, rounding down and
// never below one cell in each direction.
func Cells(s Size, cellW, cellH int) (cols, rows int) {
	if s.Empty() || cellW <= 0 || cellH <= 0 {
		return 0, 0
	}
	cols = int(s.Width) / cellW
	rows = int(s.Height) / cellH
	return max(cols, 1), max(rows, 1)
}

// Pixels converts a cell extent to pixels.
func Pixels(cols, rows, cellW, cellH int) (w, h float64) {
	return float64(cols * cellW), float64(rows * cellH)
}
