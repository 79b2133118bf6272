package image

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Sharpening applied after a downscale. Half blocks resolve two pixels per
// cell so they need more help to keep glyph edges.
const (
	sharpenInline     = 0.4
	sharpenHalfblocks = 0.7
)

// PixelBox is the pixel area a cols x rows cell block can show. Inline
// protocols address real pixels; half blocks get one pixel per column and
// two per row.
func PixelBox(cols, rows, cellW, cellH int, halfblocks bool) (w, h int) {
	cols, rows = max(cols, 1), max(rows, 1)
	if halfblocks {
		return cols, rows * 2
	}
	if cellW <= 0 {
		cellW = 8
	}
	if cellH <= 0 {
		cellH = 16
	}
	return cols * cellW, rows * cellH
}

// Fit scales img down to fit inside w x h, keeping its aspect ratio, and
// sharpens the result. Images that already fit are returned unchanged.
func Fit(img image.Image, w, h int, halfblocks bool) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || w <= 0 || h <= 0 {
		return img
	}
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}

	if halfblocks {
		// Lanczos rings badly at two pixels per cell.
		dw, dh := fitDims(b.Dx(), b.Dy(), w, h)
		dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		return imaging.Sharpen(dst, sharpenHalfblocks)
	}
	return imaging.Sharpen(imaging.Fit(img, w, h, imaging.Lanczos), sharpenInline)
}

func fitDims(sw, sh, w, h int) (int, int) {
	if sw*h > sh*w {
		return w, max(1, sh*w/sw)
	}
	return max(1, sw*h/sh), h
}

// ToNRGBA converts any image to *image.NRGBA, reusing it when it already is one.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
