package flip

import (
	"image"
	"math"

	"github.com/gogpu/gg"
)

const (
	paperHex  = "#f4f1ea"
	blankHex  = "#d9d6cf"
	spineHex  = "#3a3a3a"
	shadowMax = 0.45
)

// Frame composes the widget's current picture. pageW and pageH are the
// display size of one page in pixels; in dual mode the frame is two
// pages wide. Pages without a bitmap are drawn blank.
func (m Model) Frame(pageW, pageH int) image.Image {
	if pageW <= 0 || pageH <= 0 {
		return nil
	}
	cols := 1
	if m.opts.Dual {
		cols = 2
	}
	dc := gg.NewContext(pageW*cols, pageH)
	defer dc.Close()
	dc.ClearWithColor(gg.Hex(paperHex))

	pw, ph := float64(pageW), float64(pageH)
	c := canvas{dc: dc, m: m, pw: pw, ph: ph}

	if m.state == StateRead {
		left, right := m.Visible()
		c.page(left, 0, pw)
		if m.opts.Dual {
			c.page(right, pw, pw)
			c.spine()
		}
		return dc.Image()
	}

	// Ease in and out so the turn starts and lands gently.
	p := m.Progress()
	p = 0.5 - 0.5*math.Cos(math.Pi*p)
	forward := m.target > m.from

	if !m.opts.Dual {
		if forward {
			// Outgoing page folds away to the left edge.
			c.page(m.target, 0, pw)
			c.leaf(m.from, 0, pw*(1-p))
			c.shade(pw*(1-p), pw, 1-p)
		} else {
			c.page(m.from, 0, pw)
			c.leaf(m.target, 0, pw*p)
			c.shade(pw*p, pw, p)
		}
		return dc.Image()
	}

	// Dual: the turning leaf pivots on the spine. Its visible width is
	// |cos| of the turn angle; it shows its front for the first half and
	// the next page for the second.
	w := pw * math.Abs(math.Cos(math.Pi*p))
	if forward {
		c.page(m.from, 0, pw)
		c.page(m.target+1, pw, pw)
		if p < 0.5 {
			c.leaf(m.from+1, pw, w)
			c.shade(pw+w, pw, 1-2*p)
		} else {
			c.leaf(m.target, pw-w, w)
			c.shade(pw-w-pw*0.04, pw*0.04, 2*p-1)
		}
	} else {
		c.page(m.target, 0, pw)
		c.page(m.from+1, pw, pw)
		if p < 0.5 {
			c.leaf(m.from, pw-w, w)
			c.shade(pw-w-pw*0.04, pw*0.04, 1-2*p)
		} else {
			c.leaf(m.target+1, pw, w)
			c.shade(pw+w, pw*0.04, 2*p-1)
		}
	}
	c.spine()
	return dc.Image()
}

type canvas struct {
	dc     *gg.Context
	m      Model
	pw, ph float64
}

// page draws page i scaled into the column starting at x. Indexes outside
// the document leave the paper background.
func (c canvas) page(i int, x, w float64) {
	if i < 0 || i >= c.m.pageCount() || w <= 0 {
		return
	}
	if bmp := c.m.pages.Bitmap(i); bmp != nil {
		c.dc.DrawImageEx(gg.ImageBufFromImage(bmp), gg.DrawImageOptions{
			X:             x,
			DstWidth:      w,
			DstHeight:     c.ph,
			Interpolation: gg.InterpBilinear,
		})
		return
	}
	c.blank(x, w)
}

func (c canvas) blank(x, w float64) {
	inset := math.Min(w, c.ph) * 0.06
	c.dc.SetHexColor(blankHex)
	c.dc.DrawRoundedRectangle(x+inset, inset, w-2*inset, c.ph-2*inset, inset)
	_ = c.dc.Fill()
}

// leaf draws the turning page squeezed to width w.
func (c canvas) leaf(i int, x, w float64) {
	if w < 1 {
		return
	}
	c.dc.SetHexColor(paperHex)
	c.dc.DrawRectangle(x, 0, w, c.ph)
	_ = c.dc.Fill()
	c.page(i, x, w)
}

// shade darkens a strip beside the leaf, strongest at its left edge.
func (c canvas) shade(x, w, strength float64) {
	if w <= 0 || strength <= 0 {
		return
	}
	a := shadowMax * math.Min(strength, 1)
	c.dc.SetFillBrush(gg.NewLinearGradientBrush(x, 0, x+math.Min(w, c.pw*0.15), 0).
		AddColorStop(0, gg.RGBA2(0, 0, 0, a)).
		AddColorStop(1, gg.RGBA2(0, 0, 0, 0)))
	c.dc.DrawRectangle(x, 0, math.Min(w, c.pw*0.15), c.ph)
	_ = c.dc.Fill()
}

func (c canvas) spine() {
	c.dc.SetHexColor(spineHex)
	c.dc.SetLineWidth(math.Max(1, c.pw*0.004))
	c.dc.DrawLine(c.pw, 0, c.pw, c.ph)
	_ = c.dc.Stroke()
}
