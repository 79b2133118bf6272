package image

import (
	"image"
	"strconv"
	"strings"
)

// Halfblocks renders img with U+2580 upper half blocks in 24-bit colour.
// Each cell shows the top pixel as foreground and the bottom pixel as
// background, so the output has ceil(h/2) lines of w cells each.
// Fully transparent pixels fall back to the terminal background.
func Halfblocks(img image.Image) string {
	if img == nil {
		return ""
	}
	n := ToNRGBA(img)
	b := n.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(w * (h/2 + 1) * 24)
	for y := 0; y < h; y += 2 {
		if y > 0 {
			sb.WriteString("\x1b[0m\n")
		}
		for x := 0; x < w; x++ {
			top := n.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			bot := top
			bot.A = 0
			if y+1 < h {
				bot = n.NRGBAAt(b.Min.X+x, b.Min.Y+y+1)
			}
			switch {
			case top.A == 0 && bot.A == 0:
				sb.WriteString("\x1b[0m ")
			case top.A == 0:
				sgr(&sb, 38, bot.R, bot.G, bot.B)
				sb.WriteString("\x1b[49m▄")
			case bot.A == 0:
				sgr(&sb, 38, top.R, top.G, top.B)
				sb.WriteString("\x1b[49m▀")
			default:
				sgr(&sb, 38, top.R, top.G, top.B)
				sgr(&sb, 48, bot.R, bot.G, bot.B)
				sb.WriteString("▀")
			}
		}
	}
	sb.WriteString("\x1b[0m")
	return sb.String()
}

// sgr writes a truecolor select-graphic-rendition sequence. layer is 38
// for foreground or 48 for background.
func sgr(sb *strings.Builder, layer int, r, g, b uint8) {
	sb.WriteString("\x1b[")
	sb.WriteString(strconv.Itoa(layer))
	sb.WriteString(";2;")
	sb.WriteString(strconv.Itoa(int(r)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(g)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(b)))
	sb.WriteByte('m')
}
