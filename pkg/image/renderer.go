package image

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/blacktop/go-termimg"
	"gitlab.com/tinyland/lab/flipbook/pkg/terminal"
)

// ErrDisabled is returned by Render when the protocol is "none".
var ErrDisabled = errors.New("image rendering disabled")

// Renderer converts pictures to terminal output for one session. It is
// safe for concurrent use.
type Renderer struct {
	protocol terminal.GraphicsProtocol
	cellW    int
	cellH    int
	cache    *Cache
	log      *slog.Logger
}

// NewRenderer creates a Renderer for the detected capabilities with an
// output cache of maxCacheMB megabytes.
func NewRenderer(caps terminal.Capabilities, maxCacheMB int, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cw, ch := caps.Size.CellW, caps.Size.CellH
	if cw <= 0 || ch <= 0 {
		cw, ch = terminal.DefaultCellWidth, terminal.DefaultCellHeight
	}
	return &Renderer{
		protocol: caps.Protocol,
		cellW:    cw,
		cellH:    ch,
		cache:    NewCache(maxCacheMB),
		log:      log.With("component", "image"),
	}
}

func (r *Renderer) Protocol() terminal.GraphicsProtocol { return r.protocol }
func (r *Renderer) Cache() *Cache                       { return r.cache }

// CellSize returns the pixel size of one terminal cell.
func (r *Renderer) CellSize() (w, h int) { return r.cellW, r.cellH }

// Render returns the terminal output for the picture id drawn into a
// cols x rows cell block. draw is only called on a cache miss, so callers
// can defer compositing until it is needed.
func (r *Renderer) Render(id string, cols, rows int, draw func() image.Image) (string, error) {
	if r.protocol == terminal.ProtocolNone {
		return "", ErrDisabled
	}
	if cols <= 0 || rows <= 0 {
		return "", fmt.Errorf("render %s: empty cell box %dx%d", id, cols, rows)
	}

	key := CacheKey{ID: id, Protocol: r.protocol.String(), Cols: cols, Rows: rows}
	if s, ok := r.cache.Get(key); ok {
		return s, nil
	}

	img := draw()
	if img == nil {
		return "", fmt.Errorf("render %s: no image", id)
	}
	half := r.protocol == terminal.ProtocolHalfblocks
	w, h := PixelBox(cols, rows, r.cellW, r.cellH, half)
	fitted := Fit(img, w, h, half)

	var (
		out string
		err error
	)
	switch r.protocol {
	case terminal.ProtocolKitty:
		out, err = r.inline(fitted, termimg.Kitty, cols, rows)
	case terminal.ProtocolITerm2:
		out, err = r.inline(fitted, termimg.ITerm2, cols, rows)
	case terminal.ProtocolSixel:
		out, err = r.inline(fitted, termimg.Sixel, cols, rows)
	default:
		out = Halfblocks(fitted)
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", id, err)
	}
	r.cache.Put(key, out)
	r.log.Debug("rendered", "key", key.String(), "bytes", len(out))
	return out, nil
}

func (r *Renderer) inline(img image.Image, proto termimg.Protocol, cols, rows int) (string, error) {
	ti := termimg.New(img)
	if ti == nil {
		return "", errors.New("go-termimg: no image wrapper")
	}
	return ti.Protocol(proto).Size(cols, rows).Scale(termimg.ScaleFit).Render()
}
