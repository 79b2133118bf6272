// Package mock provides a synthetic document backend. Pages are drawn
// procedurally so the viewer can be exercised without a PDF on disk, and
// tests can inject latency and failures per page.
package mock

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gg"

	"gitlab.com/tinyland/lab/flipbook/pkg/document"
)

// refBase offsets page object numbers so they never collide with small
// literal indexes in tests.
const refBase = 100

// Backend opens synthetic documents. The zero value yields a 12 page A4
// document with a generated outline.
type Backend struct {
	Pages  int
	Width  float64 // points
	Height float64 // points

	// Outline overrides the generated outline when non-nil.
	Outline []document.OutlineNode

	// Named maps destination names to page indexes. Defaults to
	// "chapter-N" for every fourth page.
	Named map[string]int

	// FailOpen makes every Open fail with this error.
	FailOpen error

	// FailPages makes rendering the listed pages fail.
	FailPages map[int]error

	// Delay is applied to every render and resolve call.
	Delay time.Duration

	// Version is reported as the fingerprint of handles opened from now
	// on, standing in for the content of a changed file.
	Version string

	mu      sync.Mutex
	renders []int
	resolve int
}

// Ref returns the object reference the mock assigns to page index.
func Ref(index int) document.PageRef {
	return document.PageRef{Object: refBase + index}
}

// Open returns a handle to a synthetic document. The source is only used
// in error messages.
func (b *Backend) Open(ctx context.Context, source string) (document.Handle, error) {
	if b.FailOpen != nil {
		return nil, &document.OpenError{Source: source, Err: b.FailOpen}
	}
	if err := b.wait(ctx); err != nil {
		return nil, &document.OpenError{Source: source, Err: err}
	}
	n := b.Pages
	if n <= 0 {
		n = 12
	}
	w, h := b.Width, b.Height
	if w <= 0 || h <= 0 {
		w, h = 595, 842
	}
	named := b.Named
	if named == nil {
		named = make(map[string]int)
		for i := 0; i < n; i += 4 {
			named[fmt.Sprintf("chapter-%d", i/4+1)] = i
		}
	}
	outline := b.Outline
	if outline == nil {
		outline = generatedOutline(n)
	}
	return &Handle{b: b, pages: n, w: w, h: h, named: named, outline: outline, version: b.Version}, nil
}

// Renders returns the page indexes rendered so far, in call order.
func (b *Backend) Renders() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.renders...)
}

// Resolves returns how many destination lookups were made.
func (b *Backend) Resolves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolve
}

func (b *Backend) wait(ctx context.Context) error {
	if b.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Handle is an open synthetic document.
type Handle struct {
	b       *Backend
	pages   int
	w, h    float64
	named   map[string]int
	outline []document.OutlineNode
	version string

	mu     sync.Mutex
	closed bool
}

func (h *Handle) PageCount() int                  { return h.pages }
func (h *Handle) Outline() []document.OutlineNode { return h.outline }
func (h *Handle) Fingerprint() string             { return h.version }

func (h *Handle) PageSize(_ context.Context, index int) (float64, float64, error) {
	if err := h.check(index); err != nil {
		return 0, 0, err
	}
	return h.w, h.h, nil
}

func (h *Handle) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	h.b.mu.Lock()
	h.b.renders = append(h.b.renders, index)
	h.b.mu.Unlock()

	if err := h.check(index); err != nil {
		return nil, &document.RenderError{Index: index, Err: err}
	}
	if err := h.b.wait(ctx); err != nil {
		return nil, &document.RenderError{Index: index, Err: err}
	}
	if err := h.b.FailPages[index]; err != nil {
		return nil, &document.RenderError{Index: index, Err: err}
	}
	if scale <= 0 {
		scale = 1
	}
	return drawPage(index, h.pages, int(h.w*scale), int(h.h*scale)), nil
}

func (h *Handle) ResolveNamedDestination(ctx context.Context, name string) (document.Location, error) {
	h.b.mu.Lock()
	h.b.resolve++
	h.b.mu.Unlock()

	if err := h.b.wait(ctx); err != nil {
		return document.Location{}, err
	}
	idx, ok := h.named[name]
	if !ok {
		return document.Location{}, fmt.Errorf("%w: %q", document.ErrUnknownDestination, name)
	}
	return document.ForRef(Ref(idx)), nil
}

func (h *Handle) LocationToPageIndex(_ context.Context, loc document.Location) (int, error) {
	idx := loc.Index
	if !loc.Ref.IsZero() {
		idx = loc.Ref.Object - refBase
	}
	if idx < 0 {
		return 0, document.ErrDetachedLocation
	}
	if idx >= h.pages {
		return 0, fmt.Errorf("%w: %d", document.ErrPageOutOfRange, idx)
	}
	return idx, nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Closed reports whether Close was called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) check(index int) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return document.ErrClosed
	}
	if index < 0 || index >= h.pages {
		return fmt.Errorf("%w: %d of %d", document.ErrPageOutOfRange, index, h.pages)
	}
	return nil
}

func generatedOutline(pages int) []document.OutlineNode {
	var nodes []document.OutlineNode
	for i := 0; i < pages; i += 4 {
		ch := document.OutlineNode{
			Title: fmt.Sprintf("Chapter %d", i/4+1),
			Dest:  document.Named(fmt.Sprintf("chapter-%d", i/4+1)),
		}
		for j := i + 1; j < i+4 && j < pages; j += 2 {
			ch.Children = append(ch.Children, document.OutlineNode{
				Title: fmt.Sprintf("Section %d.%d", i/4+1, (j-i+1)/2),
				Dest:  document.ForRef(Ref(j)),
			})
		}
		nodes = append(nodes, ch)
	}
	return nodes
}

// drawPage paints a recognisable page: a hue keyed to the index, a ruled
// text block, and a progress bar showing where the page sits in the book.
func drawPage(index, total, w, h int) image.Image {
	if w < 8 {
		w = 8
	}
	if h < 8 {
		h = 8
	}
	dc := gg.NewContext(w, h)
	defer dc.Close()

	fw, fh := float64(w), float64(h)
	hue := float64(index * 47 % 360)
	dc.ClearWithColor(gg.Hex("#fbfaf6"))

	dc.SetFillBrush(gg.NewLinearGradientBrush(0, 0, fw, 0).
		AddColorStop(0, gg.HSL(hue, 0.55, 0.45)).
		AddColorStop(1, gg.HSL(hue, 0.55, 0.65)))
	dc.DrawRectangle(0, 0, fw, fh*0.12)
	_ = dc.Fill()

	margin := fw * 0.1
	dc.SetRGB(0.75, 0.75, 0.75)
	for y := fh * 0.2; y < fh*0.85; y += fh * 0.035 {
		dc.DrawRectangle(margin, y, fw-2*margin, fh*0.012)
	}
	_ = dc.Fill()

	dc.SetColor(gg.HSL(hue, 0.4, 0.35).Color())
	dc.SetLineWidth(fh * 0.004)
	dc.DrawRoundedRectangle(margin, fh*0.9, fw-2*margin, fh*0.03, fh*0.015)
	_ = dc.Stroke()
	if total > 0 {
		frac := float64(index+1) / float64(total)
		dc.DrawRoundedRectangle(margin, fh*0.9, (fw-2*margin)*frac, fh*0.03, fh*0.015)
		_ = dc.Fill()
	}
	return dc.Image()
}
