// Package pdf is the document backend for real PDF files. MuPDF (through
// go-fitz) rasterises pages; the object graph needed for the outline,
// named destinations and page references is read with tabula, because
// MuPDF's table of contents flattens destinations to page numbers.
//
// When tabula cannot parse a file (cross-reference streams, damaged
// trailers) the handle still opens: pages render through MuPDF and the
// outline falls back to MuPDF's resolved table of contents.
package pdf

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/tsawler/tabula/reader"

	"gitlab.com/tinyland/lab/flipbook/pkg/document"
)

// Backend opens PDF documents from paths or http(s) URLs.
type Backend struct {
	// Client fetches remote documents. nil uses http.DefaultClient.
	Client *http.Client
	// TempDir receives downloaded documents. Empty uses os.TempDir.
	TempDir string
	Logger  *slog.Logger
}

var _ document.Backend = (*Backend)(nil)

var _ document.Fingerprinter = (*Handle)(nil)

func (b *Backend) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return b.Logger
}

// Open loads source. Every failure is a *document.OpenError.
func (b *Backend) Open(ctx context.Context, source string) (document.Handle, error) {
	fail := func(err error) (document.Handle, error) {
		return nil, &document.OpenError{Source: source, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	src, err := b.localPath(ctx, source)
	if err != nil {
		return fail(err)
	}
	path := src.path
	cleanup := func() {
		if src.temp {
			os.Remove(path)
		}
	}

	doc, err := fitz.New(path)
	if err != nil {
		cleanup()
		return fail(err)
	}
	h := &Handle{
		source: source,
		path:   path,
		temp:   src.temp,
		sum:    src.sum,
		doc:    doc,
		pages:  doc.NumPage(),
		named:  make(map[string]document.Location),
		log:    b.log().With("source", source),
	}

	rd, err := reader.Open(path)
	if err == nil {
		var st *structure
		if st, err = newStructure(rd); err == nil {
			h.rd, h.st = rd, st
			h.outline = st.outline()
			if st.pages != h.pages {
				h.log.Warn("page tree disagrees with renderer", "tree", st.pages, "renderer", h.pages)
			}
		} else {
			rd.Close()
		}
	}
	if err != nil {
		h.log.Warn("document structure unavailable, using renderer outline", "error", err)
	}
	if len(h.outline) == 0 {
		h.outline = tocOutline(doc)
	}

	h.log.Info("document opened", "pages", h.pages, "outline", document.CountNodes(h.outline), "structure", h.st != nil)
	return h, nil
}

// Handle is an open PDF. Renders may run concurrently; MuPDF serialises
// them internally.
type Handle struct {
	source string
	path   string
	temp   bool
	sum    string
	pages  int
	log    *slog.Logger

	mu     sync.RWMutex
	closed bool
	doc    *fitz.Document

	// stMu guards rd, st and named: the tabula reader is not safe for
	// concurrent use.
	stMu    sync.Mutex
	rd      *reader.Reader
	st      *structure
	named   map[string]document.Location
	outline []document.OutlineNode
}

func (h *Handle) PageCount() int                  { return h.pages }
func (h *Handle) Outline() []document.OutlineNode { return h.outline }

// Fingerprint identifies the content of a downloaded document. Local files
// report nothing and are identified by path, size and modification time.
func (h *Handle) Fingerprint() string {
	if h.sum == "" {
		return ""
	}
	return h.source + "@sha256:" + h.sum
}

// PageSize reports the page box in points, honouring /Rotate.
func (h *Handle) PageSize(ctx context.Context, index int) (float64, float64, error) {
	if err := h.check(ctx, index); err != nil {
		return 0, 0, err
	}

	h.stMu.Lock()
	w, ht, ok := h.structureSize(index)
	h.stMu.Unlock()
	if ok {
		return w, ht, nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0, 0, document.ErrClosed
	}
	r, err := h.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("page %d bounds: %w", index, err)
	}
	return float64(r.Dx()), float64(r.Dy()), nil
}

// structureSize reads the media box through tabula. Caller holds stMu.
func (h *Handle) structureSize(index int) (float64, float64, bool) {
	if h.rd == nil {
		return 0, 0, false
	}
	p, err := h.rd.GetPage(index)
	if err != nil {
		return 0, 0, false
	}
	w, err := p.Width()
	if err != nil {
		return 0, 0, false
	}
	ht, err := p.Height()
	if err != nil || w <= 0 || ht <= 0 {
		return 0, 0, false
	}
	if rot := p.Rotate() % 180; rot == 90 || rot == -90 {
		w, ht = ht, w
	}
	return w, ht, true
}

// RenderPage rasterises page index at scale, where 1.0 is 72 DPI.
func (h *Handle) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	if err := h.check(ctx, index); err != nil {
		return nil, &document.RenderError{Index: index, Err: err}
	}
	if scale <= 0 {
		scale = 1
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, &document.RenderError{Index: index, Err: document.ErrClosed}
	}
	img, err := h.doc.ImageDPI(index, 72*scale)
	if err != nil {
		return nil, &document.RenderError{Index: index, Err: err}
	}
	return img, nil
}

func (h *Handle) ResolveNamedDestination(ctx context.Context, name string) (document.Location, error) {
	if err := ctx.Err(); err != nil {
		return document.Location{}, err
	}
	h.stMu.Lock()
	defer h.stMu.Unlock()

	if loc, ok := h.named[name]; ok {
		return loc, nil
	}
	if h.st == nil {
		return document.Location{}, fmt.Errorf("%w: %q (no destination table)", document.ErrUnknownDestination, name)
	}
	loc, err := h.st.named(name)
	if err != nil {
		return document.Location{}, err
	}
	h.named[name] = loc
	return loc, nil
}

func (h *Handle) LocationToPageIndex(ctx context.Context, loc document.Location) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	idx := loc.Index
	if !loc.Ref.IsZero() {
		h.stMu.Lock()
		var ok bool
		if h.st != nil {
			idx, ok = h.st.pageIndex(loc.Ref)
		}
		h.stMu.Unlock()
		if !ok {
			return 0, fmt.Errorf("%w: object %d", document.ErrDetachedLocation, loc.Ref.Object)
		}
	}
	if idx < 0 {
		return 0, document.ErrDetachedLocation
	}
	if idx >= h.pages {
		return 0, fmt.Errorf("%w: %d of %d", document.ErrPageOutOfRange, idx, h.pages)
	}
	return idx, nil
}

// Close releases MuPDF and the structure reader and removes a downloaded
// file. It waits for renders in flight.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	err := h.doc.Close()
	h.mu.Unlock()

	h.stMu.Lock()
	if h.rd != nil {
		h.rd.Close()
		h.rd, h.st = nil, nil
	}
	h.stMu.Unlock()

	if h.temp {
		os.Remove(h.path)
	}
	h.log.Info("document closed")
	return err
}

func (h *Handle) check(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return document.ErrClosed
	}
	if index < 0 || index >= h.pages {
		return fmt.Errorf("%w: %d of %d", document.ErrPageOutOfRange, index, h.pages)
	}
	return nil
}

// tocOutline rebuilds a tree from MuPDF's flat, level-numbered table of
// contents. Its destinations are already page indexes.
func tocOutline(doc *fitz.Document) []document.OutlineNode {
	toc, err := doc.ToC()
	if err != nil || len(toc) == 0 {
		return nil
	}
	var roots []document.OutlineNode
	// path[i] is the child list that receives entries at level i+1.
	path := []*[]document.OutlineNode{&roots}
	for _, e := range toc {
		lvl := max(e.Level, 1)
		if lvl > len(path) {
			lvl = len(path)
		}
		path = path[:lvl]
		node := document.OutlineNode{Title: e.Title}
		if e.Page >= 0 {
			node.Dest = document.At(e.Page)
		}
		list := path[lvl-1]
		*list = append(*list, node)
		path = append(path, &(*list)[len(*list)-1].Children)
	}
	return roots
}
