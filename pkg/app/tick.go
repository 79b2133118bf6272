package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/flipbook/pkg/document"
	"gitlab.com/tinyland/lab/flipbook/pkg/geometry"
)

// TickCmd sends a TickEvent after d.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickEvent{Time: t}
	})
}

// OpenDocumentCmd opens source in a goroutine and reports the handle with
// the first page's aspect ratio. A document whose first page size cannot
// be read is still usable; Aspect is left zero and the viewer falls back
// to a default.
func OpenDocumentCmd(ctx context.Context, b document.Backend, source string, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ev := DocumentOpenedEvent{Generation: gen, Source: source}
		h, err := b.Open(ctx, source)
		if err != nil {
			ev.Err = err
			ev.Timestamp = time.Now()
			return ev
		}
		ev.Handle = h
		if h.PageCount() > 0 {
			if w, ht, err := h.PageSize(ctx, 0); err == nil {
				ev.Aspect = geometry.Aspect(w, ht)
			}
		}
		ev.Timestamp = time.Now()
		return ev
	}
}

// DecodePageCmd renders one page. Panics inside a backend are turned into
// a render error so a bad page cannot take the program down.
func DecodePageCmd(ctx context.Context, h document.Handle, index int, ticket uint64, scale float64, gen uint64) tea.Cmd {
	return func() (msg tea.Msg) {
		start := time.Now()
		ev := PageDecodedEvent{Generation: gen, Index: index, Ticket: ticket}
		defer func() {
			if r := recover(); r != nil {
				ev.Bitmap = nil
				ev.Err = &document.RenderError{Index: index, Err: fmt.Errorf("backend panic: %v", r)}
				ev.Elapsed = time.Since(start)
				msg = ev
			}
		}()
		ev.Bitmap, ev.Err = h.RenderPage(ctx, index, scale)
		ev.Elapsed = time.Since(start)
		return ev
	}
}
