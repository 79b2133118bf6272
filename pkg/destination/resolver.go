// Package destination maps outline entries to zero-based page indexes.
package destination

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/flipbook/pkg/app"
	"gitlab.com/tinyland/lab/flipbook/pkg/document"
)

// Resolver resolves destinations against one open document.
type Resolver struct {
	h   document.Handle
	gen uint64
	log *slog.Logger
}

// New returns a resolver for h. gen is stamped on every event so results
// for a replaced document can be dropped.
func New(h document.Handle, gen uint64, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{h: h, gen: gen, log: log}
}

// Resolve returns the page index dest points at. Named destinations are
// looked up first and then mapped like any explicit location. Failures
// are returned as *document.ResolveError.
func (r *Resolver) Resolve(ctx context.Context, dest document.Destination) (int, error) {
	var loc document.Location
	switch d := dest.(type) {
	case nil:
		return 0, &document.ResolveError{Err: document.ErrNoDestination}
	case document.Named:
		l, err := r.h.ResolveNamedDestination(ctx, string(d))
		if err != nil {
			return 0, &document.ResolveError{Dest: dest, Err: err}
		}
		loc = l
	case document.Location:
		loc = d
	default:
		return 0, &document.ResolveError{Dest: dest, Err: fmt.Errorf("unsupported destination %T", dest)}
	}

	idx, err := r.h.LocationToPageIndex(ctx, loc)
	if err != nil {
		return 0, &document.ResolveError{Dest: dest, Err: err}
	}
	if idx < 0 || idx >= r.h.PageCount() {
		return 0, &document.ResolveError{Dest: dest, Err: fmt.Errorf("%w: %d", document.ErrPageOutOfRange, idx)}
	}
	return idx, nil
}

// ResolveCmd resolves node's destination in the background. Entries
// without a destination only group their children, so the result is a
// nil command.
func (r *Resolver) ResolveCmd(ctx context.Context, node document.OutlineNode) tea.Cmd {
	if node.Dest == nil {
		return nil
	}
	return func() tea.Msg {
		idx, err := r.Resolve(ctx, node.Dest)
		if err != nil {
			r.log.Debug("destination not resolved", "title", node.Title, "error", err)
		}
		return app.DestinationResolvedEvent{
			Generation: r.gen,
			Title:      node.Title,
			Page:       idx,
			Err:        err,
		}
	}
}
