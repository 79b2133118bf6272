package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDestination marks an outline entry without a target.
	ErrNoDestination = errors.New("document: entry has no destination")
	// ErrUnknownDestination is returned when a named destination is absent.
	ErrUnknownDestination = errors.New("document: unknown named destination")
	// ErrDetachedLocation is returned when a location's page is not part of
	// the page tree.
	ErrDetachedLocation = errors.New("document: location does not reference a page")
	// ErrPageOutOfRange is returned for page indexes outside [0, PageCount).
	ErrPageOutOfRange = errors.New("document: page index out of range")
	// ErrClosed is returned by handles after Close.
	ErrClosed = errors.New("document: handle is closed")
)

// OpenError reports that a source could not be opened (unreachable or
// malformed). It is surfaced as a persistent "document unavailable" state.
type OpenError struct {
	Source string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Source, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// RenderError reports that a single page failed to decode.
type RenderError struct {
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Index, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ResolveError reports that a destination could not be mapped to a page.
type ResolveError struct {
	Dest Destination
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve destination %v: %v", e.Dest, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
