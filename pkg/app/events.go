// Package app holds the messages that carry asynchronous results back into
// the Bubble Tea update loop, and the commands that produce them.
//
// Every result is stamped with the document generation it was started
// under. The viewer bumps its generation whenever it opens a document, so
// a result from a previous document can be recognised and dropped.
package app

import (
	"image"
	"time"

	"gitlab.com/tinyland/lab/flipbook/pkg/document"
)

// DocumentOpenedEvent reports the outcome of opening a source. On success
// Aspect is the first page's width/height ratio.
type DocumentOpenedEvent struct {
	Generation uint64
	Source     string
	Handle     document.Handle
	Aspect     float64
	Err        error
	Timestamp  time.Time
}

// PageDecodedEvent carries one page bitmap, or the reason it failed.
type PageDecodedEvent struct {
	Generation uint64
	Index      int
	Ticket     uint64
	Bitmap     image.Image
	Err        error
	Elapsed    time.Duration
}

// DestinationResolvedEvent reports where an outline entry points. Err is
// set when the destination could not be resolved.
type DestinationResolvedEvent struct {
	Generation uint64
	Title      string
	Page       int
	Err        error
}

// TickEvent refreshes time-based parts of the view (the debug footer).
type TickEvent struct {
	Time time.Time
}
