// Package document defines the contract between the flipbook core and a
// document decode backend: the opened-document handle, the outline tree,
// destinations, and the error taxonomy shared by every backend.
//
// A Handle is owned by exactly one viewer. It is created by Backend.Open,
// replaced wholesale when the source changes, and closed on teardown.
package document

import (
	"context"
	"image"
)

// Backend opens documents from a source identifier (a path or URL).
type Backend interface {
	// Open loads the document and returns a handle. Failures are reported
	// as *OpenError.
	Open(ctx context.Context, source string) (Handle, error)
}

// Handle is an opened document. Implementations must be safe for
// concurrent use: decodes for different pages run in parallel goroutines.
type Handle interface {
	// PageCount returns the number of pages (>= 0).
	PageCount() int

	// Outline returns the table of contents. The tree is immutable once
	// loaded; callers must not modify it.
	Outline() []OutlineNode

	// PageSize returns the intrinsic size of a page in points.
	PageSize(ctx context.Context, index int) (width, height float64, err error)

	// RenderPage decodes page index (zero-based) at the given scale, where
	// 1.0 is 72 DPI. Failures are reported as *RenderError.
	RenderPage(ctx context.Context, index int, scale float64) (image.Image, error)

	// ResolveNamedDestination looks up a named destination.
	ResolveNamedDestination(ctx context.Context, name string) (Location, error)

	// LocationToPageIndex maps a location's target page to a zero-based index.
	LocationToPageIndex(ctx context.Context, loc Location) (int, error)

	// Close releases backend resources. Further calls fail with ErrClosed.
	Close() error
}

// Fingerprinter is implemented by handles that know the exact content they
// were opened from, such as a downloaded copy of a remote document. An
// empty fingerprint means unknown.
type Fingerprinter interface {
	Fingerprint() string
}

// OutlineNode is one entry of the table of contents. Dest is nil for
// entries that only group children.
type OutlineNode struct {
	Title    string
	Dest     Destination
	Children []OutlineNode
}

// Destination is the target of an outline entry: either a Named reference
// or an already-resolved Location. The marker method seals the set.
type Destination interface {
	destination()
}

// Named is a destination referenced by name, resolved through the
// document's name tree.
type Named string

func (Named) destination() {}

// PageRef identifies a page object inside the document (object number and
// generation for PDF).
type PageRef struct {
	Object     int
	Generation int
}

// IsZero reports whether the reference is unset.
func (r PageRef) IsZero() bool {
	return r.Object == 0 && r.Generation == 0
}

// Location is an explicit destination. When Ref is set it names the target
// page object; otherwise Index carries a page index the backend already
// resolved (negative means unknown).
type Location struct {
	Ref   PageRef
	Index int
	// Fit is the view mode name ("XYZ", "Fit", ...) and Params its operands.
	Fit    string
	Params []float64
}

func (Location) destination() {}

// At returns a Location that is already resolved to a page index.
func At(index int) Location {
	return Location{Index: index}
}

// ForRef returns a Location pointing at a page object that still needs a
// page-index lookup.
func ForRef(ref PageRef) Location {
	return Location{Ref: ref, Index: -1}
}

// Walk visits nodes depth-first in document order. depth is 0 for the
// roots. Returning false from fn skips that node's children.
func Walk(nodes []OutlineNode, fn func(node *OutlineNode, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []OutlineNode, depth int, fn func(*OutlineNode, int) bool) {
	for i := range nodes {
		if fn(&nodes[i], depth) {
			walk(nodes[i].Children, depth+1, fn)
		}
	}
}

// CountNodes returns the total number of nodes in the tree.
func CountNodes(nodes []OutlineNode) int {
	n := 0
	Walk(nodes, func(*OutlineNode, int) bool {
		n++
		return true
	})
	return n
}
