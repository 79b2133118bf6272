// Package pagecache decides which pages hold a decoded bitmap. A page is
// eligible while it lies within Threshold pages of the current page; pages
// that leave that window are evicted at once, so at most 2*Threshold+1
// bitmaps are resident whatever the document length.
//
// Window is not safe for concurrent use. It is owned by the event loop:
// decodes run elsewhere and report back through Complete, which checks
// the request ticket and drops anything that no longer applies.
package pagecache

import (
	"errors"
	"image"
	"io"
	"log/slog"
)

var errNilBitmap = errors.New("pagecache: decoder returned no bitmap")

// DefaultThreshold is the number of pages kept on each side of the
// current page.
const DefaultThreshold = 4

// State is a slot's lifecycle position.
type State int

const (
	Idle State = iota
	Pending
	Resident
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Resident:
		return "resident"
	default:
		return "unknown"
	}
}

// Slot is the cache entry for one page. Bitmap is non-nil iff State is
// Resident.
type Slot struct {
	Index  int
	State  State
	Bitmap image.Image
	Ticket uint64

	// Err is the last decode failure. A failed slot is not requested again
	// until it has left the window and come back.
	Err error
}

// Request asks for page Index to be decoded. Ticket must be passed back
// to Complete unchanged.
type Request struct {
	Index  int
	Ticket uint64
}

// Outcome describes what Complete did with a result.
type Outcome int

const (
	// Applied means the bitmap is now resident.
	Applied Outcome = iota
	// Discarded means the result was stale and dropped.
	Discarded
	// Failed means the decode failed and the slot went back to Idle.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats counts window activity since creation.
type Stats struct {
	Requested int
	Applied   int
	Discarded int
	Failed    int
	Evicted   int
}

// Window tracks the slots of one open document.
type Window struct {
	threshold int
	current   int
	slots     []Slot
	live      map[int]struct{} // indexes whose state is not Idle, or that failed
	ticket    uint64
	stats     Stats
	log       *slog.Logger
}

// New returns a window over pageCount slots, all Idle, positioned at page
// 0. Nothing is requested until the first Sync. A negative threshold is
// treated as zero (only the current page is eligible).
func New(pageCount, threshold int, log *slog.Logger) *Window {
	if pageCount < 0 {
		pageCount = 0
	}
	if threshold < 0 {
		threshold = 0
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := &Window{
		threshold: threshold,
		slots:     make([]Slot, pageCount),
		live:      make(map[int]struct{}),
		log:       log,
	}
	for i := range w.slots {
		w.slots[i].Index = i
	}
	return w
}

// Len returns the number of slots.
func (w *Window) Len() int { return len(w.slots) }

// Threshold returns the window radius.
func (w *Window) Threshold() int { return w.threshold }

// Current returns the page the window is centred on.
func (w *Window) Current() int { return w.current }

// InWindow reports whether page i is eligible for a resident bitmap.
func (w *Window) InWindow(i int) bool {
	if i < 0 || i >= len(w.slots) {
		return false
	}
	d := i - w.current
	if d < 0 {
		d = -d
	}
	return d <= w.threshold
}

// Sync recentres the window on current. Slots that left the window go
// back to Idle and lose their bitmap; an in-flight decode for them is
// left running and its result will be discarded. Idle slots inside the
// window that have not failed get a new ticket and are returned as
// requests, nearest to current first. Calling Sync again with the same
// page returns no requests.
func (w *Window) Sync(current int) []Request {
	if len(w.slots) == 0 {
		return nil
	}
	w.current = min(max(current, 0), len(w.slots)-1)

	evicted := 0
	for i := range w.live {
		if w.InWindow(i) {
			continue
		}
		s := &w.slots[i]
		if s.State != Idle {
			evicted++
		}
		*s = Slot{Index: i}
		delete(w.live, i)
	}
	if evicted > 0 {
		w.stats.Evicted += evicted
		w.log.Debug("evicted pages", "count", evicted, "current", w.current)
	}

	var reqs []Request
	for d := 0; d <= w.threshold; d++ {
		reqs = w.request(reqs, w.current+d)
		if d > 0 {
			reqs = w.request(reqs, w.current-d)
		}
	}
	w.stats.Requested += len(reqs)
	return reqs
}

func (w *Window) request(reqs []Request, i int) []Request {
	if !w.InWindow(i) {
		return reqs
	}
	s := &w.slots[i]
	if s.State != Idle || s.Err != nil {
		return reqs
	}
	w.ticket++
	s.State = Pending
	s.Ticket = w.ticket
	w.live[i] = struct{}{}
	return append(reqs, Request{Index: i, Ticket: w.ticket})
}

// Complete applies a decode result. The result is discarded unless the
// slot is still Pending under the same ticket and still in the window.
// A failure returns the slot to Idle and records err.
func (w *Window) Complete(index int, ticket uint64, bmp image.Image, err error) Outcome {
	if index < 0 || index >= len(w.slots) {
		w.stats.Discarded++
		return Discarded
	}
	s := &w.slots[index]
	if s.State != Pending || s.Ticket != ticket || !w.InWindow(index) {
		w.stats.Discarded++
		w.log.Debug("discarded stale decode", "page", index, "ticket", ticket)
		return Discarded
	}
	if err == nil && bmp == nil {
		err = errNilBitmap
	}
	if err != nil {
		*s = Slot{Index: index, Err: err}
		w.stats.Failed++
		w.log.Warn("page decode failed", "page", index, "error", err)
		return Failed
	}
	s.State = Resident
	s.Bitmap = bmp
	w.stats.Applied++
	return Applied
}

// Slot returns a copy of slot i. Out of range indexes yield an Idle slot.
func (w *Window) Slot(i int) Slot {
	if i < 0 || i >= len(w.slots) {
		return Slot{Index: i}
	}
	return w.slots[i]
}

// Resident reports whether page i has a bitmap.
func (w *Window) Resident(i int) bool {
	return w.Slot(i).State == Resident
}

// Bitmap returns page i's bitmap, or nil.
func (w *Window) Bitmap(i int) image.Image {
	return w.Slot(i).Bitmap
}

// ResidentCount returns the number of pages holding a bitmap.
func (w *Window) ResidentCount() int { return w.count(Resident) }

// PendingCount returns the number of decodes awaited.
func (w *Window) PendingCount() int { return w.count(Pending) }

func (w *Window) count(st State) int {
	n := 0
	for i := range w.live {
		if w.slots[i].State == st {
			n++
		}
	}
	return n
}

// Stats returns the activity counters.
func (w *Window) Stats() Stats { return w.stats }
