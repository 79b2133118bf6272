// Package nav owns the current page. Every navigation intent goes through
// a Controller, which answers with the command the flip widget should
// carry out and keeps the loading flag raised until the landing page has
// a bitmap.
package nav

import (
	"strconv"
	"strings"
)

// Action is what the flip widget is asked to do.
type Action int

const (
	None Action = iota
	TurnTo
	FlipNext
	FlipPrev
)

func (a Action) String() string {
	switch a {
	case TurnTo:
		return "turn-to"
	case FlipNext:
		return "flip-next"
	case FlipPrev:
		return "flip-prev"
	default:
		return "none"
	}
}

// Intent is a command for the flip widget. Page is set for TurnTo.
type Intent struct {
	Action Action
	Page   int
}

// State is a snapshot of the navigation state.
type State struct {
	Current   int
	PageCount int
	Loading   bool
	Flipping  bool
}

// Controller is the single writer of the current page. It is driven from
// the event loop and is not safe for concurrent use.
type Controller struct {
	st       State
	resident func(int) bool
}

// New returns a controller on page 0 of a pageCount page document.
// resident reports whether a page currently has a bitmap; nil means never.
func New(pageCount int, resident func(int) bool) *Controller {
	if resident == nil {
		resident = func(int) bool { return false }
	}
	return &Controller{st: State{PageCount: max(pageCount, 0)}, resident: resident}
}

// State returns the current snapshot.
func (c *Controller) State() State { return c.st }

// Current returns the zero-based current page.
func (c *Controller) Current() int { return c.st.Current }

func (c *Controller) CanFirst() bool    { return !c.st.Flipping && c.st.Current > 0 }
func (c *Controller) CanPrevious() bool { return c.CanFirst() }
func (c *Controller) CanNext() bool     { return !c.st.Flipping && c.st.Current < c.st.PageCount-1 }
func (c *Controller) CanLast() bool     { return c.CanNext() }

// CanGoto reports whether the one-based page number may be jumped to.
func (c *Controller) CanGoto(pageNumber int) bool {
	return !c.st.Flipping && pageNumber >= 1 && pageNumber <= c.st.PageCount
}

// ParseGoto parses user input as a one-based page number. ok is false
// when the text is not a number or CanGoto rejects it.
func (c *Controller) ParseGoto(text string) (pageNumber int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return n, c.CanGoto(n)
}

// First jumps to the first page.
func (c *Controller) First() Intent {
	if !c.CanFirst() {
		return Intent{}
	}
	return c.jump(0)
}

// Last jumps to the last page.
func (c *Controller) Last() Intent {
	if !c.CanLast() {
		return Intent{}
	}
	return c.jump(c.st.PageCount - 1)
}

// Next asks the widget to flip forward. The current page is updated when
// the widget reports the flip through OnFlip.
func (c *Controller) Next() Intent {
	if !c.CanNext() {
		return Intent{}
	}
	return Intent{Action: FlipNext}
}

// Previous asks the widget to flip back.
func (c *Controller) Previous() Intent {
	if !c.CanPrevious() {
		return Intent{}
	}
	return Intent{Action: FlipPrev}
}

// Goto jumps to a one-based page number. Out of range input is a no-op.
func (c *Controller) Goto(pageNumber int) Intent {
	if !c.CanGoto(pageNumber) {
		return Intent{}
	}
	return c.jump(pageNumber - 1)
}

// NavigateTo jumps to a resolved outline destination. Resolutions finish
// asynchronously, so this is accepted even mid-flip; only the range is
// checked.
func (c *Controller) NavigateTo(index int) Intent {
	if index < 0 || index >= c.st.PageCount {
		return Intent{}
	}
	return c.jump(index)
}

func (c *Controller) jump(target int) Intent {
	if target != c.st.Current && !c.resident(target) {
		c.st.Loading = true
	}
	c.st.Current = target
	if c.resident(target) {
		c.st.Loading = false
	}
	return Intent{Action: TurnTo, Page: target}
}

// OnFlip records the page the widget settled on. It reports whether the
// current page changed.
func (c *Controller) OnFlip(page int) bool {
	if c.st.PageCount == 0 {
		return false
	}
	page = min(max(page, 0), c.st.PageCount-1)
	changed := page != c.st.Current
	c.st.Current = page
	if c.st.Loading && c.resident(page) {
		c.st.Loading = false
	}
	return changed
}

// OnChangeState records whether the widget is animating.
func (c *Controller) OnChangeState(flipping bool) {
	c.st.Flipping = flipping
}

// SlotResident is called when a page's bitmap lands. Loading clears only
// for the current page.
func (c *Controller) SlotResident(index int) {
	if index == c.st.Current {
		c.st.Loading = false
	}
}
