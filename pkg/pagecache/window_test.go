package pagecache

import (
	"errors"
	"image"
	"math/rand"
	"testing"
)

func bitmap() image.Image { return image.NewRGBA(image.Rect(0, 0, 2, 2)) }

// completeAll resolves every request successfully.
func completeAll(t *testing.T, w *Window, reqs []Request) {
	t.Helper()
	for _, r := range reqs {
		if got := w.Complete(r.Index, r.Ticket, bitmap(), nil); got != Applied {
			t.Fatalf("Complete(%d) = %v, want applied", r.Index, got)
		}
	}
}

func indexes(reqs []Request) []int {
	out := make([]int, len(reqs))
	for i, r := range reqs {
		out[i] = r.Index
	}
	return out
}

func TestInitialSyncRequestsWindowNearestFirst(t *testing.T) {
	w := New(10, DefaultThreshold, nil)
	got := indexes(w.Sync(0))
	want := []int{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("requests = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("requests = %v, want %v", got, want)
		}
	}

	w2 := New(20, 2, nil)
	got = indexes(w2.Sync(10))
	want = []int{10, 11, 9, 12, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("centred requests = %v, want %v", got, want)
		}
	}
}

func TestInWindow(t *testing.T) {
	w := New(10, 4, nil)
	w.Sync(5)
	for i, want := range []bool{false, true, true, true, true, true, true, true, true, true} {
		if w.InWindow(i) != want {
			t.Errorf("InWindow(%d) = %v, want %v", i, !want, want)
		}
	}
	if w.InWindow(-1) || w.InWindow(10) {
		t.Error("out of range index reported in window")
	}
}

func TestResyncIsIdempotent(t *testing.T) {
	w := New(30, 4, nil)
	completeAll(t, w, w.Sync(10))

	if reqs := w.Sync(10); len(reqs) != 0 {
		t.Errorf("second Sync issued %v", indexes(reqs))
	}
	// Oscillating by one page only requests the newly exposed edge.
	if got := indexes(w.Sync(11)); len(got) != 1 || got[0] != 15 {
		t.Errorf("Sync(11) requests %v, want [15]", got)
	}
	if got := indexes(w.Sync(10)); len(got) != 1 || got[0] != 6 {
		t.Errorf("Sync(10) requests %v, want [6] after page 6 was evicted", got)
	}
}

func TestPendingSlotsAreNotRequestedTwice(t *testing.T) {
	w := New(10, 4, nil)
	first := w.Sync(0)
	if again := w.Sync(1); len(again) != 1 || again[0].Index != 5 {
		t.Errorf("Sync(1) while pending = %v, want only page 5", indexes(again))
	}
	if w.PendingCount() != len(first)+1 {
		t.Errorf("pending = %d", w.PendingCount())
	}
}

func TestEvictionDiscardsLateResult(t *testing.T) {
	w := New(40, 4, nil)
	reqs := w.Sync(0)
	completeAll(t, w, reqs[:1]) // only page 0 lands

	// Jump far away: pages 0..4 leave the window while 1..4 are in flight.
	w.Sync(30)
	if w.Resident(0) || w.Slot(0).Bitmap != nil {
		t.Error("page 0 still resident after leaving the window")
	}
	for _, r := range reqs[1:] {
		if got := w.Complete(r.Index, r.Ticket, bitmap(), nil); got != Discarded {
			t.Errorf("late result for page %d = %v, want discarded", r.Index, got)
		}
		if w.Slot(r.Index).State != Idle {
			t.Errorf("page %d resurrected to %v", r.Index, w.Slot(r.Index).State)
		}
	}
	if st := w.Stats(); st.Evicted != 5 || st.Discarded != 4 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStaleTicketAfterReentryIsDiscarded(t *testing.T) {
	w := New(40, 4, nil)
	old := w.Sync(0)[0] // page 0
	w.Sync(20)
	fresh := w.Sync(0)[0]
	if fresh.Index != 0 || fresh.Ticket == old.Ticket {
		t.Fatalf("re-entry request = %+v, old %+v", fresh, old)
	}
	if got := w.Complete(0, old.Ticket, bitmap(), nil); got != Discarded {
		t.Errorf("old ticket = %v, want discarded", got)
	}
	if got := w.Complete(0, fresh.Ticket, bitmap(), nil); got != Applied {
		t.Errorf("fresh ticket = %v, want applied", got)
	}
}

func TestFailureIsNotRetriedUntilReentry(t *testing.T) {
	w := New(20, 2, nil)
	boom := errors.New("bad xref")
	reqs := w.Sync(0)
	if got := w.Complete(reqs[0].Index, reqs[0].Ticket, nil, boom); got != Failed {
		t.Fatalf("Complete with error = %v", got)
	}
	s := w.Slot(0)
	if s.State != Idle || s.Bitmap != nil || !errors.Is(s.Err, boom) {
		t.Errorf("failed slot = %+v", s)
	}
	if again := w.Sync(0); len(again) != 0 {
		t.Errorf("failed page re-requested: %v", indexes(again))
	}
	if again := w.Sync(1); len(again) != 1 || again[0].Index != 3 {
		t.Errorf("Sync(1) = %v, want [3]", indexes(again))
	}

	w.Sync(10)
	if w.Slot(0).Err != nil {
		t.Error("failure survived eviction")
	}
	if got := indexes(w.Sync(0)); len(got) == 0 || got[0] != 0 {
		t.Errorf("re-entry requests = %v, want page 0 first", got)
	}
}

func TestNilBitmapCountsAsFailure(t *testing.T) {
	w := New(1, 0, nil)
	r := w.Sync(0)[0]
	if got := w.Complete(r.Index, r.Ticket, nil, nil); got != Failed {
		t.Errorf("nil bitmap = %v, want failed", got)
	}
}

func TestCompleteOutOfRange(t *testing.T) {
	w := New(3, 1, nil)
	if got := w.Complete(7, 1, bitmap(), nil); got != Discarded {
		t.Errorf("out of range = %v", got)
	}
}

func TestSyncClampsCurrent(t *testing.T) {
	w := New(5, 1, nil)
	w.Sync(99)
	if w.Current() != 4 {
		t.Errorf("Current = %d, want 4", w.Current())
	}
	w.Sync(-3)
	if w.Current() != 0 {
		t.Errorf("Current = %d, want 0", w.Current())
	}
}

func TestEmptyDocument(t *testing.T) {
	w := New(0, 4, nil)
	if reqs := w.Sync(0); reqs != nil {
		t.Errorf("Sync on empty = %v", reqs)
	}
	if w.Resident(0) {
		t.Error("empty document has a resident page")
	}
}

func TestTenPageJumpToEnd(t *testing.T) {
	w := New(10, 4, nil)
	completeAll(t, w, w.Sync(0))
	for i := 0; i <= 4; i++ {
		if !w.Resident(i) {
			t.Fatalf("page %d not resident at start", i)
		}
	}

	reqs := w.Sync(9)
	for i := 0; i < 5; i++ {
		if w.Slot(i).State != Idle {
			t.Errorf("page %d = %v after jump, want idle", i, w.Slot(i).State)
		}
	}
	got := indexes(reqs)
	want := []int{9, 8, 7, 6, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("requests = %v, want %v", got, want)
		}
	}
	completeAll(t, w, reqs)
	if w.ResidentCount() != 5 {
		t.Errorf("resident = %d, want 5", w.ResidentCount())
	}
}

// TestResidentSetMatchesWindow drives random navigation with results
// arriving in random order and checks the memory bound after every step.
func TestResidentSetMatchesWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const pages = 60
	w := New(pages, 4, nil)
	var inflight []Request

	for step := 0; step < 2000; step++ {
		switch rng.Intn(3) {
		case 0:
			inflight = append(inflight, w.Sync(rng.Intn(pages))...)
		case 1:
			cur := w.Current() + rng.Intn(5) - 2
			inflight = append(inflight, w.Sync(cur)...)
		default:
			if len(inflight) == 0 {
				continue
			}
			k := rng.Intn(len(inflight))
			r := inflight[k]
			inflight = append(inflight[:k], inflight[k+1:]...)
			var err error
			if rng.Intn(10) == 0 {
				err = errors.New("flaky")
			}
			w.Complete(r.Index, r.Ticket, bitmap(), err)
		}

		n := 0
		for i := 0; i < pages; i++ {
			s := w.Slot(i)
			if s.State == Resident {
				n++
				if !w.InWindow(i) {
					t.Fatalf("step %d: page %d resident outside window around %d", step, i, w.Current())
				}
				if s.Bitmap == nil {
					t.Fatalf("step %d: resident page %d has no bitmap", step, i)
				}
			} else if s.Bitmap != nil {
				t.Fatalf("step %d: %v page %d holds a bitmap", step, s.State, i)
			}
		}
		if n > 9 {
			t.Fatalf("step %d: %d resident pages", step, n)
		}
		if n != w.ResidentCount() {
			t.Fatalf("step %d: ResidentCount %d, counted %d", step, w.ResidentCount(), n)
		}
	}
}
