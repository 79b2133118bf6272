package geometry

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeSizeDualHeightLimited(t *testing.T) {
	box := Available(1200, 800, true, DefaultPadding())
	if box.Width != 540 || box.Height != 740 {
		t.Fatalf("available box = %+v, want 540x740", box)
	}

	got := ComputeSize(1200, 800, 0.7, true, DefaultPadding())
	if !near(got.Height, 740) || !near(got.Width, 518) {
		t.Errorf("ComputeSize = %+v, want 518x740", got)
	}
}

func TestComputeSize(t *testing.T) {
	tests := []struct {
		name      string
		w, h, asp float64
		dual      bool
		pad       Padding
		wantW     float64
		wantH     float64
	}{
		{"single height limited", 600, 900, 0.5, false, Padding{}, 450, 900},
		{"single width limited portrait box", 400, 1000, 0.7, false, Padding{}, 400, 400 / 0.7},
		{"dual width limited", 800, 1000, 0.75, true, Padding{}, 400, 400 / 0.75},
		{"landscape page", 1000, 1000, 2, false, Padding{X: 100, Y: 100}, 900, 450},
		{"exact fit", 700, 1000, 0.7, false, Padding{}, 700, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSize(tt.w, tt.h, tt.asp, tt.dual, tt.pad)
			if !near(got.Width, tt.wantW) || !near(got.Height, tt.wantH) {
				t.Errorf("got %+v, want %vx%v", got, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestComputeSizePreservesAspect(t *testing.T) {
	for _, asp := range []float64{0.3, 0.7071, 1, 1.414, 3} {
		for _, dual := range []bool{false, true} {
			got := ComputeSize(1337, 911, asp, dual, DefaultPadding())
			box := Available(1337, 911, dual, DefaultPadding())
			if math.Abs(got.Width/got.Height-asp) > 1e-9 {
				t.Errorf("aspect %v dual=%v: got ratio %v", asp, dual, got.Width/got.Height)
			}
			if got.Width > box.Width+1e-9 || got.Height > box.Height+1e-9 {
				t.Errorf("aspect %v dual=%v: %+v overflows %+v", asp, dual, got, box)
			}
		}
	}
}

func TestComputeSizeDegenerate(t *testing.T) {
	cases := []struct {
		w, h, asp float64
	}{
		{100, 50, 0.7},  // smaller than padding
		{1200, 800, 0},  // no aspect
		{1200, 800, -1}, // nonsense aspect
		{1200, 800, math.NaN()},
	}
	for _, c := range cases {
		if got := ComputeSize(c.w, c.h, c.asp, false, DefaultPadding()); !got.Empty() {
			t.Errorf("ComputeSize(%v, %v, %v) = %+v, want empty", c.w, c.h, c.asp, got)
		}
	}
}

func TestCells(t *testing.T) {
	cols, rows := Cells(Size{Width: 518, Height: 740}, 8, 16)
	if cols != 64 || rows != 46 {
		t.Errorf("Cells = %dx%d, want 64x46", cols, rows)
	}
	if c, r := Cells(Size{Width: 3, Height: 3}, 8, 16); c != 1 || r != 1 {
		t.Errorf("tiny size = %dx%d, want 1x1", c, r)
	}
	if c, r := Cells(Size{}, 8, 16); c != 0 || r != 0 {
		t.Errorf("empty size = %dx%d", c, r)
	}
	if w, h := Pixels(10, 5, 8, 16); w != 80 || h != 80 {
		t.Errorf("Pixels = %vx%v", w, h)
	}
}

func TestAspect(t *testing.T) {
	if a := Aspect(612, 792); !near(a, 612.0/792) {
		t.Errorf("Aspect = %v", a)
	}
	if a := Aspect(1, 0); a != 0 {
		t.Errorf("Aspect(1, 0) = %v", a)
	}
}
