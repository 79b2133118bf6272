package app

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/flipbook/pkg/document"
	"gitlab.com/tinyland/lab/flipbook/pkg/document/mock"
)

func TestTickCmdNonNil(t *testing.T) {
	if TickCmd(time.Second) == nil {
		t.Fatal("TickCmd returned nil")
	}
}

func TestOpenDocumentCmd(t *testing.T) {
	b := &mock.Backend{Pages: 4, Width: 70, Height: 100}
	msg := OpenDocumentCmd(context.Background(), b, "deck.pdf", 3)()

	ev, ok := msg.(DocumentOpenedEvent)
	if !ok {
		t.Fatalf("expected DocumentOpenedEvent, got %T", msg)
	}
	if ev.Err != nil {
		t.Fatalf("unexpected error: %v", ev.Err)
	}
	if ev.Generation != 3 || ev.Source != "deck.pdf" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Handle.PageCount() != 4 {
		t.Errorf("PageCount = %d", ev.Handle.PageCount())
	}
	if ev.Aspect != 0.7 {
		t.Errorf("Aspect = %v, want 0.7", ev.Aspect)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestOpenDocumentCmdWithError(t *testing.T) {
	boom := errors.New("no such file")
	msg := OpenDocumentCmd(context.Background(), &mock.Backend{FailOpen: boom}, "gone.pdf", 1)()

	ev := msg.(DocumentOpenedEvent)
	var oe *document.OpenError
	if !errors.As(ev.Err, &oe) || !errors.Is(ev.Err, boom) {
		t.Errorf("Err = %v, want *OpenError wrapping cause", ev.Err)
	}
	if ev.Handle != nil {
		t.Error("expected nil handle on failure")
	}
}

func TestDecodePageCmd(t *testing.T) {
	h, _ := (&mock.Backend{Pages: 2, Width: 10, Height: 20}).Open(context.Background(), "x")
	msg := DecodePageCmd(context.Background(), h, 1, 42, 2, 7)()

	ev, ok := msg.(PageDecodedEvent)
	if !ok {
		t.Fatalf("expected PageDecodedEvent, got %T", msg)
	}
	if ev.Err != nil || ev.Bitmap == nil {
		t.Fatalf("decode failed: %v", ev.Err)
	}
	if ev.Index != 1 || ev.Ticket != 42 || ev.Generation != 7 {
		t.Errorf("event = %+v", ev)
	}
	if b := ev.Bitmap.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("bounds = %v", b)
	}
}

type panicHandle struct{ document.Handle }

func (panicHandle) RenderPage(context.Context, int, float64) (image.Image, error) {
	panic("corrupt content stream")
}

func TestDecodePageCmdRecoversPanic(t *testing.T) {
	msg := DecodePageCmd(context.Background(), panicHandle{}, 5, 1, 1, 1)()
	ev := msg.(PageDecodedEvent)
	var re *document.RenderError
	if !errors.As(ev.Err, &re) || re.Index != 5 {
		t.Errorf("Err = %v, want *RenderError for page 5", ev.Err)
	}
}

func TestPlaceholder(t *testing.T) {
	out := Placeholder("Page 3", "decoding", 30, 7)
	lines := strings.Split(out, "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7", len(lines))
	}
	plain := ansi.Strip(out)
	if !strings.Contains(plain, "Page 3") || !strings.Contains(plain, "decoding") {
		t.Errorf("missing text in %q", plain)
	}
	for i, l := range lines {
		if w := ansi.StringWidth(l); w > 30 {
			t.Errorf("line %d width %d exceeds 30", i, w)
		}
	}
}

func TestPlaceholderZeroDimensions(t *testing.T) {
	if Placeholder("x", "", 0, 10) != "" || Placeholder("x", "", 10, 0) != "" {
		t.Error("expected empty output for zero dimensions")
	}
}
