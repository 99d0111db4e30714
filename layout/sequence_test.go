package layout

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSequenceKeepsDenseOrder(t *testing.T) {
	changes := 0
	s := newSequence(func() { changes++ })
	a, b, c := text("a", 1), text("b", 1), text("c", 1)
	s.Append(a)
	s.Append(c)
	if err := s.Insert(b, 1); err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if s.Len() != 3 || s.At(0) != a || s.At(1) != b || s.At(2) != c {
		t.Fatalf("order mismatch: %v", s.Elements())
	}
	if err := s.Insert(text("d", 1), 3); err != nil {
		t.Fatalf("insert at Len() must be allowed: %v", err)
	}
	if err := s.Insert(text("e", 1), 9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := s.RemoveAt(0); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if s.At(0) != b || s.At(1) != c {
		t.Fatalf("relative order must be preserved after removal")
	}
	if !s.Remove(c) || s.Len() != 2 {
		t.Fatalf("identity removal failed")
	}
	if changes != 6 {
		t.Fatalf("expected 6 change notifications, got %d", changes)
	}
	if s.At(-1) != nil || s.At(5) != nil {
		t.Fatalf("out of range At must return nil")
	}
}

func TestElementsReturnsCopy(t *testing.T) {
	s := newSequence(nil)
	s.Append(text("a", 1))
	got := s.Elements()
	got[0] = nil
	if s.At(0) == nil {
		t.Fatalf("Elements must not expose internal storage")
	}
}

func TestHandleReleaseCallback(t *testing.T) {
	calls := 0
	h := NewHandle(Rect{Width: 1}, func() { calls++ })
	h.Retain()
	if h.Release() {
		t.Fatalf("first release is not the last one")
	}
	if !h.Release() || calls != 1 {
		t.Fatalf("last release must run the callback once, calls=%d", calls)
	}
	if h.Content() != nil {
		t.Fatalf("released handle must not expose content")
	}
	var nilHandle *Handle
	if nilHandle.Release() || nilHandle.Refs() != 0 || nilHandle.Content() != nil {
		t.Fatalf("nil handle must be inert")
	}
}

func TestCustomElementReleasesOnce(t *testing.T) {
	h := NewHandle(Rect{}, nil)
	el := NewCustom(0, White, 255, h)
	el.release()
	el.release()
	if h.Refs() != 1 {
		t.Fatalf("double release must be ignored, refs=%d", h.Refs())
	}
}

func TestElementAccessors(t *testing.T) {
	el := NewText(4, Color{R: 10, G: 20, B: 30}, 99, "hi", "fonts/a.ttf", 12, 2, true)
	if el.Tag() != 4 || el.Color() != (Color{R: 10, G: 20, B: 30}) || el.Opacity() != 99 {
		t.Fatalf("base fields mismatch")
	}
	if el.Text() != "hi" || el.Font() != "fonts/a.ttf" || el.FontSize() != 12 || el.Outline() != 2 || !el.Underline() {
		t.Fatalf("text fields mismatch")
	}
	img := NewImage(1, White, 255, "a.png")
	if img.Path() != "a.png" {
		t.Fatalf("image path mismatch")
	}
}

func TestWriteDebugJSON(t *testing.T) {
	rt := newRichText(t, &stubText{perRune: 10}, nil)
	rt.IgnoreContentAdaptWithSize(true)
	rt.PushBackElement(NewText(2, White, 255, "hey", "Helvetica", 10, 0, false))
	if err := rt.RequestLayout(); err != nil {
		t.Fatalf("layout error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "frame.json")
	if err := WriteDebugJSON(rt.Frame(), path); err != nil {
		t.Fatalf("write error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(f.Nodes) != 1 || f.Nodes[0].Text != "hey" || f.Nodes[0].Tag != 2 || f.Nodes[0].Width != 30 {
		t.Fatalf("unexpected debug frame: %+v", f)
	}
}

func TestSubstringByCodepoints(t *testing.T) {
	cases := []struct {
		s        string
		start, n int
		want     string
	}{
		{"abcdef", 0, 3, "abc"},
		{"abcdef", 3, 3, "def"},
		{"abcdef", 4, 10, "ef"},
		{"abcdef", 6, 1, ""},
		{"héllo", 1, 2, "él"},
		{"你好世界", 2, 2, "世界"},
		{"abc", -1, 2, "a"},
		{"", 0, 1, ""},
	}
	for _, c := range cases {
		if got := SubstringByCodepoints(c.s, c.start, c.n); got != c.want {
			t.Fatalf("SubstringByCodepoints(%q, %d, %d) = %q, want %q", c.s, c.start, c.n, got, c.want)
		}
	}
	if CodepointCount("你好a") != 3 {
		t.Fatalf("codepoint count mismatch")
	}
}
