package layout

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// stubText 是测试用的文本后端：每个码点固定宽度，高度等于字号。
type stubText struct {
	perRune float64
	calls   []string
	fonts   []FontRef
	failOn  string
}

type stubLabel struct {
	text string
	size Size
}

func (l stubLabel) ContentSize() Size { return l.size }

func (s *stubText) RenderText(text string, font FontRef, size float64, outline int) (Renderable, error) {
	s.calls = append(s.calls, text)
	s.fonts = append(s.fonts, font)
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("stub: 字体不可用")
	}
	w := float64(CodepointCount(text))*s.perRune + float64(2*outline)
	return stubLabel{text: text, size: Size{Width: w, Height: size + float64(2*outline)}}, nil
}

// stubImages 按路径返回固定尺寸，未登记的路径视为无法解析。
type stubImages map[string]Size

func (s stubImages) RenderImage(path string) (Renderable, error) {
	size, ok := s[path]
	if !ok {
		return nil, errors.New("stub: 图片不存在")
	}
	return Rect{Width: size.Width, Height: size.Height}, nil
}

func newEngine(t *testing.T, text *stubText, images ImageRenderer) *Engine {
	t.Helper()
	e, err := NewEngine(Options{Text: text, Images: images, FileExists: func(string) bool { return false }})
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	return e
}

func text(s string, size float64) *TextElement {
	return NewText(0, White, 255, s, "Helvetica", size, 0, false)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewEngineRequiresTextRenderer(t *testing.T) {
	if _, err := NewEngine(Options{}); !errors.Is(err, ErrNoTextRenderer) {
		t.Fatalf("expected ErrNoTextRenderer, got %v", err)
	}
}

func TestEmptySequenceFixedBox(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	p, err := e.Layout(nil, Constraints{Width: 200}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(p.Nodes))
	}
	if p.Size.Height != 0 {
		t.Fatalf("expected zero height, got %g", p.Size.Height)
	}
	for _, row := range p.Rows {
		if len(row.Nodes) != 0 {
			t.Fatalf("expected only empty rows, got %d nodes", len(row.Nodes))
		}
	}
}

func TestEmptySequenceKeepsCustomHeight(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	p, err := e.Layout(nil, Constraints{Width: 200, Height: 80}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if p.Size.Height != 80 {
		t.Fatalf("expected height 80, got %g", p.Size.Height)
	}
}

func TestSingleTextFitsInOneRow(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 25}, nil)
	p, err := e.Layout([]Element{text("Hi", 12)}, Constraints{Width: 200}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Rows) != 1 || len(p.Rows[0].Nodes) != 1 {
		t.Fatalf("expected one row with one node, got %+v", p.Rows)
	}
	n := p.Nodes[0]
	if n.Position.X != 0 || n.Size().Width != 50 {
		t.Fatalf("unexpected node: x=%g w=%g", n.Position.X, n.Size().Width)
	}
}

// 250 宽的文本放进 200 宽的盒子：溢出 20%，10 个码点中 8 个留在第一行。
func TestTextSplitByOverstep(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 25}, nil)
	p, err := e.Layout([]Element{text("abcdefghij", 12)}, Constraints{Width: 200}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(p.Rows))
	}
	if got := p.Rows[0].Nodes[0].Text; got != "abcdefgh" {
		t.Fatalf("first row text mismatch: %q", got)
	}
	if got := p.Rows[1].Nodes[0].Text; got != "ij" {
		t.Fatalf("second row text mismatch: %q", got)
	}
}

func TestTextSplitRecursesOverSeveralRows(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	p, err := e.Layout([]Element{text(strings.Repeat("x", 40), 10)}, Constraints{Width: 100}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	var got []int
	for _, row := range p.Rows {
		for _, n := range row.Nodes {
			got = append(got, CodepointCount(n.Text))
		}
	}
	want := []int{10, 10, 10, 10}
	if len(got) != len(want) {
		t.Fatalf("split mismatch: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("split mismatch: got=%v want=%v", got, want)
		}
	}
}

// 当前行已满（剩余宽度 <= 0）时，文本整体另起一行，不产生空的左半节点。
func TestTextStartsNewRowWhenNoSpaceLeft(t *testing.T) {
	st := &stubText{perRune: 10}
	e := newEngine(t, st, nil)
	elems := []Element{text("0123456789", 10), text("abc", 10)}
	p, err := e.Layout(elems, Constraints{Width: 100}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(p.Rows))
	}
	if len(p.Rows[0].Nodes) != 1 || p.Rows[0].Nodes[0].Text != "0123456789" {
		t.Fatalf("first row mismatch: %+v", p.Rows[0].Nodes)
	}
	if len(p.Rows[1].Nodes) != 1 || p.Rows[1].Nodes[0].Text != "abc" {
		t.Fatalf("second row mismatch: %+v", p.Rows[1].Nodes)
	}
	for _, call := range st.calls {
		if call == "" {
			t.Fatalf("empty label must not be rendered")
		}
	}
}

func TestTextSplitIsCodepointAware(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	p, err := e.Layout([]Element{text("你好世界再见朋友", 10)}, Constraints{Width: 40}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if got := p.Rows[0].Nodes[0].Text; got != "你好世界" {
		t.Fatalf("first row text mismatch: %q", got)
	}
	if got := p.Rows[1].Nodes[0].Text; got != "再见朋友" {
		t.Fatalf("second row text mismatch: %q", got)
	}
}

// 宽度为 0 的盒子也必须终止：每行强制放入一个码点。
func TestTextSplitTerminatesOnZeroWidth(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	p, err := e.Layout([]Element{text("abc", 10)}, Constraints{Width: 0}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	var texts []string
	for _, n := range p.Nodes {
		texts = append(texts, n.Text)
	}
	if strings.Join(texts, "|") != "a|b|c" {
		t.Fatalf("unexpected split: %v", texts)
	}
}

func TestTextWiderThanFreshRowForcesProgress(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 30}, nil)
	p, err := e.Layout([]Element{text("WW", 10)}, Constraints{Width: 20}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Nodes) != 2 || p.Nodes[0].Text != "W" || p.Nodes[1].Text != "W" {
		t.Fatalf("unexpected nodes: %+v", p.Nodes)
	}
}

func TestImageWiderThanRowStartsNewRow(t *testing.T) {
	images := stubImages{"wide.png": {Width: 150, Height: 20}}
	e := newEngine(t, &stubText{perRune: 10}, images)
	elems := []Element{text("abcde", 10), NewImage(7, White, 255, "wide.png")}
	p, err := e.Layout(elems, Constraints{Width: 100}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(p.Rows))
	}
	img := p.Rows[1].Nodes[0]
	if img.Kind != NodeImage || img.Tag != 7 || img.Position.X != 0 {
		t.Fatalf("image not at start of fresh row: %+v", img)
	}
}

func TestImageOverflowLeavesNegativeRemaining(t *testing.T) {
	images := stubImages{"wide.png": {Width: 150, Height: 20}}
	e := newEngine(t, &stubText{perRune: 10}, images)
	p := &pass{engine: e, constraints: Constraints{Width: 100}}
	p.newRow()
	p.handleNode(p.renderImage(NewImage(0, White, 255, "wide.png")))
	if len(p.rows) != 2 {
		t.Fatalf("expected a fresh row, got %d rows", len(p.rows))
	}
	if p.remaining >= 0 {
		t.Fatalf("remaining width should be negative, got %g", p.remaining)
	}
}

func TestUnresolvedImageIsSkipped(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, stubImages{})
	elems := []Element{text("a", 10), NewImage(0, White, 255, "missing.png"), text("b", 10)}
	for _, ignore := range []bool{false, true} {
		p, err := e.Layout(elems, Constraints{IgnoreSize: ignore, Width: 100}, 0)
		if err != nil {
			t.Fatalf("layout error: %v", err)
		}
		if len(p.Nodes) != 2 {
			t.Fatalf("ignore=%v: expected 2 nodes, got %d", ignore, len(p.Nodes))
		}
		if p.Nodes[1].Position.X != 10 {
			t.Fatalf("ignore=%v: second label x mismatch: %g", ignore, p.Nodes[1].Position.X)
		}
	}
}

func TestTextRendererFailureIsFatal(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10, failOn: "boom"}, nil)
	_, err := e.Layout([]Element{text("ok", 10), text("boom", 10)}, Constraints{Width: 100}, 0)
	if err == nil {
		t.Fatalf("expected error from text renderer")
	}
}

func TestMalformedElementsAreSkipped(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	elems := []Element{nil, NewCustom(1, White, 255, nil), text("a", 10)}
	p, err := e.Layout(elems, Constraints{Width: 100}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Nodes) != 1 || p.Nodes[0].Text != "a" {
		t.Fatalf("expected only the text node, got %+v", p.Nodes)
	}
}

func TestAutoSizeSingleRow(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	elems := []Element{text("aaaaaaaaaaaaaaaaaaaa", 10), text("bb", 16), text("ccc", 12)}
	p, err := e.Layout(elems, Constraints{IgnoreSize: true, Width: 50}, 7)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(p.Rows) != 1 || len(p.Nodes) != 3 {
		t.Fatalf("expected a single row with 3 nodes, got rows=%d nodes=%d", len(p.Rows), len(p.Nodes))
	}
	wantX := []float64{0, 200, 220}
	for i, n := range p.Nodes {
		if n.Position.X != wantX[i] || n.Position.Y != 0 {
			t.Fatalf("node %d position mismatch: %+v", i, n.Position)
		}
	}
	if p.Size.Width != 250 || p.Size.Height != 16 {
		t.Fatalf("size mismatch: %+v", p.Size)
	}
}

func TestUnderlineFollowsLabel(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	u := NewText(3, Color{R: 200}, 128, "abcdefghijklmnop", "Helvetica", 20, 0, true)
	p, err := e.Layout([]Element{text("xx", 10), u}, Constraints{Width: 100}, 2)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	var labels int
	for i, n := range p.Nodes {
		if n.Kind != NodeLabel || n.Tag != 3 {
			continue
		}
		labels++
		if n.Underline == nil {
			t.Fatalf("label %q lost its underline", n.Text)
		}
		if i+1 >= len(p.Nodes) || p.Nodes[i+1] != n.Underline {
			t.Fatalf("underline must follow its label in container order")
		}
		size := n.Underline.Size()
		if !approx(size.Height, 1) || !approx(size.Width, n.Size().Width) {
			t.Fatalf("underline size mismatch: %+v", size)
		}
		if n.Underline.Position != n.Position {
			t.Fatalf("underline position %+v != label position %+v", n.Underline.Position, n.Position)
		}
		if n.Underline.Color != u.Color() {
			t.Fatalf("underline color mismatch")
		}
	}
	if labels != 2 {
		t.Fatalf("expected underlined run split into 2 labels, got %d", labels)
	}
}

// 两行高度分别为 30 与 40，行距 5，高度自动：总高 70，各行按 行高+行距 依次下移。
func TestRowStackingWithAutoHeight(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	elems := []Element{text("aaaaaaaaaa", 30), text("bbbbb", 40)}
	p, err := e.Layout(elems, Constraints{Width: 100}, 5)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if p.Size.Height != 70 {
		t.Fatalf("expected total height 70, got %g", p.Size.Height)
	}
	if y := p.Rows[0].Nodes[0].Position.Y; y != 35 {
		t.Fatalf("first row y mismatch: %g", y)
	}
	if y := p.Rows[1].Nodes[0].Position.Y; y != -10 {
		t.Fatalf("second row y mismatch: %g", y)
	}
}

func TestFixedHeightIsNotOverwritten(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 10}, nil)
	p, err := e.Layout([]Element{text("a", 10)}, Constraints{Width: 100, Height: 50}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if p.Size.Height != 50 || p.Nodes[0].Position.Y != 40 {
		t.Fatalf("unexpected placement: size=%+v y=%g", p.Size, p.Nodes[0].Position.Y)
	}
}

func TestFontReferenceUsesFileExistence(t *testing.T) {
	st := &stubText{perRune: 10}
	e, err := NewEngine(Options{Text: st, FileExists: func(p string) bool { return p == "fonts/Inter.ttf" }})
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	elems := []Element{
		NewText(0, White, 255, "a", "fonts/Inter.ttf", 10, 0, false),
		NewText(0, White, 255, "b", "Helvetica", 10, 0, false),
	}
	if _, err := e.Layout(elems, Constraints{IgnoreSize: true}, 0); err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if !st.fonts[0].File || st.fonts[1].File {
		t.Fatalf("font resolution mismatch: %+v", st.fonts)
	}
}

func TestAutoSizeCumulativeOffsets(t *testing.T) {
	e := newEngine(t, &stubText{perRune: 7}, nil)
	words := []string{"a", "bb", "ccc", "dddd"}
	var elems []Element
	for _, w := range words {
		elems = append(elems, text(w, 10))
	}
	p, err := e.Layout(elems, Constraints{IgnoreSize: true}, 0)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	x := 0.0
	for i, n := range p.Nodes {
		if n.Text != words[i] {
			t.Fatalf("order mismatch at %d: %q", i, n.Text)
		}
		if !approx(n.Position.X, x) {
			t.Fatalf("node %d x=%g want %g", i, n.Position.X, x)
		}
		x += n.Size().Width
	}
}
