package layout

// Element 是富文本内容的最小单元：文本、图片或自定义节点三者之一。
// 接口是封闭的，只有本包内的三种类型可以实现。
type Element interface {
	Tag() int
	Color() Color
	Opacity() uint8

	release()
}

type base struct {
	tag     int
	color   Color
	opacity uint8
}

func (b *base) Tag() int { return b.tag }
func (b *base) Color() Color { return b.color }
func (b *base) Opacity() uint8 { return b.opacity }

// TextElement 描述一段文本。Font 可以是字体文件路径，也可以是系统字体名。
type TextElement struct {
	base
	text      string
	font      string
	fontSize  float64
	outline   int
	underline bool
}

// NewText 创建文本元素。
func NewText(tag int, color Color, opacity uint8, text, font string, fontSize float64, outline int, underline bool) *TextElement {
	return &TextElement{
		base:      base{tag: tag, color: color, opacity: opacity},
		text:      text,
		font:      font,
		fontSize:  fontSize,
		outline:   outline,
		underline: underline,
	}
}

func (e *TextElement) Text() string { return e.text }
func (e *TextElement) Font() string { return e.font }
func (e *TextElement) FontSize() float64 { return e.fontSize }
func (e *TextElement) Outline() int { return e.outline }
func (e *TextElement) Underline() bool { return e.underline }
func (e *TextElement) release() {}

// ImageElement 引用一张图片文件。
type ImageElement struct {
	base
	path string
}

// NewImage 创建图片元素。
func NewImage(tag int, color Color, opacity uint8, path string) *ImageElement {
	return &ImageElement{base: base{tag: tag, color: color, opacity: opacity}, path: path}
}

func (e *ImageElement) Path() string { return e.path }
func (e *ImageElement) release() {}

// CustomElement 持有调用方节点的一份引用，元素从序列中移除时释放。
type CustomElement struct {
	base
	handle   *Handle
	released bool
}

// NewCustom 创建自定义节点元素并对 handle 增加一次引用。handle 为 nil 时元素在排版时被跳过。
func NewCustom(tag int, color Color, opacity uint8, handle *Handle) *CustomElement {
	return &CustomElement{base: base{tag: tag, color: color, opacity: opacity}, handle: handle.Retain()}
}

func (e *CustomElement) Handle() *Handle { return e.handle }

func (e *CustomElement) release() {
	if e.released {
		return
	}
	e.released = true
	e.handle.Release()
}
