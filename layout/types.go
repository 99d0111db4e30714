package layout

// 该文件定义布局节点、尺寸与快照结构，供排版引擎、渲染器与调试 JSON 共用。

// Size 表示内容尺寸，单位由后端决定（canvas 后端为 mm，raster 后端为像素）。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Vec2 表示二维坐标或锚点。坐标系 y 轴向上，原点位于左下角。
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// White 是元素的默认颜色。
var White = Color{R: 255, G: 255, B: 255}

// Renderable 是后端产出的可绘制对象，排版只关心其内容尺寸。
type Renderable interface {
	ContentSize() Size
}

// Rect 是一个纯色矩形，用作下划线，也可以作为自定义节点的内容。
type Rect struct {
	Width  float64
	Height float64
}

// ContentSize implements Renderable.
func (r Rect) ContentSize() Size { return Size{Width: r.Width, Height: r.Height} }

// NodeKind 区分节点来源。
type NodeKind int

const (
	NodeLabel NodeKind = iota
	NodeImage
	NodeCustom
	NodeUnderline
)

func (k NodeKind) String() string {
	switch k {
	case NodeLabel:
		return "label"
	case NodeImage:
		return "image"
	case NodeCustom:
		return "custom"
	case NodeUnderline:
		return "underline"
	default:
		return "unknown"
	}
}

// Node 是一次排版产出的可渲染节点。锚点固定在左下角，Position 为容器内坐标。
// 节点不会跨两次排版存活。
type Node struct {
	Kind     NodeKind
	Content  Renderable
	Text     string // 仅文本节点
	FontSize float64
	Tag      int
	Color    Color
	Opacity  uint8
	Position Vec2
	// Underline 为文本节点附带的下划线，随宿主节点一起定位。
	Underline *Node
}

// Size 返回节点内容尺寸；内容为空时返回零值。
func (n *Node) Size() Size {
	if n == nil || n.Content == nil {
		return Size{}
	}
	return n.Content.ContentSize()
}

// Frame 是一次排版结果的只读快照，坐标已换算到 RichText 自身的局部坐标系。
type Frame struct {
	Size  Size        `json:"size"`
	Nodes []Placement `json:"nodes"`
}

// Placement 记录节点在 Frame 中的最终位置。
type Placement struct {
	Kind    string  `json:"kind"`
	Text    string  `json:"text,omitempty"`
	Tag     int     `json:"tag"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Color   Color   `json:"color"`
	Opacity uint8   `json:"opacity"`
	Node    *Node   `json:"-"`
}

// BoundsBox 为轴对齐包围盒。
type BoundsBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Bounds 计算 Frame 的包围盒：RichText 自身区域与所有节点的并集。
func (f *Frame) Bounds() BoundsBox {
	b := BoundsBox{MaxX: f.Size.Width, MaxY: f.Size.Height}
	for _, p := range f.Nodes {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.X+p.Width > b.MaxX {
			b.MaxX = p.X + p.Width
		}
		if p.Y+p.Height > b.MaxY {
			b.MaxY = p.Y + p.Height
		}
	}
	return b
}
