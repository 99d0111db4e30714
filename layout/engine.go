package layout

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
)

var (
	// ErrNoTextRenderer 表示构造引擎时缺少文本后端。
	ErrNoTextRenderer = errors.New("layout: 缺少文本渲染后端")
	// ErrSplitDiverged 表示文本拆分超过了迭代上限。
	ErrSplitDiverged = errors.New("layout: 文本拆分未能收敛")
)

// Engine 执行贪心换行与坐标定位。Engine 本身无状态，每次 Layout 独立进行。
type Engine struct {
	text   TextRenderer
	images ImageRenderer
	exists func(string) bool
	logger *log.Logger
}

// NewEngine 根据 Options 创建排版引擎。
func NewEngine(opts Options) (*Engine, error) {
	if opts.Text == nil {
		return nil, ErrNoTextRenderer
	}
	e := &Engine{
		text:   opts.Text,
		images: opts.Images,
		exists: opts.FileExists,
		logger: opts.Logger,
	}
	if e.exists == nil {
		e.exists = fileExists
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	return e, nil
}

// Row 是一行已排好的节点，行高为行内节点的最大高度。
type Row struct {
	Nodes  []*Node
	Height float64
}

// Pass 是一次排版的完整产出。
type Pass struct {
	Rows []*Row
	// Nodes 为最终加入容器的节点顺序：文本节点之后紧跟其下划线。
	Nodes []*Node
	Size  Size
}

// pass 保存单次排版过程中的可变状态，排版结束即丢弃。
type pass struct {
	engine      *Engine
	constraints Constraints
	remaining   float64
	rows        []*Row
}

// Layout 对整个元素序列执行一次排版。任何文本后端错误都会中止排版并原样返回。
func (e *Engine) Layout(elements []Element, c Constraints, spacing float64) (*Pass, error) {
	p := &pass{engine: e, constraints: c}
	p.newRow()

	if c.IgnoreSize {
		for _, el := range elements {
			node, err := p.renderWhole(el)
			if err != nil {
				return nil, err
			}
			if node != nil {
				p.push(node)
			}
		}
		return p.placeSingleRow(), nil
	}

	for _, el := range elements {
		switch el := el.(type) {
		case *TextElement:
			if err := p.handleText(el); err != nil {
				return nil, err
			}
		case *ImageElement:
			if node := p.renderImage(el); node != nil {
				p.handleNode(node)
			}
		case *CustomElement:
			if node := p.renderCustom(el); node != nil {
				p.handleNode(node)
			}
		default:
			e.logger.Printf("跳过未知类型的元素 %T", el)
		}
	}
	return p.placeRows(spacing), nil
}

// renderWhole 将元素整体转为一个节点，不做任何拆分（自适应模式）。
func (p *pass) renderWhole(el Element) (*Node, error) {
	switch el := el.(type) {
	case *TextElement:
		return p.renderLabel(el, el.Text())
	case *ImageElement:
		return p.renderImage(el), nil
	case *CustomElement:
		return p.renderCustom(el), nil
	default:
		p.engine.logger.Printf("跳过未知类型的元素 %T", el)
		return nil, nil
	}
}

// handleText 放置一段文本；超出剩余宽度时按溢出比例估算拆分点，
// 左半部分留在当前行，剩余部分另起一行后继续按同样规则处理。
func (p *pass) handleText(el *TextElement) error {
	text := el.Text()
	limit := CodepointCount(text) + 2
	for i := 0; ; i++ {
		if i > limit {
			return fmt.Errorf("文本 %q: %w", el.Text(), ErrSplitDiverged)
		}
		node, err := p.renderLabel(el, text)
		if err != nil {
			return err
		}
		width := node.Size().Width
		if !(width > 0) {
			p.push(node)
			return nil
		}

		fresh := p.rowIsFresh()
		p.remaining -= width
		if p.remaining >= 0 {
			p.push(node)
			return nil
		}

		overstep := -p.remaining / width
		n := CodepointCount(text)
		left := int(math.Floor(float64(n) * (1 - overstep)))
		// 新行连一个码点都放不下时，重新换行不会带来任何进展，强制放入一个码点。
		if left <= 0 && fresh {
			left = 1
		}
		if left >= n {
			p.push(node)
			return nil
		}
		if left > 0 {
			leftNode, err := p.renderLabel(el, SubstringByCodepoints(text, 0, left))
			if err != nil {
				return err
			}
			p.push(leftNode)
		}
		p.newRow()
		text = SubstringByCodepoints(text, left, n-left)
	}
}

// handleNode 放置图片或自定义节点：放不下时先换行，节点本身不拆分。
func (p *pass) handleNode(node *Node) {
	width := node.Size().Width
	p.remaining -= width
	if p.remaining < 0 {
		p.newRow()
		p.push(node)
		p.remaining -= width
		return
	}
	p.push(node)
}

func (p *pass) renderLabel(el *TextElement, text string) (*Node, error) {
	font := FontRef{Name: el.Font(), File: p.engine.exists(el.Font())}
	r, err := p.engine.text.RenderText(text, font, el.FontSize(), el.Outline())
	if err != nil {
		return nil, fmt.Errorf("渲染文本 %q 失败: %w", text, err)
	}
	if r == nil {
		return nil, fmt.Errorf("渲染文本 %q 失败: 后端未返回节点", text)
	}
	node := &Node{
		Kind:     NodeLabel,
		Content:  r,
		Text:     text,
		FontSize: el.FontSize(),
		Tag:      el.Tag(),
		Color:    el.Color(),
		Opacity:  el.Opacity(),
	}
	if el.Underline() {
		node.Underline = &Node{
			Kind:    NodeUnderline,
			Content: Rect{Width: r.ContentSize().Width, Height: el.FontSize() / 20},
			Tag:     el.Tag(),
			Color:   el.Color(),
			Opacity: el.Opacity(),
		}
	}
	return node, nil
}

func (p *pass) renderImage(el *ImageElement) *Node {
	if p.engine.images == nil {
		p.engine.logger.Printf("跳过图片 %s: 未配置图片后端", el.Path())
		return nil
	}
	r, err := p.engine.images.RenderImage(el.Path())
	if err != nil || r == nil {
		p.engine.logger.Printf("跳过图片 %s: %v", el.Path(), err)
		return nil
	}
	return &Node{Kind: NodeImage, Content: r, Tag: el.Tag(), Color: el.Color(), Opacity: el.Opacity()}
}

func (p *pass) renderCustom(el *CustomElement) *Node {
	content := el.Handle().Content()
	if content == nil {
		p.engine.logger.Printf("跳过自定义节点 tag=%d: 句柄为空", el.Tag())
		return nil
	}
	return &Node{Kind: NodeCustom, Content: content, Tag: el.Tag(), Color: el.Color(), Opacity: el.Opacity()}
}

func (p *pass) newRow() {
	p.remaining = p.constraints.Width
	p.rows = append(p.rows, &Row{})
}

func (p *pass) push(node *Node) {
	row := p.rows[len(p.rows)-1]
	row.Nodes = append(row.Nodes, node)
}

func (p *pass) rowIsFresh() bool {
	row := p.rows[len(p.rows)-1]
	return len(row.Nodes) == 0 && p.remaining == p.constraints.Width
}

func (p *pass) placeSingleRow() *Pass {
	row := p.rows[0]
	out := &Pass{Rows: p.rows}
	x := 0.0
	for _, node := range row.Nodes {
		size := node.Size()
		place(out, node, Vec2{X: x})
		out.Size.Width += size.Width
		out.Size.Height = math.Max(out.Size.Height, size.Height)
		x += size.Width
	}
	row.Height = out.Size.Height
	return out
}

// placeRows 自上而下堆叠各行：y 从总高度开始，每行递减 行高+行距。
func (p *pass) placeRows(spacing float64) *Pass {
	out := &Pass{Rows: p.rows}
	sum := 0.0
	for _, row := range p.rows {
		for _, node := range row.Nodes {
			row.Height = math.Max(row.Height, node.Size().Height)
		}
		sum += row.Height
	}
	height := p.constraints.Height
	if height == 0 {
		height = sum
	}

	y := height
	for _, row := range p.rows {
		y -= row.Height + spacing
		x := 0.0
		for _, node := range row.Nodes {
			place(out, node, Vec2{X: x, Y: y})
			x += node.Size().Width
		}
	}
	out.Size = Size{Width: p.constraints.Width, Height: height}
	return out
}

func place(out *Pass, node *Node, pos Vec2) {
	node.Position = pos
	out.Nodes = append(out.Nodes, node)
	if node.Underline != nil {
		node.Underline.Position = pos
		out.Nodes = append(out.Nodes, node.Underline)
	}
}
