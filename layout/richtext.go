package layout

// RichText 是富文本控件外壳：维护元素序列、尺寸约束与过期标记，
// 只有在显式请求排版且内容已过期时才重新排版，多次修改会合并为一次排版。
//
// RichText 不是并发安全的。
type RichText struct {
	engine        *Engine
	elements      *Sequence
	container     *Container
	constraints   Constraints
	verticalSpace float64
	dirty         bool

	contentSize Size
	position    Vec2
	anchor      Vec2
}

// New 创建 RichText。Options.Text 不能为空。
func New(opts Options) (*RichText, error) {
	engine, err := NewEngine(opts)
	if err != nil {
		return nil, err
	}
	rt := &RichText{
		engine:    engine,
		container: newContainer(),
		dirty:     true,
		anchor:    Vec2{X: 0.5, Y: 0.5},
	}
	rt.elements = newSequence(rt.markDirty)
	return rt, nil
}

func (rt *RichText) markDirty() { rt.dirty = true }

// Dirty 报告下一次 RequestLayout 是否会重新排版。
func (rt *RichText) Dirty() bool { return rt.dirty }

// Elements 返回元素序列。直接修改序列同样会标记过期。
func (rt *RichText) Elements() *Sequence { return rt.elements }

// InsertElement 在 index 处插入元素。
func (rt *RichText) InsertElement(e Element, index int) error {
	return rt.elements.Insert(e, index)
}

// PushBackElement 将元素追加到末尾。
func (rt *RichText) PushBackElement(e Element) {
	rt.elements.Append(e)
}

// RemoveElementAt 按下标移除元素，越界时返回 ErrIndexOutOfRange。
func (rt *RichText) RemoveElementAt(index int) error {
	return rt.elements.RemoveAt(index)
}

// RemoveElement 按身份移除元素，元素不存在时什么也不做。
func (rt *RichText) RemoveElement(e Element) {
	rt.elements.Remove(e)
}

// SetVerticalSpace 设置行距。行距本身不会标记过期，在下一次排版时生效。
func (rt *RichText) SetVerticalSpace(space float64) { rt.verticalSpace = space }

func (rt *RichText) VerticalSpace() float64 { return rt.verticalSpace }

// IgnoreContentAdaptWithSize 切换自适应模式，值变化时标记过期。
func (rt *RichText) IgnoreContentAdaptWithSize(ignore bool) {
	if rt.constraints.IgnoreSize == ignore {
		return
	}
	rt.constraints.IgnoreSize = ignore
	rt.dirty = true
}

// SetContentSize 设置固定盒模式下的宽高；height 为 0 表示高度随内容自动计算。
func (rt *RichText) SetContentSize(width, height float64) {
	if rt.constraints.Width != width || rt.constraints.Height != height {
		rt.constraints.Width = width
		rt.constraints.Height = height
		rt.dirty = true
	}
	if !rt.constraints.IgnoreSize {
		rt.contentSize = Size{Width: width, Height: height}
	}
}

// SetConstraints 一次性设置模式与尺寸。
func (rt *RichText) SetConstraints(c Constraints) {
	rt.IgnoreContentAdaptWithSize(c.IgnoreSize)
	rt.SetContentSize(c.Width, c.Height)
}

func (rt *RichText) Constraints() Constraints { return rt.constraints }

// RequestLayout 在内容过期时重新排版，否则直接返回。
// 排版失败时容器保留上一次的节点，过期标记保持不变。
func (rt *RichText) RequestLayout() error {
	if !rt.dirty {
		return nil
	}
	p, err := rt.engine.Layout(rt.elements.Elements(), rt.constraints, rt.verticalSpace)
	if err != nil {
		return err
	}
	rt.container.replace(p)
	rt.contentSize = rt.container.VirtualSize()
	rt.container.SetPosition(Vec2{X: rt.contentSize.Width / 2, Y: rt.contentSize.Height / 2})
	rt.dirty = false
	return nil
}

// AdaptRenderers 等同于 RequestLayout。
func (rt *RichText) AdaptRenderers() error { return rt.RequestLayout() }

// VirtualRendererSize 返回节点容器测得的尺寸。
func (rt *RichText) VirtualRendererSize() Size { return rt.container.VirtualSize() }

func (rt *RichText) ContentSize() Size { return rt.contentSize }

// Container 返回节点容器。
func (rt *RichText) Container() *Container { return rt.container }

func (rt *RichText) Position() Vec2 { return rt.position }

func (rt *RichText) SetPosition(pt Vec2) { rt.position = pt }

func (rt *RichText) AnchorPoint() Vec2 { return rt.anchor }

// SetAnchorPoint 同时设置外壳与节点容器的锚点，保持二者视觉对齐。
func (rt *RichText) SetAnchorPoint(pt Vec2) {
	rt.anchor = pt
	rt.container.SetAnchorPoint(pt)
}

// Frame 生成当前节点的快照，坐标位于 RichText 自身的局部坐标系（左下角为原点）。
func (rt *RichText) Frame() *Frame {
	origin := rt.container.Origin()
	f := &Frame{Size: rt.contentSize}
	for _, n := range rt.container.Children() {
		size := n.Size()
		f.Nodes = append(f.Nodes, Placement{
			Kind:    n.Kind.String(),
			Text:    n.Text,
			Tag:     n.Tag,
			X:       origin.X + n.Position.X,
			Y:       origin.Y + n.Position.Y,
			Width:   size.Width,
			Height:  size.Height,
			Color:   n.Color,
			Opacity: n.Opacity,
			Node:    n,
		})
	}
	return f
}

// Close 释放全部元素与节点。
func (rt *RichText) Close() {
	rt.elements.Clear()
	rt.container.Clear()
}
