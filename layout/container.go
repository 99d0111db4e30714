package layout

// Container 持有最终定位好的节点，并记录自身的内容尺寸、锚点与位置。
type Container struct {
	children []*Node
	size     Size
	anchor   Vec2
	position Vec2
}

func newContainer() *Container {
	return &Container{anchor: Vec2{X: 0.5, Y: 0.5}}
}

// Children 返回当前子节点（只读视图）。
func (c *Container) Children() []*Node { return c.children }

// AddChild 追加一个子节点。
func (c *Container) AddChild(n *Node) { c.children = append(c.children, n) }

// Clear 移除全部子节点。
func (c *Container) Clear() { c.children = nil }

// VirtualSize 返回容器自身测得的尺寸。
func (c *Container) VirtualSize() Size { return c.size }

func (c *Container) SetContentSize(s Size) { c.size = s }

func (c *Container) AnchorPoint() Vec2 { return c.anchor }

func (c *Container) SetAnchorPoint(pt Vec2) { c.anchor = pt }

func (c *Container) Position() Vec2 { return c.position }

func (c *Container) SetPosition(pt Vec2) { c.position = pt }

// Origin 返回容器左下角在父坐标系中的位置。
func (c *Container) Origin() Vec2 {
	return Vec2{
		X: c.position.X - c.anchor.X*c.size.Width,
		Y: c.position.Y - c.anchor.Y*c.size.Height,
	}
}

// replace 用一次成功排版的结果整体替换子节点与尺寸。
func (c *Container) replace(p *Pass) {
	c.Clear()
	for _, n := range p.Nodes {
		c.AddChild(n)
	}
	c.SetContentSize(p.Size)
}
