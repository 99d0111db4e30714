package renderer

import "github.com/ByLCY/papyrus-richtext/layout"

// Renderer 将排版快照输出为最终文件，例如 PDF、SVG 或 PNG。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(frame *layout.Frame) ([]byte, error)
}

// Backend 是完整的渲染后端：既为排版提供文本与图片节点，也负责最终输出。
// 由某个后端生成的节点只能交给同一后端绘制。
type Backend interface {
	Renderer
	layout.TextRenderer
	layout.ImageRenderer
	// FileExists 以后端的资源目录解析路径，用于判断字体引用是否指向文件。
	FileExists(path string) bool
}
