package layout

import (
	"log"
	"os"
)

// Options 配置排版阶段所需的依赖，例如文本与图片后端。
type Options struct {
	Text   TextRenderer
	Images ImageRenderer
	// FileExists 决定字体引用按文件还是按系统字体名解析，默认使用 os.Stat。
	FileExists func(path string) bool
	// Logger 记录被跳过的元素，为 nil 时不输出。
	Logger *log.Logger
}

// FontRef 是解析后的字体引用。File 为 true 时 Name 是存在的字体文件路径，否则是系统字体名。
type FontRef struct {
	Name string
	File bool
}

// TextRenderer 负责测量并生成文本节点。后端失败会让本次排版整体失败。
type TextRenderer interface {
	RenderText(text string, font FontRef, size float64, outline int) (Renderable, error)
}

// ImageRenderer 负责加载图片并生成图片节点。失败时对应元素被跳过。
type ImageRenderer interface {
	RenderImage(path string) (Renderable, error)
}

// Constraints 描述容器尺寸约束。IgnoreSize 为 true 时进入自适应模式，Width/Height 被忽略。
// Height 为 0 表示高度随内容自动计算。
type Constraints struct {
	IgnoreSize bool
	Width      float64
	Height     float64
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
