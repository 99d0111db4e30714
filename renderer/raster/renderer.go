// Package rasterrenderer 基于 github.com/fogleman/gg 输出 PNG，排版单位为像素。
package rasterrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/papyrus-richtext/layout"
	"github.com/ByLCY/papyrus-richtext/renderer"
)

// Renderer 使用 gg 进行测量与绘制。
// 非文件字体名映射到内置的 Go 字体族，因此不依赖宿主机的字体目录。
type Renderer struct {
	baseDir    string
	background color.Color

	fontMu sync.Mutex
	faces  map[faceKey]font.Face
	fonts  map[string]*truetype.Font

	imageMu sync.Mutex
	images  map[string]image.Image
}

var _ renderer.Backend = (*Renderer)(nil)

type faceKey struct {
	name string
	file bool
	size float64
}

// Options configures the raster renderer.
type Options struct {
	BaseDir string
	// Background 为 nil 时输出透明底
	Background color.Color
}

// NewRenderer creates a raster renderer rooted at baseDir.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a raster renderer with explicit options.
func NewRendererWithOptions(opts Options) *Renderer {
	return &Renderer{
		baseDir:    opts.BaseDir,
		background: opts.Background,
		faces:      map[faceKey]font.Face{},
		fonts:      map[string]*truetype.Font{},
		images:     map[string]image.Image{},
	}
}

// Label 是栅格后端的文本节点。
type Label struct {
	face    font.Face
	text    string
	outline float64
	width   float64
	height  float64
	ascent  float64
}

func (l *Label) ContentSize() layout.Size { return layout.Size{Width: l.width, Height: l.height} }

// Image 是栅格后端的图片节点，1 像素对应 1 个排版单位。
type Image struct {
	img image.Image
}

func (i *Image) ContentSize() layout.Size {
	b := i.img.Bounds()
	return layout.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Drawer 由自定义节点实现。x, y 为 gg 坐标系（y 向下）中的左上角。
type Drawer interface {
	DrawRaster(dc *gg.Context, x, y, w, h float64, col color.Color)
}

func (r *Renderer) FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(r.resolve(path))
	return err == nil && !info.IsDir()
}

// RenderText 实现 layout.TextRenderer。
func (r *Renderer) RenderText(text string, ref layout.FontRef, size float64, outline int) (layout.Renderable, error) {
	face, err := r.face(ref, size)
	if err != nil {
		return nil, err
	}
	r.fontMu.Lock()
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(face)
	w, h := dc.MeasureString(text)
	ascent := float64(face.Metrics().Ascent) / 64
	r.fontMu.Unlock()

	stroke := float64(outline)
	return &Label{
		face:    face,
		text:    text,
		outline: stroke,
		width:   w + 2*stroke,
		height:  h + 2*stroke,
		ascent:  ascent,
	}, nil
}

// RenderImage 实现 layout.ImageRenderer。
func (r *Renderer) RenderImage(path string) (layout.Renderable, error) {
	if path == "" {
		return nil, fmt.Errorf("图片路径为空")
	}
	full := r.resolve(path)
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if img, ok := r.images[full]; ok {
		return &Image{img: img}, nil
	}
	img, err := gg.LoadImage(full)
	if err != nil {
		return nil, fmt.Errorf("加载图片 %s 失败: %w", path, err)
	}
	r.images[full] = img
	return &Image{img: img}, nil
}

// Render 输出 PNG。画布覆盖整个 frame 的包围盒，y 轴翻转为向下。
func (r *Renderer) Render(frame *layout.Frame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	bounds := frame.Bounds()
	width := int(math.Max(math.Ceil(bounds.MaxX-bounds.MinX), 1))
	height := int(math.Max(math.Ceil(bounds.MaxY-bounds.MinY), 1))

	dc := gg.NewContext(width, height)
	if r.background != nil {
		dc.SetColor(r.background)
		dc.Clear()
	}
	// 字体面不是并发安全的，绘制期间持有锁
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	for _, p := range frame.Nodes {
		left := p.X - bounds.MinX
		top := float64(height) - (p.Y - bounds.MinY) - p.Height
		if err := r.drawPlacement(dc, p, left, top); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPlacement(dc *gg.Context, p layout.Placement, left, top float64) error {
	if p.Node == nil {
		return nil
	}
	col := color.NRGBA{R: p.Color.R, G: p.Color.G, B: p.Color.B, A: p.Opacity}
	switch content := p.Node.Content.(type) {
	case *Label:
		dc.SetFontFace(content.face)
		x := left + content.outline
		baseline := top + content.outline + content.ascent
		if content.outline > 0 {
			dc.SetColor(color.NRGBA{A: p.Opacity})
			for dy := -content.outline; dy <= content.outline; dy++ {
				for dx := -content.outline; dx <= content.outline; dx++ {
					if dx != 0 || dy != 0 {
						dc.DrawString(content.text, x+dx, baseline+dy)
					}
				}
			}
		}
		dc.SetColor(col)
		dc.DrawString(content.text, x, baseline)
	case *Image:
		dc.DrawImage(content.img, int(math.Round(left)), int(math.Round(top)))
	case layout.Rect:
		dc.DrawRectangle(left, top, content.Width, content.Height)
		dc.SetColor(col)
		dc.Fill()
	case Drawer:
		content.DrawRaster(dc, left, top, p.Width, p.Height, col)
	default:
		return fmt.Errorf("栅格渲染器无法绘制节点内容 %T", content)
	}
	return nil
}

func (r *Renderer) face(ref layout.FontRef, size float64) (font.Face, error) {
	if ref.Name == "" {
		return nil, fmt.Errorf("字体引用为空")
	}
	key := faceKey{name: ref.Name, file: ref.File, size: size}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if face, ok := r.faces[key]; ok {
		return face, nil
	}

	var face font.Face
	if ref.File {
		f, err := gg.LoadFontFace(r.resolve(ref.Name), size)
		if err != nil {
			return nil, fmt.Errorf("加载字体文件 %s 失败: %w", ref.Name, err)
		}
		face = f
	} else {
		ft, err := r.builtin(ref.Name)
		if err != nil {
			return nil, err
		}
		face = truetype.NewFace(ft, &truetype.Options{Size: size})
	}
	r.faces[key] = face
	return face, nil
}

// builtin 根据字体名挑选内置 Go 字体，调用方需持有 fontMu。
func (r *Renderer) builtin(name string) (*truetype.Font, error) {
	data, id := goregular.TTF, "regular"
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "mono"), strings.Contains(lower, "courier"):
		data, id = gomono.TTF, "mono"
	case strings.Contains(lower, "bold"):
		data, id = gobold.TTF, "bold"
	case strings.Contains(lower, "italic"), strings.Contains(lower, "oblique"):
		data, id = goitalic.TTF, "italic"
	}
	if ft, ok := r.fonts[id]; ok {
		return ft, nil
	}
	ft, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析内置字体 %s 失败: %w", id, err)
	}
	r.fonts[id] = ft
	return ft, nil
}

func (r *Renderer) resolve(path string) string {
	if r.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.baseDir, path)
}
