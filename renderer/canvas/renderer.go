package canvasrenderer

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

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/papyrus-richtext/layout"
	"github.com/ByLCY/papyrus-richtext/renderer"
)

// defaultDPMM 对应未指定分辨率时每毫米 4 像素的图片换算。
const defaultDPMM = 4.0

// Renderer draws layout frames via github.com/tdewolff/canvas.
// 排版单位为 mm；字号入参同样为 mm，创建字体面时换算为 pt。
type Renderer struct {
	baseDir string
	dpmm    float64
	format  string
	title   string

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily

	imageMu sync.Mutex
	images  map[string]image.Image
}

var _ renderer.Backend = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	DPMM    float64 // 图片像素与毫米的换算比例，<=0 时使用默认值
	Format  string  // pdf（默认）或 svg
	Title   string  // 写入 PDF 元信息
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with explicit options.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		dpmm:         opts.DPMM,
		format:       strings.ToLower(opts.Format),
		title:        opts.Title,
		fontFamilies: map[string]*canvas.FontFamily{},
		images:       map[string]image.Image{},
	}
	if r.dpmm <= 0 {
		r.dpmm = defaultDPMM
	}
	if r.format == "" {
		r.format = "pdf"
	}
	return r
}

// Label 是 canvas 后端的文本节点。
type Label struct {
	family  *canvas.FontFamily
	sizePt  float64
	text    string
	outline float64
	width   float64
	height  float64
	ascent  float64
}

// ContentSize implements layout.Renderable.
func (l *Label) ContentSize() layout.Size { return layout.Size{Width: l.width, Height: l.height} }

// Image 是 canvas 后端的图片节点。
type Image struct {
	img    image.Image
	width  float64
	height float64
}

// ContentSize implements layout.Renderable.
func (i *Image) ContentSize() layout.Size { return layout.Size{Width: i.width, Height: i.height} }

// Drawer 由调用方自定义节点实现，以便在 canvas 上绘制自身。
type Drawer interface {
	DrawCanvas(ctx *canvas.Context, x, y float64, col color.Color)
}

// FileExists 判断 path（相对 baseDir）是否为已存在的文件。
func (r *Renderer) FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(r.resolve(path))
	return err == nil && !info.IsDir()
}

// RenderText 实现 layout.TextRenderer。字体按文件加载或按系统字体名加载，由 font.File 决定，
// 加载失败时不再回退。
func (r *Renderer) RenderText(text string, font layout.FontRef, size float64, outline int) (layout.Renderable, error) {
	family, err := r.fontFamily(font)
	if err != nil {
		return nil, err
	}
	sizePt := toPt(size)
	face := family.Face(sizePt, canvas.Black, canvas.FontRegular, canvas.FontNormal)
	metrics := face.Metrics()
	stroke := float64(outline)
	return &Label{
		family:  family,
		sizePt:  sizePt,
		text:    text,
		outline: stroke,
		width:   face.TextWidth(text) + 2*stroke,
		height:  metrics.LineHeight + 2*stroke,
		ascent:  metrics.Ascent,
	}, nil
}

// RenderImage 实现 layout.ImageRenderer，尺寸按 dpmm 由像素换算为毫米。
func (r *Renderer) RenderImage(path string) (layout.Renderable, error) {
	img, err := r.loadImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Image{
		img:    img,
		width:  float64(b.Dx()) / r.dpmm,
		height: float64(b.Dy()) / r.dpmm,
	}, nil
}

// Render renders the frame into PDF or SVG bytes.
func (r *Renderer) Render(frame *layout.Frame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	bounds := frame.Bounds()
	width := math.Max(bounds.MaxX-bounds.MinX, 1)
	height := math.Max(bounds.MaxY-bounds.MinY, 1)

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	for _, p := range frame.Nodes {
		if err := r.drawPlacement(ctx, p, p.X-bounds.MinX, p.Y-bounds.MinY); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	switch r.format {
	case "pdf":
		writer := pdf.New(&buf, width, height, nil)
		writer.SetInfo(r.title, "", "", "", "papyrus-richtext")
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case "svg":
		writer := svg.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("canvas 渲染器不支持输出格式 %q", r.format)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPlacement(ctx *canvas.Context, p layout.Placement, x, y float64) error {
	if p.Node == nil {
		return nil
	}
	col := colorFromLayout(p.Color, p.Opacity)
	switch content := p.Node.Content.(type) {
	case *Label:
		// 节点锚点在左下角，基线 = 顶部 - 描边 - 上升部
		baseline := y + content.height - content.outline - content.ascent
		left := x + content.outline
		if content.outline > 0 {
			stroke := content.family.Face(content.sizePt, colorFromLayout(layout.Color{}, p.Opacity), canvas.FontRegular, canvas.FontNormal)
			for _, d := range outlineOffsets(content.outline) {
				ctx.DrawText(left+d.X, baseline+d.Y, canvas.NewTextLine(stroke, content.text, canvas.Left))
			}
		}
		face := content.family.Face(content.sizePt, col, canvas.FontRegular, canvas.FontNormal)
		ctx.DrawText(left, baseline, canvas.NewTextLine(face, content.text, canvas.Left))
	case *Image:
		ctx.DrawImage(x, y, content.img, canvas.DPMM(r.dpmm))
	case layout.Rect:
		ctx.SetFillColor(col)
		ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
		ctx.DrawPath(x, y, canvas.Rectangle(content.Width, content.Height))
	case Drawer:
		content.DrawCanvas(ctx, x, y, col)
	default:
		return fmt.Errorf("canvas 渲染器无法绘制节点内容 %T", content)
	}
	return nil
}

func (r *Renderer) fontFamily(font layout.FontRef) (*canvas.FontFamily, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}
	name := font.Name
	if name == "" {
		return nil, fmt.Errorf("字体引用为空")
	}
	family := canvas.NewFontFamily(name)
	if font.File {
		data, err := os.ReadFile(r.resolve(name))
		if err != nil {
			return nil, fmt.Errorf("读取字体文件 %s 失败: %w", name, err)
		}
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载字体文件 %s 失败: %w", name, err)
		}
	} else {
		if err := family.LoadSystemFont(name, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载系统字体 %s 失败: %w", name, err)
		}
	}
	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("图片路径为空")
	}
	full := r.resolve(path)
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if img, ok := r.images[full]; ok {
		return img, nil
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", path, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", path, err)
	}
	r.images[full] = img
	return img, nil
}

func (r *Renderer) resolve(path string) string {
	if r.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.baseDir, path)
}

func fontCacheKey(font layout.FontRef) string {
	if font.File {
		return "file|" + font.Name
	}
	return "system|" + font.Name
}

func colorFromLayout(c layout.Color, opacity uint8) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(opacity)/255.0)
}

// outlineOffsets 返回描边所需的八个方向偏移。
func outlineOffsets(w float64) []layout.Vec2 {
	return []layout.Vec2{
		{X: -w, Y: -w}, {X: 0, Y: -w}, {X: w, Y: -w},
		{X: -w, Y: 0}, {X: w, Y: 0},
		{X: -w, Y: w}, {X: 0, Y: w}, {X: w, Y: w},
	}
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * mmToPt }

const (
	ptToMm = 0.352777
	mmToPt = 1.0 / ptToMm
)
