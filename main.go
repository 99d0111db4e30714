package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ByLCY/papyrus-richtext/config"
	"github.com/ByLCY/papyrus-richtext/layout"
	"github.com/ByLCY/papyrus-richtext/renderer"
	canvasrenderer "github.com/ByLCY/papyrus-richtext/renderer/canvas"
	rasterrenderer "github.com/ByLCY/papyrus-richtext/renderer/raster"
	"github.com/ByLCY/papyrus-richtext/script"
)

func main() {
	input := flag.String("in", "examples/demo.rt", "富文本脚本路径")
	output := flag.String("out", "output/demo.pdf", "输出文件路径")
	format := flag.String("format", "", "输出格式 pdf|svg|png")
	backend := flag.String("backend", "", "渲染后端 canvas|raster")
	cfgPath := flag.String("config", "", "YAML 配置文件路径")
	debug := flag.String("debug", "", "排版调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到脚本的 JSON 数据")
	verbose := flag.Bool("v", false, "输出被跳过的元素等排版日志")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	}
	// 显式给出的参数覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
			if *format == "" {
				cfg.Format = ""
			}
		case "format":
			cfg.Format = *format
		}
	})
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "papyrus: ", log.LstdFlags)
	}

	if err := run(*input, *output, *debug, inputData, cfg, logger); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成 %s：%s\n", cfg.Format, *output)
}

// run 串联脚本解析、排版与渲染。
func run(inputPath, outputPath, debugPath string, data any, cfg *config.Config, logger *log.Logger) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("无法打开脚本文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := script.Parse(inputPath, file)
	if err != nil {
		return fmt.Errorf("解析脚本失败: %w", err)
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(inputPath)
	}
	title := cfg.Title
	if title == "" {
		title = doc.Name
	}
	b, err := newBackend(cfg, baseDir, title)
	if err != nil {
		return err
	}

	rt, err := layout.New(layout.Options{Text: b, Images: b, FileExists: b.FileExists, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg.Apply(rt)
	opts := cfg.ScriptOptions()
	opts.Logger = logger
	if err := script.Apply(doc, rt, data, opts); err != nil {
		return err
	}
	if err := rt.RequestLayout(); err != nil {
		return fmt.Errorf("排版失败: %w", err)
	}
	frame := rt.Frame()

	if debugPath != "" {
		if err := writeDebug(frame, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := b.Render(frame)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func newBackend(cfg *config.Config, baseDir, title string) (renderer.Backend, error) {
	switch cfg.Backend {
	case config.BackendCanvas:
		return canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
			BaseDir: baseDir,
			DPMM:    cfg.DPMM,
			Format:  cfg.Format,
			Title:   title,
		}), nil
	case config.BackendRaster:
		opts := rasterrenderer.Options{BaseDir: baseDir}
		if cfg.Background != "" {
			c, err := script.ParseColor(cfg.Background)
			if err != nil {
				return nil, err
			}
			opts.Background = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
		}
		return rasterrenderer.NewRendererWithOptions(opts), nil
	default:
		return nil, fmt.Errorf("未知后端 %q", cfg.Backend)
	}
}

func writeDebug(frame *layout.Frame, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(frame, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
