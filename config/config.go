// Package config loads the optional YAML configuration of the command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/papyrus-richtext/layout"
	"github.com/ByLCY/papyrus-richtext/script"
)

// Common errors
var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrBadFormat      = errors.New("format not supported by backend")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Backend names.
const (
	BackendCanvas = "canvas"
	BackendRaster = "raster"
)

// Config 是命令行工具的完整配置，所有字段都可以被命令行参数覆盖。
type Config struct {
	// Backend 为 canvas（PDF/SVG，单位 mm）或 raster（PNG，单位 px）。
	Backend string `yaml:"backend" json:"backend"`

	// Format 为输出格式，留空时按后端取默认值。
	Format string `yaml:"format" json:"format,omitempty"`

	// BaseDir 用于解析字体与图片的相对路径，留空时为脚本所在目录。
	BaseDir string `yaml:"base-dir" json:"base_dir,omitempty"`

	// DPMM 为每毫米像素数。
	DPMM float64 `yaml:"dpmm" json:"dpmm,omitempty"`

	// Title 写入 PDF 元信息。
	Title string `yaml:"title" json:"title,omitempty"`

	// Background 为 raster 后端的底色，留空表示透明。
	Background string `yaml:"background" json:"background,omitempty"`

	Layout *LayoutConfig `yaml:"layout" json:"layout,omitempty"`
	Text   *TextConfig   `yaml:"text" json:"text,omitempty"`
}

// LayoutConfig 提供脚本执行前的初始盒子设置。
type LayoutConfig struct {
	Width    string `yaml:"width" json:"width,omitempty"`
	Height   string `yaml:"height" json:"height,omitempty"`
	Spacing  string `yaml:"spacing" json:"spacing,omitempty"`
	AutoSize bool   `yaml:"auto-size" json:"auto_size"`
}

// TextConfig 为 text 命令的默认值。
type TextConfig struct {
	Font  string `yaml:"font" json:"font,omitempty"`
	Size  string `yaml:"size" json:"size,omitempty"`
	Color string `yaml:"color" json:"color,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// LoadConfig loads a configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data, applies defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SetDefaults fills every empty field.
func (c *Config) SetDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendCanvas
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "" {
		if c.Backend == BackendRaster {
			c.Format = "png"
		} else {
			c.Format = "pdf"
		}
	}
	if c.DPMM <= 0 {
		c.DPMM = script.DefaultDPMM
	}
	if c.Layout == nil {
		c.Layout = &LayoutConfig{}
	}
	if c.Text == nil {
		c.Text = &TextConfig{}
	}
	if c.Text.Font == "" {
		c.Text.Font = "Helvetica"
	}
	if c.Text.Size == "" {
		c.Text.Size = "12pt"
	}
	if c.Text.Color == "" {
		c.Text.Color = "#000"
	}
}

// Validate checks backend/format pairs, lengths and colors.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCanvas:
		if c.Format != "pdf" && c.Format != "svg" {
			return &ConfigError{Field: "format", Message: fmt.Sprintf("canvas 后端不支持 %q", c.Format), Err: ErrBadFormat}
		}
	case BackendRaster:
		if c.Format != "png" {
			return &ConfigError{Field: "format", Message: fmt.Sprintf("raster 后端不支持 %q", c.Format), Err: ErrBadFormat}
		}
	default:
		return &ConfigError{Field: "backend", Message: fmt.Sprintf("未知后端 %q", c.Backend), Err: ErrUnknownBackend}
	}
	if c.DPMM <= 0 {
		return NewConfigError("dpmm", "must be positive")
	}
	for field, v := range map[string]string{
		"layout.width":   c.Layout.Width,
		"layout.height":  c.Layout.Height,
		"layout.spacing": c.Layout.Spacing,
		"text.size":      c.Text.Size,
	} {
		if v == "" {
			continue
		}
		if _, err := script.ParseLength(v); err != nil {
			return &ConfigError{Field: field, Message: err.Error(), Err: err}
		}
	}
	for field, v := range map[string]string{"text.color": c.Text.Color, "background": c.Background} {
		if v == "" {
			continue
		}
		if _, err := script.ParseColor(v); err != nil {
			return &ConfigError{Field: field, Message: err.Error(), Err: err}
		}
	}
	return nil
}

// Unit returns the layout unit of the configured backend.
func (c *Config) Unit() script.Unit {
	if c.Backend == BackendRaster {
		return script.UnitPX
	}
	return script.UnitMM
}

// ScriptOptions converts the text defaults into script options. Validate must have passed.
func (c *Config) ScriptOptions() script.Options {
	opts := script.Options{Unit: c.Unit(), DPMM: c.DPMM, DefaultFont: c.Text.Font}
	if l, err := script.ParseLength(c.Text.Size); err == nil {
		opts.DefaultFontSize = l.To(opts.Unit, c.DPMM)
	}
	if col, err := script.ParseColor(c.Text.Color); err == nil {
		opts.DefaultColor = col
	}
	return opts
}

// Apply 把初始盒子设置写入 rt。
func (c *Config) Apply(rt *layout.RichText) {
	unit := c.Unit()
	length := func(v string) float64 {
		l, err := script.ParseLength(v)
		if err != nil {
			return 0
		}
		return l.To(unit, c.DPMM)
	}
	if c.Layout.Spacing != "" {
		rt.SetVerticalSpace(length(c.Layout.Spacing))
	}
	if c.Layout.AutoSize {
		rt.IgnoreContentAdaptWithSize(true)
		return
	}
	if c.Layout.Width != "" || c.Layout.Height != "" {
		rt.SetContentSize(length(c.Layout.Width), length(c.Layout.Height))
	}
}
