package script

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/papyrus-richtext/layout"
)

// Options 控制脚本中长度与默认值的解释方式。
type Options struct {
	// Unit 为排版单位（canvas 后端为 mm，raster 后端为 px）。
	Unit Unit
	// DPMM 用于 px 与物理单位互换，<=0 时取 DefaultDPMM。
	DPMM float64
	// DefaultFont 为 text 命令未指定 font 时使用的字体。
	DefaultFont string
	// DefaultFontSize 以排版单位表示，<=0 时取 12pt。
	DefaultFontSize float64
	DefaultColor    layout.Color
	Logger          *log.Logger
}

// Error 记录出错命令及其位置。
type Error struct {
	Pos     lexer.Position
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script: %s: %s: %v", e.Pos, e.Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type applier struct {
	rt   *layout.RichText
	data any
	opts Options
	log  *log.Logger
}

// Apply 依次执行 doc 中的命令。遇到第一个错误即停止，已执行的命令不回滚。
func Apply(doc *Document, rt *layout.RichText, data any, opts Options) error {
	if doc == nil || doc.Block == nil {
		return errors.New("script: 文档为空")
	}
	if rt == nil {
		return errors.New("script: RichText 为空")
	}
	if opts.Unit == UnitNone {
		opts.Unit = UnitMM
	}
	if opts.DPMM <= 0 {
		opts.DPMM = DefaultDPMM
	}
	if opts.DefaultFont == "" {
		opts.DefaultFont = "Helvetica"
	}
	if opts.DefaultFontSize <= 0 {
		opts.DefaultFontSize = Length{Value: 12, Unit: UnitPT}.To(opts.Unit, opts.DPMM)
	}
	a := &applier{rt: rt, data: data, opts: opts, log: opts.Logger}
	if a.log == nil {
		a.log = log.New(io.Discard, "", 0)
	}

	for _, st := range doc.Block.Statements {
		if st.Text != nil {
			return &Error{Pos: st.Text.Pos, Command: "text", Err: errors.New("文本字面量只能出现在 text 命令内")}
		}
		if err := a.exec(st.Command); err != nil {
			return &Error{Pos: st.Command.Pos, Command: st.Command.Name, Err: err}
		}
	}
	return nil
}

func (a *applier) exec(cmd *Command) error {
	args := cmd.Args
	switch cmd.Name {
	case "text", "image", "box":
		el, err := a.element(cmd.Name, args, cmd.Block)
		if err != nil {
			return err
		}
		a.rt.PushBackElement(el)
		return nil
	case "insert":
		if len(args) < 2 {
			return errors.New("用法: insert <index> <text|image|box> ...")
		}
		idx, err := strconv.Atoi(args[0].Value)
		if err != nil {
			return fmt.Errorf("插入位置 %q 不是整数", args[0].Value)
		}
		el, err := a.element(args[1].Value, args[2:], cmd.Block)
		if err != nil {
			return err
		}
		if err := a.rt.InsertElement(el, idx); err != nil {
			releaseUnowned(el)
			return err
		}
		return nil
	}
	if cmd.Block != nil {
		return fmt.Errorf("命令 %s 不接受块", cmd.Name)
	}
	switch cmd.Name {
	case "size":
		return a.size(args)
	case "spacing":
		if len(args) != 1 {
			return errors.New("用法: spacing <length>")
		}
		v, err := a.length(args[0])
		if err != nil {
			return err
		}
		a.rt.SetVerticalSpace(v)
	case "anchor":
		x, y, err := a.pair(args, false)
		if err != nil {
			return err
		}
		a.rt.SetAnchorPoint(layout.Vec2{X: x, Y: y})
	case "position":
		x, y, err := a.pair(args, true)
		if err != nil {
			return err
		}
		a.rt.SetPosition(layout.Vec2{X: x, Y: y})
	case "remove":
		return a.remove(args)
	case "clear":
		a.rt.Elements().Clear()
	case "layout":
		return a.rt.RequestLayout()
	default:
		return fmt.Errorf("未知命令 %q", cmd.Name)
	}
	return nil
}

func (a *applier) size(args []*Lexeme) error {
	if len(args) == 1 && args[0].Value == "auto" {
		a.rt.IgnoreContentAdaptWithSize(true)
		return nil
	}
	w, h, err := a.pair(args, true)
	if err != nil {
		return errors.New("用法: size <width> <height> | size auto")
	}
	a.rt.IgnoreContentAdaptWithSize(false)
	a.rt.SetContentSize(w, h)
	return nil
}

func (a *applier) remove(args []*Lexeme) error {
	switch {
	case len(args) == 1:
		idx, err := strconv.Atoi(args[0].Value)
		if err != nil {
			return fmt.Errorf("删除位置 %q 不是整数", args[0].Value)
		}
		return a.rt.RemoveElementAt(idx)
	case len(args) == 2 && args[0].Value == "tag":
		tag, err := strconv.Atoi(args[1].Value)
		if err != nil {
			return fmt.Errorf("tag %q 不是整数", args[1].Value)
		}
		for _, el := range a.rt.Elements().Elements() {
			if el.Tag() == tag {
				a.rt.RemoveElement(el)
				return nil
			}
		}
		a.log.Printf("remove tag %d: 没有匹配的元素", tag)
		return nil
	default:
		return errors.New("用法: remove <index> | remove tag <n>")
	}
}

// element 根据命令参数构造元素。
func (a *applier) element(kind string, args []*Lexeme, block *Block) (layout.Element, error) {
	attrs, err := parseAttrs(args, "underline")
	if err != nil {
		return nil, err
	}
	tag, err := intAttr(attrs, "tag", 0)
	if err != nil {
		return nil, err
	}
	col := a.opts.DefaultColor
	if v, ok := attrs["color"]; ok {
		if col, err = ParseColor(v); err != nil {
			return nil, err
		}
	}
	opacity, err := intAttr(attrs, "opacity", 255)
	if err != nil {
		return nil, err
	}
	if opacity < 0 || opacity > 255 {
		return nil, fmt.Errorf("opacity %d 超出 0..255", opacity)
	}
	alpha := uint8(opacity)

	if kind != "text" && block != nil {
		return nil, fmt.Errorf("%s 不接受文本块", kind)
	}
	switch kind {
	case "text":
		content, err := a.blockText(block)
		if err != nil {
			return nil, err
		}
		font := a.opts.DefaultFont
		if v, ok := attrs["font"]; ok {
			font = Interpolate(v, a.data)
		}
		size := a.opts.DefaultFontSize
		if v, ok := attrs["size"]; ok {
			if size, err = a.lengthValue(v); err != nil {
				return nil, err
			}
		}
		outline, err := intAttr(attrs, "outline", 0)
		if err != nil {
			return nil, err
		}
		underline := attrs["underline"] == "true"
		return layout.NewText(tag, col, alpha, content, font, size, outline, underline), nil
	case "image":
		src, ok := attrs["src"]
		if !ok {
			return nil, errors.New("image 缺少 src")
		}
		return layout.NewImage(tag, col, alpha, Interpolate(src, a.data)), nil
	case "box":
		w, err := a.lengthValue(attrs["width"])
		if err != nil {
			return nil, fmt.Errorf("box width: %w", err)
		}
		h, err := a.lengthValue(attrs["height"])
		if err != nil {
			return nil, fmt.Errorf("box height: %w", err)
		}
		handle := layout.NewHandle(layout.Rect{Width: w, Height: h}, nil)
		el := layout.NewCustom(tag, col, alpha, handle)
		// 元素已持有引用，脚本不再保留自己的那一份
		handle.Release()
		return el, nil
	default:
		return nil, fmt.Errorf("未知元素类型 %q", kind)
	}
}

// blockText 拼接 text 块中的字符串，插值后做 NFC 规范化。
func (a *applier) blockText(block *Block) (string, error) {
	if block == nil {
		return "", errors.New("text 缺少文本块")
	}
	var sb strings.Builder
	for _, st := range block.Statements {
		if st.Text == nil {
			return "", fmt.Errorf("text 块内不允许命令 %q", st.Command.Name)
		}
		sb.WriteString(string(st.Text.Value))
	}
	return norm.NFC.String(Interpolate(sb.String(), a.data)), nil
}

func (a *applier) pair(args []*Lexeme, lengths bool) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("需要两个数值")
	}
	parse := func(l *Lexeme) (float64, error) {
		if lengths {
			return a.length(l)
		}
		return strconv.ParseFloat(l.Value, 64)
	}
	x, err := parse(args[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := parse(args[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (a *applier) length(l *Lexeme) (float64, error) { return a.lengthValue(l.Value) }

func (a *applier) lengthValue(v string) (float64, error) {
	l, err := ParseLength(Interpolate(v, a.data))
	if err != nil {
		return 0, err
	}
	return l.To(a.opts.Unit, a.opts.DPMM), nil
}

// parseAttrs 把 `key value` 参数对解析为 map；flags 中的键可以省略取值。
func parseAttrs(args []*Lexeme, flags ...string) (map[string]string, error) {
	result := map[string]string{}
	isFlag := map[string]bool{}
	for _, f := range flags {
		isFlag[f] = true
	}
	for cursor := 0; cursor < len(args); {
		key := args[cursor].Value
		if args[cursor].Type != "Ident" {
			return nil, fmt.Errorf("参数 %q 不是属性名", args[cursor].Raw)
		}
		if isFlag[key] {
			val := "true"
			if cursor+1 < len(args) && (args[cursor+1].Value == "true" || args[cursor+1].Value == "false") {
				val = args[cursor+1].Value
				cursor++
			}
			result[key] = val
			cursor++
			continue
		}
		if cursor+1 >= len(args) {
			return nil, fmt.Errorf("属性 %s 缺少取值", key)
		}
		result[key] = args[cursor+1].Value
		cursor += 2
	}
	return result, nil
}

func intAttr(attrs map[string]string, key string, def int) (int, error) {
	v, ok := attrs[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s %q 不是整数", key, v)
	}
	return n, nil
}

// ParseColor 解析 #rgb、#rrggbb 或 #rrggbbaa 形式的颜色，忽略 alpha。
func ParseColor(value string) (layout.Color, error) {
	value = strings.TrimPrefix(value, "#")
	if _, err := strconv.ParseUint(value, 16, 64); err != nil {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	switch len(value) {
	case 3:
		return layout.Color{
			R: mustHex(strings.Repeat(value[0:1], 2)),
			G: mustHex(strings.Repeat(value[1:2], 2)),
			B: mustHex(strings.Repeat(value[2:3], 2)),
		}, nil
	case 6, 8:
		return layout.Color{
			R: mustHex(value[0:2]),
			G: mustHex(value[2:4]),
			B: mustHex(value[4:6]),
		}, nil
	default:
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) uint8 {
	v, _ := strconv.ParseUint(s, 16, 8)
	return uint8(v)
}

// releaseUnowned 释放插入失败的元素所持有的资源。
func releaseUnowned(el layout.Element) {
	if c, ok := el.(*layout.CustomElement); ok {
		c.Handle().Release()
	}
}
