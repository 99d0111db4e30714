package layout

import "sync/atomic"

// Handle 是对调用方自定义节点的引用计数句柄。
// NewHandle 返回时计数为 1，代表调用方自己持有的那一份引用。
type Handle struct {
	content   Renderable
	refs      atomic.Int32
	onRelease func()
}

// NewHandle 包装一个调用方拥有的可渲染对象。onRelease 在最后一个引用释放时调用，可为 nil。
func NewHandle(content Renderable, onRelease func()) *Handle {
	h := &Handle{content: content, onRelease: onRelease}
	h.refs.Store(1)
	return h
}

// Content 返回句柄内容；句柄已完全释放时返回 nil。
func (h *Handle) Content() Renderable {
	if h == nil || h.refs.Load() <= 0 {
		return nil
	}
	return h.content
}

// Retain 增加一次引用并返回自身，便于链式调用。
func (h *Handle) Retain() *Handle {
	if h != nil {
		h.refs.Add(1)
	}
	return h
}

// Release 释放一次引用，返回是否为最后一次释放。
func (h *Handle) Release() bool {
	if h == nil {
		return false
	}
	n := h.refs.Add(-1)
	if n != 0 {
		return false
	}
	if h.onRelease != nil {
		h.onRelease()
	}
	return true
}

// Refs 返回当前引用数。
func (h *Handle) Refs() int {
	if h == nil {
		return 0
	}
	return int(h.refs.Load())
}
