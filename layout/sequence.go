package layout

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange 表示调用方传入了越界下标。
var ErrIndexOutOfRange = errors.New("layout: 下标越界")

// Sequence 是有序的元素列表，下标始终连续。
// 任何修改都会触发 onChange，RichText 借此把排版标记为过期。
type Sequence struct {
	items    []Element
	onChange func()
}

func newSequence(onChange func()) *Sequence {
	return &Sequence{onChange: onChange}
}

// Len 返回元素个数。
func (s *Sequence) Len() int { return len(s.items) }

// At 返回下标 i 处的元素，越界时返回 nil。
func (s *Sequence) At(i int) Element {
	if i < 0 || i >= len(s.items) {
		return nil
	}
	return s.items[i]
}

// Elements 返回元素列表的副本。
func (s *Sequence) Elements() []Element {
	out := make([]Element, len(s.items))
	copy(out, s.items)
	return out
}

// Insert 在 index 处插入元素，序列取得元素所有权。index 允许等于 Len()。
func (s *Sequence) Insert(e Element, index int) error {
	if index < 0 || index > len(s.items) {
		return fmt.Errorf("插入位置 %d 超出范围 [0, %d]: %w", index, len(s.items), ErrIndexOutOfRange)
	}
	s.items = append(s.items, nil)
	copy(s.items[index+1:], s.items[index:])
	s.items[index] = e
	s.changed()
	return nil
}

// Append 将元素追加到末尾。
func (s *Sequence) Append(e Element) {
	s.items = append(s.items, e)
	s.changed()
}

// RemoveAt 移除并释放下标 index 处的元素。越界时返回错误且不修改状态。
func (s *Sequence) RemoveAt(index int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("删除位置 %d 超出范围 [0, %d): %w", index, len(s.items), ErrIndexOutOfRange)
	}
	e := s.items[index]
	s.items = append(s.items[:index], s.items[index+1:]...)
	releaseElement(e)
	s.changed()
	return nil
}

// Remove 按身份移除第一个匹配的元素；不存在时什么也不做。
func (s *Sequence) Remove(e Element) bool {
	for i, item := range s.items {
		if item == e {
			s.items = append(s.items[:i], s.items[i+1:]...)
			releaseElement(item)
			s.changed()
			return true
		}
	}
	return false
}

// Clear 释放全部元素。
func (s *Sequence) Clear() {
	if len(s.items) == 0 {
		return
	}
	for _, e := range s.items {
		releaseElement(e)
	}
	s.items = nil
	s.changed()
}

func (s *Sequence) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func releaseElement(e Element) {
	if e != nil {
		e.release()
	}
}
