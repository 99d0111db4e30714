package layout

import "unicode/utf8"

// CodepointCount 返回 s 中的 Unicode 码点个数。
func CodepointCount(s string) int {
	return utf8.RuneCountInString(s)
}

// SubstringByCodepoints 按码点偏移截取子串，越界部分被裁剪。
func SubstringByCodepoints(s string, start, length int) string {
	if start < 0 {
		length += start
		start = 0
	}
	if length <= 0 {
		return ""
	}
	i := 0
	from, to := -1, len(s)
	for off := range s {
		if i == start {
			from = off
		}
		if i == start+length {
			to = off
			break
		}
		i++
	}
	if from < 0 {
		return ""
	}
	return s[from:to]
}
