package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // 无单位，按目标单位原样解释
	UnitMM
	UnitCM
	UnitIN
	UnitPT
	UnitPX
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm

	// DefaultDPMM 为像素与毫米互换时的默认分辨率（每毫米像素数）。
	DefaultDPMM = 4.0
)

// String returns the unit suffix.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// ParseUnit 解析后端单位名，空字符串视为 mm。
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mm":
		return UnitMM, nil
	case "cm":
		return UnitCM, nil
	case "in":
		return UnitIN, nil
	case "pt":
		return UnitPT, nil
	case "px":
		return UnitPX, nil
	default:
		return UnitNone, fmt.Errorf("未知单位 %q", s)
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToMM converts to millimetres. dpmm is used for pixel lengths.
func (l Length) ToMM(dpmm float64) float64 {
	if dpmm <= 0 {
		dpmm = DefaultDPMM
	}
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	case UnitPX:
		return l.Value / dpmm
	default:
		return l.Value
	}
}

// To converts this length to target. Unit-less values are returned as-is.
func (l Length) To(target Unit, dpmm float64) float64 {
	if l.Unit == UnitNone || l.Unit == target {
		return l.Value
	}
	if dpmm <= 0 {
		dpmm = DefaultDPMM
	}
	mm := l.ToMM(dpmm)
	switch target {
	case UnitCM:
		return mm / 10
	case UnitIN:
		return mm / 25.4
	case UnitPT:
		return mm * MmToPt
	case UnitPX:
		return mm * dpmm
	default:
		return mm
	}
}

// ParseLength parses a length such as "12pt" or "3.5mm".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}
