package frame

import (
	"strconv"
	"strings"
)

// ValidColor reports whether c is usable as a frame colour: empty, a
// "#RRGGBB"/"RRGGBB" hex string, or an ANSI index between 0 and 255.
func ValidColor(c string) bool {
	if c == "" {
		return true
	}
	if n, err := strconv.Atoi(c); err == nil {
		return n >= 0 && n <= 255
	}
	_, _, _, ok := ParseHex(c)
	return ok
}

// NormalizeColor adds the leading '#' to bare hex strings so lipgloss
// recognises them. Other values are returned unchanged.
func NormalizeColor(c string) string {
	if len(c) == 6 && !strings.HasPrefix(c, "#") {
		if _, _, _, ok := ParseHex(c); ok {
			return "#" + c
		}
	}
	return c
}

// ParseHex parses a hex color string into r, g, b components.
// Accepts "#RRGGBB" or "RRGGBB" formats.
func ParseHex(hex string) (r, g, b uint8, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	rv, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return 0, 0, 0, false
	}
	gv, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return 0, 0, 0, false
	}
	bv, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(rv), uint8(gv), uint8(bv), true
}
