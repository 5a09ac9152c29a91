package theme

import (
	"strconv"

	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// ForProfile maps the hex colours of t onto the xterm-256 palette when p
// cannot show true colour. Ascii and TrueColor return t unchanged: the
// former drops colour at render time anyway.
func ForProfile(t Theme, p termenv.Profile) Theme {
	if p != termenv.ANSI256 && p != termenv.ANSI {
		return t
	}
	t.Foreground = to256(t.Foreground)
	t.Background = to256(t.Background)
	t.Highlight = to256(t.Highlight)
	t.Warning = to256(t.Warning)
	t.Charging = to256(t.Charging)
	t.Dim = to256(t.Dim)
	return t
}

// cubeLevels are the channel values of the 6x6x6 cube at indexes 16..231.
var cubeLevels = [6]int{0, 95, 135, 175, 215, 255}

// to256 returns the palette index nearest to hex as a decimal string,
// choosing between the colour cube and the gray ramp (232..255, levels
// 8, 18, ... 238). Anything that is not a hex colour is returned as is.
func to256(hex string) string {
	r8, g8, b8, ok := frame.ParseHex(hex)
	if !ok {
		return hex
	}
	r, g, b := int(r8), int(g8), int(b8)

	ri, gi, bi := nearestLevel(r), nearestLevel(g), nearestLevel(b)
	best := 16 + 36*ri + 6*gi + bi
	bestDist := sqDist(r, g, b, cubeLevels[ri], cubeLevels[gi], cubeLevels[bi])

	step := min(max((r+g+b)/3-3, 0)/10, 23)
	gray := 8 + 10*step
	if sqDist(r, g, b, gray, gray, gray) < bestDist {
		best = 232 + step
	}
	return strconv.Itoa(best)
}

func nearestLevel(v int) int {
	best := 0
	for i, lv := range cubeLevels {
		if abs(v-lv) < abs(v-cubeLevels[best]) {
			best = i
		}
	}
	return best
}

func sqDist(r1, g1, b1, r2, g2, b2 int) int {
	dr, dg, db := r1-r2, g1-g2, b1-b2
	return dr*dr + dg*dg + db*db
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
