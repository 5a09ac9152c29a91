package ticker

import (
	"fmt"
	"strings"
	"time"
)

// Precision selects the wall-clock boundary an aligned ticker fires on.
type Precision int

const (
	Seconds Precision = iota
	Minutes
	Hours
	Days
)

// String returns the config name of the precision.
func (p Precision) String() string {
	switch p {
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	default:
		return fmt.Sprintf("precision(%d)", int(p))
	}
}

// ParsePrecision maps a config string ("seconds", "minute", "h", ...) to a
// Precision.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "sec", "second", "seconds":
		return Seconds, nil
	case "", "m", "min", "minute", "minutes":
		return Minutes, nil
	case "h", "hour", "hours":
		return Hours, nil
	case "d", "day", "days":
		return Days, nil
	default:
		return 0, fmt.Errorf("unknown precision %q (want seconds, minutes, hours or days)", s)
	}
}

// UntilNext returns the time remaining from now to the next boundary of p in
// now's location. The result is always positive: at an exact boundary it is
// one full unit.
func (p Precision) UntilNext(now time.Time) time.Duration {
	y, mo, d := now.Date()
	h, mi, s := now.Clock()
	loc := now.Location()

	var next time.Time
	switch p {
	case Seconds:
		next = time.Date(y, mo, d, h, mi, s, 0, loc).Add(time.Second)
	case Hours:
		next = time.Date(y, mo, d, h, 0, 0, 0, loc).Add(time.Hour)
	case Days:
		next = time.Date(y, mo, d+1, 0, 0, 0, 0, loc)
	default:
		next = time.Date(y, mo, d, h, mi, 0, 0, loc).Add(time.Minute)
	}
	return next.Sub(now)
}

// Aligned returns a Ticker that fires on every boundary of p in local time.
func Aligned(p Precision) *Ticker {
	return New(func() time.Duration {
		return p.UntilNext(time.Now())
	})
}
