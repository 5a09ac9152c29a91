package highlight

import (
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// SharedText is the last rendered text, written by the widget's render and
// read by the scheduler to size its cadence.
type SharedText struct {
	mu sync.RWMutex
	s  string
}

// Store replaces the text.
func (t *SharedText) Store(s string) {
	t.mu.Lock()
	t.s = s
	t.mu.Unlock()
}

// Load returns the text.
func (t *SharedText) Load() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.s
}

// Split divides text at the playback position. The offset is
//
//	round((elapsed + sinceSync) / length * runeCount)
//
// clamped to [0, runeCount]. A non-positive length gives offset 0.
func Split(text string, elapsed, length, sinceSync time.Duration) (done, rest string, offset int) {
	n := utf8.RuneCountInString(text)
	if length > 0 {
		pos := float64(elapsed+sinceSync) / float64(length)
		offset = int(math.Round(pos * float64(n)))
	}
	offset = min(max(offset, 0), n)

	i := 0
	for byteIdx := range text {
		if i == offset {
			return text[:byteIdx], text[byteIdx:], offset
		}
		i++
	}
	return text, "", offset
}

// Batch renders text as two frames: the played part on highlightBg with the
// right padding removed, then the rest with the left padding removed, so the
// pair reads as one padded segment.
func Batch(attr frame.Attributes, highlightBg, text string, elapsed, length, sinceSync time.Duration) frame.Batch {
	done, rest, _ := Split(text, elapsed, length, sinceSync)
	return frame.Batch{
		{Attr: attr.StripRightPadding().WithBackground(highlightBg), Text: done},
		{Attr: attr.StripLeftPadding(), Text: rest},
	}
}
