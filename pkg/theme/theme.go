// Package theme holds the colour palettes widgets draw with. A palette is
// small on purpose: a bar has a foreground, a background, a highlight for
// progress and focus, a warning colour and a dim colour for separators.
package theme

import (
	"sort"
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "default"

// Theme is a named bar palette. Colours are "#RRGGBB" strings, or ANSI
// indexes after Adapt.
type Theme struct {
	Name       string
	Foreground string
	Background string
	Highlight  string // MPD progress, accents
	Warning    string // low battery, failing widgets
	Charging   string // battery charging
	Dim        string // separators, placeholders
}

// Attributes returns frame attributes with the theme's foreground and
// background.
func (t Theme) Attributes() frame.Attributes {
	return frame.Attributes{Foreground: t.Foreground, Background: t.Background}
}

// DimAttributes is Attributes with the dim colour as foreground.
func (t Theme) DimAttributes() frame.Attributes {
	return t.Attributes().WithForeground(t.Dim)
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	registerBuiltins()
}

// Lookup returns the named theme. Names are case-insensitive.
func Lookup(name string) (Theme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[strings.ToLower(name)]
	return t, ok
}

// Get returns a named theme, falling back to the default if not found.
func Get(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	t, _ := Lookup(DefaultName)
	return t
}

// Names returns all available theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a theme under its lowercase name.
func Register(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
