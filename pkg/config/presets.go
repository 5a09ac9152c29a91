package config

import "sort"

var presets = map[string]func() []WidgetConfig{
	"default": defaultPreset,
	"minimal": minimalPreset,
	"laptop":  laptopPreset,
	"music":   musicPreset,
}

// Preset returns the widget list for a named preset. If the name is not
// recognized, the "default" preset is returned.
func Preset(name string) []WidgetConfig {
	if fn, ok := presets[name]; ok {
		return fn()
	}
	return defaultPreset()
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func separator() WidgetConfig {
	return WidgetConfig{Type: TypeSeparator, Text: " | "}
}

func stretch() WidgetConfig {
	return WidgetConfig{Type: TypePlaceholder, Stretch: true}
}

// defaultPreset: [stretch] [sysload] | [clock]
func defaultPreset() []WidgetConfig {
	return []WidgetConfig{
		stretch(),
		{Type: TypeSysLoad},
		separator(),
		{Type: TypeClock, PaddingRight: 1},
	}
}

// minimalPreset: [stretch] [clock]
func minimalPreset() []WidgetConfig {
	return []WidgetConfig{
		stretch(),
		{Type: TypeClock, PaddingRight: 1},
	}
}

// laptopPreset: [stretch] [sysload] | [battery] | [clock]
func laptopPreset() []WidgetConfig {
	return []WidgetConfig{
		stretch(),
		{Type: TypeSysLoad, ShowLoad: true},
		separator(),
		{Type: TypeBattery},
		separator(),
		{Type: TypeClock, PaddingRight: 1},
	}
}

// musicPreset: [mpd with progress] [stretch] [clock]
func musicPreset() []WidgetConfig {
	return []WidgetConfig{
		{Type: TypeMPD, ProgressBar: true, PaddingLeft: 1},
		stretch(),
		{Type: TypeClock, Precision: "seconds", Format: "%H:%M:%S", PaddingRight: 1},
	}
}
