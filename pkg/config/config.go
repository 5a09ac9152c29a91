package config

import (
	"os"
	"path/filepath"
	"time"
)

// Widget types understood by the builder.
const (
	TypeClock       = "clock"
	TypeBattery     = "battery"
	TypeFile        = "file"
	TypeSeparator   = "separator"
	TypePlaceholder = "placeholder"
	TypeMPD         = "mpd"
	TypeSysLoad     = "sysload"
)

// WidgetTypes lists every valid WidgetConfig.Type.
var WidgetTypes = []string{TypeClock, TypeBattery, TypeFile, TypeSeparator, TypePlaceholder, TypeMPD, TypeSysLoad}

// Config is the whole configuration file.
type Config struct {
	Bar     BarConfig      `toml:"bar" yaml:"bar"`
	Widgets []WidgetConfig `toml:"widget" yaml:"widget"`
}

// BarConfig holds the settings that are not specific to one widget.
type BarConfig struct {
	Theme          string   `toml:"theme" yaml:"theme"`
	ThemeDir       string   `toml:"theme_dir" yaml:"theme_dir"`
	Preset         string   `toml:"preset" yaml:"preset"` // used when no [[widget]] is given
	Output         string   `toml:"output" yaml:"output"` // auto, ansi or plain
	Width          int      `toml:"width" yaml:"width"`   // 0 detects the terminal width
	HealthFile     string   `toml:"health_file" yaml:"health_file"`
	HealthInterval Duration `toml:"health_interval" yaml:"health_interval"`
	LogFile        string   `toml:"log_file" yaml:"log_file"`
	PIDFile        string   `toml:"pid_file" yaml:"pid_file"`
}

// WidgetConfig is one [[widget]] table. Which fields apply depends on Type;
// the rest are ignored.
type WidgetConfig struct {
	Type string `toml:"type" yaml:"type"`

	// Presentation, common to every type. Colours default to the theme.
	Foreground   string `toml:"fg" yaml:"fg"`
	Background   string `toml:"bg" yaml:"bg"`
	Bold         bool   `toml:"bold" yaml:"bold"`
	Font         string `toml:"font" yaml:"font"`
	PaddingLeft  int    `toml:"padding_left" yaml:"padding_left"`
	PaddingRight int    `toml:"padding_right" yaml:"padding_right"`

	// clock
	Format    string `toml:"format" yaml:"format"` // also mpd
	Precision string `toml:"precision" yaml:"precision"`

	// battery: sysfs power supply name, empty for the first system battery
	Battery string `toml:"battery" yaml:"battery"`

	// battery, sysload
	Interval Duration `toml:"interval" yaml:"interval"`

	// file
	Path string   `toml:"path" yaml:"path"`
	Mask []string `toml:"mask" yaml:"mask"`

	// separator, placeholder
	Text    string `toml:"text" yaml:"text"`
	Stretch bool   `toml:"stretch" yaml:"stretch"`

	// mpd
	Addr           string   `toml:"addr" yaml:"addr"`
	Password       string   `toml:"password" yaml:"password"`
	Subsystems     []string `toml:"subsystems" yaml:"subsystems"`
	ProgressBar    bool     `toml:"progress_bar" yaml:"progress_bar"`
	HighlightColor string   `toml:"highlight_color" yaml:"highlight_color"`
	Fallback       Duration `toml:"fallback" yaml:"fallback"`

	// sysload
	ShowLoad  bool   `toml:"show_load" yaml:"show_load"`
	DiskMount string `toml:"disk_mount" yaml:"disk_mount"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Bar: BarConfig{
			Theme:          "default",
			ThemeDir:       filepath.Join(xdgConfigHome(home), appName, "themes"),
			Preset:         "default",
			Output:         "auto",
			HealthInterval: Duration{30 * time.Second},
		},
	}
}

// Resolved returns the widget list to build: the configured widgets, or
// the preset's when none are configured.
func (c *Config) Resolved() []WidgetConfig {
	if len(c.Widgets) > 0 {
		return c.Widgets
	}
	ws := Preset(c.Bar.Preset)
	applyMPDEnv(ws)
	return ws
}
