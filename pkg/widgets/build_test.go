package widgets

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/config"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/mpd"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/theme"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- Build ---

func TestFromConfigTypes(t *testing.T) {
	th := theme.Get("nord")

	w, err := FromConfig(config.WidgetConfig{Type: config.TypeClock, Precision: "seconds", Foreground: "ffffff", PaddingRight: 1}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	clock := w.(*Clock)
	if clock.Precision != ticker.Seconds || clock.Attr.Foreground != "#ffffff" || clock.Attr.Background != th.Background {
		t.Errorf("clock = %+v", clock)
	}
	if clock.Attr.Padding.Right != 1 {
		t.Errorf("padding = %+v", clock.Attr.Padding)
	}

	w, err = FromConfig(config.WidgetConfig{Type: config.TypeBattery, Interval: config.Duration{Duration: time.Minute}}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if b := w.(*Battery); b.WarningColor != th.Warning || b.ChargingColor != th.Charging || b.Interval != time.Minute {
		t.Errorf("battery = %+v", b)
	}

	w, err = FromConfig(config.WidgetConfig{Type: config.TypeSeparator}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if s := w.(*Separator); s.Text != defaultSeparator || s.Attr.Foreground != th.Dim {
		t.Errorf("separator = %+v", s)
	}

	w, err = FromConfig(config.WidgetConfig{Type: config.TypePlaceholder, Stretch: true}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if p := w.(*Placeholder); len(p.Frames) != 1 || !p.Frames[0].Stretch {
		t.Errorf("placeholder = %+v", p)
	}

	w, err = FromConfig(config.WidgetConfig{Type: config.TypeMPD, Subsystems: []string{"Player"}, ProgressBar: true}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	m := w.(*MPD)
	if len(m.Subsystems) != 1 || m.Subsystems[0] != mpd.SubsystemPlayer || m.HighlightColor != th.Highlight || !m.ProgressBar {
		t.Errorf("mpd = %+v", m)
	}

	w, err = FromConfig(config.WidgetConfig{Type: config.TypeSysLoad, ShowLoad: true, DiskMount: "/"}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if s := w.(*SysLoad); !s.ShowLoad || s.DiskMount != "/" {
		t.Errorf("sysload = %+v", s)
	}

	w, err = FromConfig(config.WidgetConfig{Type: config.TypeFile, Path: "/tmp/x", Mask: []string{"modify"}}, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if f := w.(*File); f.Path != "/tmp/x" {
		t.Errorf("file = %+v", f)
	}
}

func TestFromConfigErrors(t *testing.T) {
	th := theme.Get("default")
	tests := []struct {
		name string
		wc   config.WidgetConfig
		want string
	}{
		{"unknown type", config.WidgetConfig{Type: "weather"}, "unknown widget type"},
		{"bad precision", config.WidgetConfig{Type: config.TypeClock, Precision: "weeks"}, "unknown precision"},
		{"file without path", config.WidgetConfig{Type: config.TypeFile}, "path is required"},
		{"bad mask", config.WidgetConfig{Type: config.TypeFile, Path: "/x", Mask: []string{"open"}}, "unknown file event"},
		{"bad subsystem", config.WidgetConfig{Type: config.TypeMPD, Subsystems: []string{"radio"}}, "unknown mpd subsystem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.wc, th, quietLog)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBuildPresetAndErrors(t *testing.T) {
	th := theme.Get("default")
	cfg := &config.Config{Bar: config.BarConfig{Preset: "laptop"}}
	ws, err := Build(cfg, th, quietLog)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != len(config.Preset("laptop")) {
		t.Errorf("built %d widgets", len(ws))
	}

	cfg.Widgets = []config.WidgetConfig{{Type: config.TypeClock}, {Type: "weather"}, {Type: config.TypeFile}}
	_, err = Build(cfg, th, quietLog)
	if err == nil || !strings.Contains(err.Error(), "widget[1] (weather)") || !strings.Contains(err.Error(), "widget[2] (file)") {
		t.Errorf("Build = %v", err)
	}
}
