package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bar"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/mpd"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/theme"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
)

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := bar.ParseOutput(c.Bar.Output); err != nil {
		errs = append(errs, fmt.Errorf("bar.output: %w", err))
	}
	if c.Bar.Width < 0 {
		errs = append(errs, fmt.Errorf("bar.width: must not be negative, got %d", c.Bar.Width))
	}
	if c.Bar.HealthFile != "" && c.Bar.HealthInterval.Duration <= 0 {
		errs = append(errs, errors.New("bar.health_interval: must be positive when health_file is set"))
	}
	if !c.themeExists() {
		errs = append(errs, fmt.Errorf("bar.theme: unknown theme %q (built in: %v)", c.Bar.Theme, theme.Names()))
	}
	if len(c.Widgets) == 0 && c.Bar.Preset != "" && !slices.Contains(PresetNames(), c.Bar.Preset) {
		errs = append(errs, fmt.Errorf("bar.preset: unknown preset %q (want one of %v)", c.Bar.Preset, PresetNames()))
	}

	for i, w := range c.Widgets {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("widget[%d] (%s): %w", i, w.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) themeExists() bool {
	if c.Bar.Theme == "" {
		return true
	}
	if _, ok := theme.Lookup(c.Bar.Theme); ok {
		return true
	}
	if c.Bar.ThemeDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.Bar.ThemeDir, c.Bar.Theme+".toml"))
	return err == nil
}

// Validate checks the fields that apply to w.Type.
func (w WidgetConfig) Validate() error {
	var errs []error
	if !slices.Contains(WidgetTypes, w.Type) {
		return fmt.Errorf("unknown type %q (want one of %v)", w.Type, WidgetTypes)
	}

	for name, c := range map[string]string{"fg": w.Foreground, "bg": w.Background, "highlight_color": w.HighlightColor} {
		if !frame.ValidColor(c) {
			errs = append(errs, fmt.Errorf("%s: invalid colour %q", name, c))
		}
	}
	if w.PaddingLeft < 0 || w.PaddingRight < 0 {
		errs = append(errs, errors.New("padding must not be negative"))
	}

	switch w.Type {
	case TypeClock:
		if _, err := ticker.ParsePrecision(w.Precision); err != nil {
			errs = append(errs, err)
		}
	case TypeFile:
		if w.Path == "" {
			errs = append(errs, errors.New("path is required"))
		}
	case TypeMPD:
		for _, s := range w.Subsystems {
			if _, err := mpd.ParseSubsystem(s); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
