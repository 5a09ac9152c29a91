package widgets

import (
	"errors"
	"fmt"
	"log/slog"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/config"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/mpd"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/theme"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

const defaultSeparator = " | "

// Build turns every configured widget into a Widget. Errors for all
// entries are returned together.
func Build(cfg *config.Config, th theme.Theme, log *slog.Logger) ([]widget.Widget, error) {
	var (
		out  []widget.Widget
		errs []error
	)
	for i, wc := range cfg.Resolved() {
		w, err := FromConfig(wc, th, log)
		if err != nil {
			errs = append(errs, fmt.Errorf("widget[%d] (%s): %w", i, wc.Type, err))
			continue
		}
		out = append(out, w)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// attributes starts from base and applies the entry's overrides.
func attributes(base frame.Attributes, wc config.WidgetConfig) frame.Attributes {
	a := base
	if wc.Foreground != "" {
		a.Foreground = frame.NormalizeColor(wc.Foreground)
	}
	if wc.Background != "" {
		a.Background = frame.NormalizeColor(wc.Background)
	}
	a.Bold = wc.Bold
	a.Font = wc.Font
	a.Padding = frame.NewPadding(wc.PaddingLeft, wc.PaddingRight, 0, 0)
	return a
}

// FromConfig builds one widget. Nothing is opened here; connections and
// watches are made by IntoStream.
func FromConfig(wc config.WidgetConfig, th theme.Theme, log *slog.Logger) (widget.Widget, error) {
	attr := attributes(th.Attributes(), wc)

	switch wc.Type {
	case config.TypeClock:
		p, err := ticker.ParsePrecision(wc.Precision)
		if err != nil {
			return nil, err
		}
		return &Clock{Attr: attr, Format: wc.Format, Precision: p}, nil

	case config.TypeBattery:
		return &Battery{
			Attr:          attr,
			WarningColor:  th.Warning,
			ChargingColor: th.Charging,
			Battery:       wc.Battery,
			Interval:      wc.Interval.Duration,
		}, nil

	case config.TypeFile:
		if wc.Path == "" {
			return nil, errors.New("path is required")
		}
		if err := ValidateFileMask(wc.Mask); err != nil {
			return nil, err
		}
		return &File{Attr: attr, Path: wc.Path, Mask: wc.Mask}, nil

	case config.TypeSeparator:
		text := wc.Text
		if text == "" {
			text = defaultSeparator
		}
		return &Separator{Attr: attributes(th.DimAttributes(), wc), Text: text}, nil

	case config.TypePlaceholder:
		return &Placeholder{Frames: frame.Batch{{Attr: attr, Text: wc.Text, Stretch: wc.Stretch}}}, nil

	case config.TypeMPD:
		subs := make([]mpd.Subsystem, 0, len(wc.Subsystems))
		for _, s := range wc.Subsystems {
			sub, err := mpd.ParseSubsystem(s)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		hl := frame.NormalizeColor(wc.HighlightColor)
		if hl == "" {
			hl = th.Highlight
		}
		return &MPD{
			Attr:           attr,
			Addr:           wc.Addr,
			Password:       wc.Password,
			Subsystems:     subs,
			Format:         wc.Format,
			ProgressBar:    wc.ProgressBar,
			HighlightColor: hl,
			Fallback:       wc.Fallback.Duration,
			Log:            log,
		}, nil

	case config.TypeSysLoad:
		return &SysLoad{
			Attr:      attr,
			Interval:  wc.Interval.Duration,
			ShowLoad:  wc.ShowLoad,
			DiskMount: wc.DiskMount,
		}, nil

	default:
		return nil, fmt.Errorf("unknown widget type %q", wc.Type)
	}
}
