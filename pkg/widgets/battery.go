package widgets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/distatus/battery"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

const (
	defaultBatteryRoot     = "/sys/class/power_supply"
	defaultBatteryInterval = 60 * time.Second
	batteryWarnPercent     = 10.0
)

// BatteryStatus is the kernel's power supply status string.
type BatteryStatus string

const (
	BatteryFull        BatteryStatus = "Full"
	BatteryCharging    BatteryStatus = "Charging"
	BatteryDischarging BatteryStatus = "Discharging"
	BatteryNotCharging BatteryStatus = "Not charging"
	BatteryUnknown     BatteryStatus = "Unknown"
)

func parseBatteryStatus(s string) (BatteryStatus, error) {
	switch st := BatteryStatus(s); st {
	case BatteryFull, BatteryCharging, BatteryDischarging, BatteryNotCharging, BatteryUnknown:
		return st, nil
	default:
		return "", fmt.Errorf("unknown battery status %q", s)
	}
}

// BatterySample is one reading. Energy and power only need consistent
// units: sysfs reports µWh and µW, the system battery mWh and mW.
type BatterySample struct {
	Full   float64
	Now    float64
	Power  float64
	Status BatteryStatus
}

// BatterySampler reads the battery.
type BatterySampler interface {
	Sample(ctx context.Context) (BatterySample, error)
}

// Battery shows charge percentage and time to empty (or to full). At or
// below 10% while discharging the text switches to WarningColor. While
// charging it uses ChargingColor when set.
//
// A named Battery (BAT1) is read from sysfs under Root. Without a name the
// first battery the system reports is used, which also works off Linux.
type Battery struct {
	Attr          frame.Attributes
	WarningColor  string
	ChargingColor string
	Battery       string        // power supply name under Root
	Root          string        // sysfs directory, /sys/class/power_supply by default
	Interval      time.Duration // 60s by default

	// Sampler overrides both sources in tests.
	Sampler BatterySampler
}

// Name implements widget.Widget.
func (b *Battery) Name() string { return "battery" }

func (b *Battery) sampler() BatterySampler {
	switch {
	case b.Sampler != nil:
		return b.Sampler
	case b.Battery == "" && b.Root == "":
		return systemBattery{}
	}
	root := b.Root
	if root == "" {
		root = defaultBatteryRoot
	}
	name := b.Battery
	if name == "" {
		name = "BAT0"
	}
	return sysfsBattery{dir: filepath.Join(root, name)}
}

// IntoStream implements widget.Widget.
func (b *Battery) IntoStream() (widget.Stream, error) {
	interval := b.Interval
	if interval <= 0 {
		interval = defaultBatteryInterval
	}
	sampler := b.sampler()
	tk := ticker.Every(interval)
	src := widget.TickFunc(func(ctx context.Context) error {
		_, err := tk.Next(ctx)
		return err
	})
	render := func(ctx context.Context) (frame.Batch, error) {
		s, err := sampler.Sample(ctx)
		if err != nil {
			return nil, err
		}
		return b.render(s)
	}
	return widget.FromTicks(src, render, widget.NoEager(), widget.WithCloser(func() error {
		tk.Stop()
		return nil
	})), nil
}

func (b *Battery) render(s BatterySample) (frame.Batch, error) {
	if s.Full <= 0 {
		return nil, fmt.Errorf("battery full capacity is %v", s.Full)
	}
	text, percent := formatBattery(s.Full, s.Now, s.Power, s.Status)
	attr := b.Attr
	switch {
	case s.Status == BatteryDischarging && percent <= batteryWarnPercent && b.WarningColor != "":
		attr = attr.WithForeground(b.WarningColor)
	case s.Status == BatteryCharging && b.ChargingColor != "":
		attr = attr.WithForeground(b.ChargingColor)
	}
	return frame.Single(attr, text, false), nil
}

// formatBattery returns "(NN% - H:MM)" and the percentage. Time is hours to
// empty when discharging, to full when charging, zero otherwise.
func formatBattery(full, now, power float64, status BatteryStatus) (string, float64) {
	percent := now / full * 100

	var hours float64
	if power > 0 {
		switch status {
		case BatteryDischarging:
			hours = now / power
		case BatteryCharging:
			hours = (full - now) / power
		}
	}
	h := int(hours)
	m := int(hours*60) % 60
	return fmt.Sprintf("(%.0f%% - %d:%02d)", percent, h, m), percent
}

// systemBattery reads the first battery through distatus/battery.
type systemBattery struct{}

func (systemBattery) Sample(context.Context) (BatterySample, error) {
	bat, err := battery.Get(0)
	if err != nil {
		return BatterySample{}, fmt.Errorf("read system battery: %w", err)
	}
	return BatterySample{
		Full:   bat.Full,
		Now:    bat.Current,
		Power:  bat.ChargeRate,
		Status: batteryStatusOf(bat.State.Raw),
	}, nil
}

func batteryStatusOf(s battery.AgnosticState) BatteryStatus {
	switch s {
	case battery.Full:
		return BatteryFull
	case battery.Charging:
		return BatteryCharging
	case battery.Discharging:
		return BatteryDischarging
	default:
		return BatteryUnknown
	}
}

// sysfsBattery reads energy_full, energy_now, power_now and status from
// one power supply directory.
type sysfsBattery struct {
	dir string
}

func (s sysfsBattery) Sample(context.Context) (BatterySample, error) {
	var out BatterySample
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"energy_full", &out.Full},
		{"energy_now", &out.Now},
		{"power_now", &out.Power},
	} {
		raw, err := s.read(f.name)
		if err != nil {
			return BatterySample{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return BatterySample{}, fmt.Errorf("parse battery %s: %w", f.name, err)
		}
		*f.dst = v
	}

	raw, err := s.read("status")
	if err != nil {
		return BatterySample{}, err
	}
	if out.Status, err = parseBatteryStatus(raw); err != nil {
		return BatterySample{}, err
	}
	return out, nil
}

func (s sysfsBattery) read(file string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return "", fmt.Errorf("read battery %s: %w", file, err)
	}
	return strings.TrimSpace(string(data)), nil
}
