package widgets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

const defaultSysLoadInterval = 2 * time.Second

// LoadSample is one reading of the system counters the sysload widget
// shows. Disk is negative when no mount is configured.
type LoadSample struct {
	CPU    float64
	Memory float64
	Load1  float64
	Disk   float64
}

// Sampler reads a LoadSample.
type Sampler interface {
	Sample(ctx context.Context) (LoadSample, error)
}

// SysLoad shows CPU and memory usage, and optionally the 1-minute load
// average and the usage of one mount.
type SysLoad struct {
	Attr      frame.Attributes
	Interval  time.Duration // 2s by default
	ShowLoad  bool
	DiskMount string

	// Sampler overrides the gopsutil sampler in tests.
	Sampler Sampler
}

// Name implements widget.Widget.
func (s *SysLoad) Name() string { return "sysload" }

// IntoStream implements widget.Widget.
func (s *SysLoad) IntoStream() (widget.Stream, error) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSysLoadInterval
	}
	sampler := s.Sampler
	if sampler == nil {
		sampler = gopsutilSampler{mount: s.DiskMount}
	}
	tk := ticker.Every(interval)
	src := widget.TickFunc(func(ctx context.Context) error {
		_, err := tk.Next(ctx)
		return err
	})
	render := func(ctx context.Context) (frame.Batch, error) {
		sample, err := sampler.Sample(ctx)
		if err != nil {
			return nil, err
		}
		return frame.Single(s.Attr, s.format(sample), false), nil
	}
	return widget.FromTicks(src, render, widget.NoEager(), widget.WithCloser(func() error {
		tk.Stop()
		return nil
	})), nil
}

func (s *SysLoad) format(l LoadSample) string {
	parts := []string{
		fmt.Sprintf("cpu %.0f%%", l.CPU),
		fmt.Sprintf("mem %.0f%%", l.Memory),
	}
	if s.ShowLoad {
		parts = append(parts, fmt.Sprintf("load %.2f", l.Load1))
	}
	if s.DiskMount != "" && l.Disk >= 0 {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", s.DiskMount, l.Disk))
	}
	return strings.Join(parts, " ")
}

// gopsutilSampler reads counters through gopsutil. CPU usage is measured
// since the previous call, so the first sample after start may read 0.
type gopsutilSampler struct {
	mount string
}

func (g gopsutilSampler) Sample(ctx context.Context) (LoadSample, error) {
	out := LoadSample{Disk: -1}
	var errs []error

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else if len(pct) > 0 {
		out.CPU = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		out.Memory = vm.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("load: %w", err))
	} else {
		out.Load1 = avg.Load1
	}

	if g.mount != "" {
		if usage, err := disk.UsageWithContext(ctx, g.mount); err != nil {
			errs = append(errs, fmt.Errorf("disk %s: %w", g.mount, err))
		} else {
			out.Disk = usage.UsedPercent
		}
	}

	// Partial failures still render; only a total failure is an error.
	total := 3
	if g.mount != "" {
		total++
	}
	if len(errs) == total {
		return LoadSample{}, fmt.Errorf("sysload: %w", errors.Join(errs...))
	}
	return out, nil
}
