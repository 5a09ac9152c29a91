package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bar"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/config"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/daemon"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/preview"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/theme"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widgets"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 200 * time.Millisecond

type runOptions struct {
	configPath string
	preview    bool
	output     string
	width      int
	verbose    bool
}

// loadConfig loads and validates the config at path, or the first one on
// the search path. It returns the path actually used ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path, _ = config.Find()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

func (o runOptions) apply(cfg *config.Config) {
	if o.output != "" {
		cfg.Bar.Output = o.output
	}
	if o.width >= 0 {
		cfg.Bar.Width = o.width
	}
}

// resolveTheme loads the user's theme directory and returns the configured
// theme.
func resolveTheme(cfg *config.Config) (theme.Theme, error) {
	if cfg.Bar.ThemeDir != "" {
		if _, err := theme.LoadDir(cfg.Bar.ThemeDir); err != nil {
			return theme.Theme{}, err
		}
	}
	name := cfg.Bar.Theme
	if name == "" {
		name = theme.DefaultName
	}
	th, ok := theme.Lookup(name)
	if !ok {
		return theme.Theme{}, fmt.Errorf("unknown theme %q", name)
	}
	return th, nil
}

// setupLogger writes to stderr and, when logFile is set, to that file as
// well. The preview owns the terminal, so it logs to the file only.
func setupLogger(logFile string, verbose, toStderr bool) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var writers []io.Writer
	if toStderr {
		writers = append(writers, os.Stderr)
	}
	closeFn := func() error { return nil }
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	}))
	return logger, closeFn, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func executeRun(ctx context.Context, opts runOptions) error {
	cfg, path, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)

	logger, closeLog, err := setupLogger(cfg.Bar.LogFile, opts.verbose, !opts.preview)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Bar.PIDFile != "" {
		pid, err := daemon.AcquirePID(cfg.Bar.PIDFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := pid.Release(); err != nil {
				logger.Warn("releasing pid file", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reloading would tear down the preview program, so it only watches
	// in line mode.
	var reload <-chan struct{}
	if path != "" && !opts.preview {
		reload, err = watchConfig(ctx, path, logger)
		if err != nil {
			logger.Warn("config hot reload disabled", "path", path, "error", err)
		}
	}

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- runOnce(runCtx, cfg, opts.preview, logger) }()

		restart := false
		for !restart {
			select {
			case err := <-done:
				cancel()
				if ctx.Err() != nil {
					logger.Info("shutting down")
				}
				return err
			case <-reload:
				next, _, err := loadConfig(path)
				if err != nil {
					logger.Warn("config reload failed, keeping the running bar", "path", path, "error", err)
					continue
				}
				opts.apply(next)
				logger.Info("config changed, restarting bar", "path", path)
				cfg = next
				cancel()
				if err := <-done; err != nil {
					return err
				}
				restart = true
			}
		}
	}
}

// runOnce builds the widgets described by cfg and runs them until ctx is
// cancelled.
func runOnce(ctx context.Context, cfg *config.Config, withPreview bool, logger *slog.Logger) error {
	output, err := bar.ParseOutput(cfg.Bar.Output)
	if err != nil {
		return err
	}
	th, err := resolveTheme(cfg)
	if err != nil {
		return err
	}
	th = theme.ForProfile(th, lipgloss.ColorProfile())

	ws, err := widgets.Build(cfg, th, logger)
	if err != nil {
		return err
	}

	opts := []bar.Option{bar.WithLogger(logger)}
	if cfg.Bar.HealthFile != "" {
		opts = append(opts, bar.WithHealthFile(cfg.Bar.HealthFile, cfg.Bar.HealthInterval.Duration))
	}

	if withPreview {
		sink := preview.NewSink()
		b := bar.New(sink, opts...)
		for _, w := range ws {
			b.Add(w)
		}
		return preview.Run(ctx, b, sink)
	}

	sink := bar.NewLineSink(os.Stdout, bar.WithOutput(output), bar.WithWidth(cfg.Bar.Width))
	b := bar.New(sink, opts...)
	for _, w := range ws {
		b.Add(w)
	}
	logger.Debug("bar starting", "widgets", len(ws), "theme", th.Name, "output", output)
	return b.Run(ctx)
}

// watchConfig signals on the returned channel, at most once per debounce
// window, whenever the file at path is written or replaced. The parent
// directory is watched so editors that save by rename are seen too.
func watchConfig(ctx context.Context, path string, logger *slog.Logger) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					debounce = time.After(reloadDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if !errors.Is(err, fsnotify.ErrEventOverflow) {
					logger.Warn("config watch error", "error", err)
				}
			case <-debounce:
				debounce = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
