package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bar"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/config"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/theme"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widgets"
)

func runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bar, writing one line per update to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: search XDG config dirs)")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "show the bar in an interactive preview")
	cmd.Flags().StringVar(&opts.output, "output", "", "override bar.output (auto, ansi or plain)")
	cmd.Flags().IntVar(&opts.width, "width", -1, "override bar.width (0 = terminal width)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(configInitCmd(), configCheckCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented default config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.InitFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
}

func configCheckCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config and build every widget without starting them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConfig(cmd.OutOrStdout(), path)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "path to config file")
	return cmd
}

func checkConfig(w io.Writer, path string) error {
	cfg, path, err := loadConfig(path)
	if err != nil {
		return err
	}
	th, err := resolveTheme(cfg)
	if err != nil {
		return err
	}
	ws, err := widgets.Build(cfg, th, discardLogger())
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "built-in defaults"
	}
	names := make([]string, len(ws))
	for i, wd := range ws {
		names[i] = wd.Name()
	}
	fmt.Fprintf(w, "%s: ok, theme %s, %d widgets: %s\n", source, th.Name, len(ws), strings.Join(names, " "))
	return nil
}

func statusCmd() *cobra.Command {
	var (
		path   string
		file   string
		asJSON bool
		maxAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-widget status from the health file of a running bar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				cfg, _, err := loadConfig(path)
				if err != nil {
					return err
				}
				file = cfg.Bar.HealthFile
			}
			if file == "" {
				return errors.New("no health file: set bar.health_file or pass --file")
			}
			return showStatus(cmd.OutOrStdout(), file, asJSON, maxAge, time.Now())
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&file, "file", "", "health file to read (default: bar.health_file)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw health document")
	cmd.Flags().DurationVar(&maxAge, "max-age", 2*time.Minute, "treat an older health file as stale")
	return cmd
}

func showStatus(w io.Writer, file string, asJSON bool, maxAge time.Duration, now time.Time) error {
	h, err := bar.ReadHealthFile(file)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(h); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "PID %d, up %s, updated %s ago\n\n",
			h.PID, now.Sub(h.StartedAt).Round(time.Second), now.Sub(h.UpdatedAt).Round(time.Second))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SLOT\tSTATE\tUPDATES\tERRORS\tLAST UPDATE\tLAST ERROR")
		for _, s := range h.Slots {
			state := "ok"
			switch {
			case !s.Healthy:
				state = "error"
			case s.Finished:
				state = "done"
			}
			last := "-"
			if !s.LastUpdate.IsZero() {
				last = s.LastUpdate.Format(time.TimeOnly)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", s.Name, state, s.Updates, s.Errors, last, s.LastError)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if maxAge > 0 && now.Sub(h.UpdatedAt) > maxAge {
		return fmt.Errorf("health file is stale (updated %s ago)", now.Sub(h.UpdatedAt).Round(time.Second))
	}
	if !h.Healthy() {
		return fmt.Errorf("%d widget(s) failing", len(unhealthy(h.Slots)))
	}
	return nil
}

func unhealthy(slots []bar.SlotStatus) []string {
	var names []string
	for _, s := range slots {
		if !s.Healthy {
			names = append(names, s.Name)
		}
	}
	return names
}

func themesCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List available themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(path)
			if err != nil {
				return err
			}
			if _, err := theme.LoadDir(cfg.Bar.ThemeDir); err != nil {
				return err
			}
			for _, name := range theme.Names() {
				marker := " "
				if strings.EqualFold(name, cfg.Bar.Theme) {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "path to config file")
	return cmd
}
