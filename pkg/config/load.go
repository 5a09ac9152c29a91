package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const appName = "pulse-bar"

// Format is a configuration file syntax.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFor picks the syntax from a file extension. Anything that is not
// .yaml or .yml is read as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Find returns the first existing file on the search path.
// Search order:
//  1. $XDG_CONFIG_HOME/pulse-bar/config.toml (or config.yaml)
//  2. ~/.config/pulse-bar/config.toml (or config.yaml)
func Find() (string, bool) {
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load reads path, or the first file on the search path when path is
// empty. With no file at all it returns Defaults with environment
// overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		found, ok := Find()
		if !ok {
			cfg := Defaults()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		path = found
	}
	return LoadFromFile(path)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a configuration on top of Defaults. Unknown keys
// are errors, since they are almost always typos.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	cfg := Defaults()
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		meta, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys: %s (possible typos?)", strings.Join(keys, ", "))
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks environment variables and overrides config
// values. MPD_HOST and MPD_PORT follow the mpc convention, including the
// "password@host" form, and apply to mpd widgets without an explicit addr.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSEBAR_THEME"); v != "" {
		cfg.Bar.Theme = v
	}
	applyMPDEnv(cfg.Widgets)
}

func applyMPDEnv(ws []WidgetConfig) {
	host, port := os.Getenv("MPD_HOST"), os.Getenv("MPD_PORT")
	if host == "" && port == "" {
		return
	}
	addr, password := mpdEnvAddr(host, port)
	for i := range ws {
		w := &ws[i]
		if w.Type != TypeMPD || w.Addr != "" {
			continue
		}
		w.Addr = addr
		if w.Password == "" {
			w.Password = password
		}
	}
}

func mpdEnvAddr(host, port string) (addr, password string) {
	if i := strings.LastIndex(host, "@"); i > 0 {
		password, host = host[:i], host[i+1:]
	}
	if strings.HasPrefix(host, "/") || strings.HasPrefix(host, "@") {
		return host, password
	}
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6600"
	}
	return net.JoinHostPort(host, port), password
}

// searchPaths returns the ordered list of config file paths to try.
func searchPaths() []string {
	home, _ := os.UserHomeDir()
	var dirs []string

	xdg := xdgConfigHome(home)
	dirs = append(dirs, filepath.Join(xdg, appName))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		dirs = append(dirs, filepath.Join(defaultXDG, appName))
	}

	var paths []string
	for _, d := range dirs {
		paths = append(paths,
			filepath.Join(d, "config.toml"),
			filepath.Join(d, "config.yaml"),
			filepath.Join(d, "config.yml"),
		)
	}
	return paths
}

// DefaultPath is where config init writes when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(xdgConfigHome(home), appName, "config.toml")
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// InitFile writes a commented default configuration to path. It refuses to
// overwrite an existing file.
func InitFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(initTemplate), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

const initTemplate = `# pulse-bar configuration

[bar]
theme = "default"        # default, nord, gruvbox, catppuccin, dracula, tokyo-night
# theme_dir = "~/.config/pulse-bar/themes"
output = "auto"          # auto, ansi or plain
width = 0                # 0 = terminal width (80 when not a terminal)
health_file = ""         # JSON status written while running
health_interval = "30s"
log_file = ""
pid_file = ""

# Widgets are drawn left to right. Without any [[widget]] the preset is used.
# preset = "default"     # default, minimal, laptop, music

[[widget]]
type = "placeholder"
stretch = true

[[widget]]
type = "mpd"
addr = "127.0.0.1:6600"
subsystems = ["player", "mixer", "options"]
format = "{artist} {title}"
progress_bar = true

[[widget]]
type = "separator"
text = " | "

[[widget]]
type = "battery"
# A /sys/class/power_supply name; the first system battery when unset.
# battery = "BAT0"
interval = "60s"

[[widget]]
type = "separator"
text = " | "

[[widget]]
type = "clock"
format = "%Y-%m-%d %a %I:%M %p"
precision = "minutes"
padding_right = 1
`
