package theme

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"
)

// tomlTheme is the on-disk form of a Theme.
type tomlTheme struct {
	Name       string `toml:"name"`
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
	Highlight  string `toml:"highlight"`
	Warning    string `toml:"warning"`
	Charging   string `toml:"charging"`
	Dim        string `toml:"dim"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFromTOML parses a TOML theme definition. Unknown keys are rejected.
func LoadFromTOML(data []byte) (Theme, error) {
	var tt tomlTheme
	meta, err := toml.Decode(string(data), &tt)
	if err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Theme{}, fmt.Errorf("theme: unknown key %q", undecoded[0].String())
	}

	t := Theme(tt)
	if err := validate(t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// SaveToTOML serializes a theme to TOML bytes.
func SaveToTOML(t Theme) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tomlTheme(t)); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadFile reads and registers one theme file.
func LoadFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("theme: %w", err)
	}
	t, err := LoadFromTOML(data)
	if err != nil {
		return Theme{}, fmt.Errorf("%s: %w", path, err)
	}
	Register(t)
	return t, nil
}

// LoadDir registers every *.toml file in dir and returns the theme names
// it loaded. A missing directory is not an error.
func LoadDir(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var names []string
	for _, p := range paths {
		t, err := LoadFile(p)
		if err != nil {
			return names, err
		}
		names = append(names, t.Name)
	}
	return names, nil
}

func validate(t Theme) error {
	if t.Name == "" {
		return fmt.Errorf("theme: missing required field %q", "name")
	}
	fields := []struct{ name, value string }{
		{"foreground", t.Foreground},
		{"background", t.Background},
		{"highlight", t.Highlight},
		{"warning", t.Warning},
		{"charging", t.Charging},
		{"dim", t.Dim},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("theme: missing required field %q", f.name)
		}
		if !hexColor.MatchString(f.value) {
			return fmt.Errorf("theme: invalid hex color %q for field %q (expected #RRGGBB)", f.value, f.name)
		}
	}
	return nil
}
