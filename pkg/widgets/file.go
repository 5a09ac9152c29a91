package widgets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// FileMaskNames are the event names accepted in File.Mask.
var FileMaskNames = []string{"modify", "close_write", "create", "delete", "move", "attrib", "all"}

// File shows the contents of a file and redraws whenever inotify reports one
// of the events in Mask (modify and close_write when empty).
type File struct {
	Attr frame.Attributes
	Path string
	Mask []string
}

// Name implements widget.Widget.
func (f *File) Name() string { return "file" }

// ValidateFileMask reports the first unknown event name.
func ValidateFileMask(names []string) error {
	for _, n := range names {
		known := false
		for _, k := range FileMaskNames {
			if strings.EqualFold(n, k) {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown file event %q (want one of %s)", n, strings.Join(FileMaskNames, ", "))
		}
	}
	return nil
}

func (f *File) maskNames() []string {
	if len(f.Mask) == 0 {
		return []string{"modify", "close_write"}
	}
	return f.Mask
}

func (f *File) render(context.Context) (frame.Batch, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	return frame.Single(f.Attr, text, true), nil
}
