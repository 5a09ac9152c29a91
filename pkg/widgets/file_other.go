//go:build !linux

package widgets

import (
	"errors"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// IntoStream implements widget.Widget. File watching needs inotify.
func (f *File) IntoStream() (widget.Stream, error) {
	return nil, errors.New("file widget requires linux inotify")
}
