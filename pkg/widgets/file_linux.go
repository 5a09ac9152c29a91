//go:build linux

package widgets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bridge"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

var fileMaskBits = map[string]uint32{
	"modify":      unix.IN_MODIFY,
	"close_write": unix.IN_CLOSE_WRITE,
	"create":      unix.IN_CREATE,
	"delete":      unix.IN_DELETE | unix.IN_DELETE_SELF,
	"move":        unix.IN_MOVE | unix.IN_MOVE_SELF,
	"attrib":      unix.IN_ATTRIB,
	"all":         unix.IN_ALL_EVENTS,
}

// IntoStream implements widget.Widget. The first batch is the current file
// contents; every later one follows an inotify event. Failure to create the
// inotify instance or add the watch is a construction error.
func (f *File) IntoStream() (widget.Stream, error) {
	if err := ValidateFileMask(f.Mask); err != nil {
		return nil, err
	}
	var mask uint32
	for _, n := range f.maskNames() {
		mask |= fileMaskBits[strings.ToLower(n)]
	}

	w, err := newInotifyWatch(f.Path, mask)
	if err != nil {
		return nil, err
	}
	events := bridge.New(w.read, bridge.WithName("file:"+f.Path))
	return widget.FromTicks(events, f.render, widget.WithCloser(w.close)), nil
}

var errWatchClosed = errors.New("inotify watch closed")

// inotifyWatch is one inotify descriptor with a single watch, plus an
// eventfd that close uses to wake a reader. Both descriptors stay open
// until no read is in flight.
type inotifyWatch struct {
	fd   int
	wake int

	mu       sync.Mutex
	closed   bool
	reading  bool
	released bool
}

func newInotifyWatch(path string, mask uint32) (*inotifyWatch, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, path, mask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify watch %s: %w", path, err)
	}
	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify eventfd: %w", err)
	}
	return &inotifyWatch{fd: fd, wake: wake}, nil
}

// read blocks until at least one event is queued or close is called, in
// which case it returns errWatchClosed.
func (w *inotifyWatch) read() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errWatchClosed
	}
	w.reading = true
	w.mu.Unlock()
	defer w.doneReading()

	buf := make([]byte, 4*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	fds := []unix.PollFd{
		{Fd: int32(w.fd), Events: unix.POLLIN},
		{Fd: int32(w.wake), Events: unix.POLLIN},
	}
	for {
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("inotify poll: %w", err)
		}
		if fds[1].Revents != 0 {
			return errWatchClosed
		}
		_, err := unix.Read(w.fd, buf)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		return err
	}
}

func (w *inotifyWatch) doneReading() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reading = false
	if w.closed {
		_ = w.releaseLocked()
	}
}

// close wakes a pending read. The descriptors are closed here when no read
// is in flight, otherwise by that read on its way out.
func (w *inotifyWatch) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.reading {
		return w.releaseLocked()
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(w.wake, one[:]); err != nil {
		return fmt.Errorf("inotify wake: %w", err)
	}
	return nil
}

func (w *inotifyWatch) releaseLocked() error {
	if w.released {
		return nil
	}
	w.released = true
	return errors.Join(unix.Close(w.fd), unix.Close(w.wake))
}
