// Package daemon keeps two bars from running against the same output.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrRunning is returned by AcquirePID when another process holds the lock.
var ErrRunning = errors.New("daemon already running")

// PIDFile is a held lock on a file containing the owner's PID. The lock is
// an flock on the open descriptor, so it disappears with the process even
// when Release is never called.
type PIDFile struct {
	path string
	f    *os.File
}

// AcquirePID opens (or creates) path, takes an exclusive non-blocking
// flock on it and writes the current PID. A file left behind by a dead
// process is simply re-locked.
func AcquirePID(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create PID directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid, rerr := ReadPID(path); rerr == nil {
				return nil, fmt.Errorf("%w (PID %d)", ErrRunning, pid)
			}
			return nil, ErrRunning
		}
		return nil, fmt.Errorf("lock PID file: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return &PIDFile{path: path, f: f}, nil
}

// Path returns the file's location.
func (p *PIDFile) Path() string { return p.path }

// Release removes the file and drops the lock. The file is removed first so
// a concurrent AcquirePID never locks a file that is about to vanish.
func (p *PIDFile) Release() error {
	var errs []error
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove PID file: %w", err))
	}
	if err := p.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close PID file: %w", err))
	}
	return errors.Join(errs...)
}

// ReadPID reads and parses the PID from the given file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	return pid, nil
}

// IsProcessAlive probes pid with signal 0. EPERM means the process exists
// but belongs to someone else.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
