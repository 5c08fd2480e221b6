// Package lock keeps two trainsync processes from sweeping at the same time.
package lock

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrSweepInProgress is returned when a live process holds the lockfile.
var ErrSweepInProgress = stderrors.New("another sweep is in progress")

// File is a PID lockfile. The file holds "<pid>|<executable>".
type File struct {
	path string
}

// New returns a lock at dir/trainsync-sweep.lock.
func New(dir string) *File {
	return &File{path: filepath.Join(dir, constants.SweepLockfileName)}
}

func (f *File) Path() string {
	return f.path
}

// Acquire takes the lock, replacing a lockfile left behind by a dead process.
func (f *File) Acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := f.create()
		if err == nil {
			return f.release, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		holder, err := readHolder(f.path)
		if err == nil && holder.alive() {
			return nil, fmt.Errorf("%w (pid %d)", ErrSweepInProgress, holder.pid)
		}
		logger.Warn("Removing stale sweep lockfile", "path", f.path, "error", err)
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, ErrSweepInProgress
}

func (f *File) create() error {
	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	defer fh.Close()
	pid := getpidFunc()
	_, err = fmt.Fprintf(fh, "%d|%s", pid, executableName(pid))
	return err
}

func (f *File) release() {
	holder, err := readHolder(f.path)
	if err != nil || holder.pid != getpidFunc() {
		return
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove sweep lockfile", "path", f.path, "error", err)
	}
}

type holder struct {
	pid        int
	executable string
}

func readHolder(path string) (holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return holder{}, err
	}
	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return holder{}, stderrors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return holder{}, stderrors.New("invalid process ID in lockfile")
	}
	return holder{pid: pid, executable: parts[1]}, nil
}

// alive reports whether the recorded process still runs the same executable.
// A recycled PID running something else does not hold the lock.
func (h holder) alive() bool {
	process, err := findProcessFunc(h.pid)
	if err != nil || process == nil {
		return false
	}
	return h.executable == "" || process.Executable() == h.executable
}

func executableName(pid int) string {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return ""
	}
	return process.Executable()
}
