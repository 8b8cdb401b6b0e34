// Package pidfile guards against two daemon instances sharing one
// workspace: concurrent approval queues over the same files would let an
// operator approve against stale state.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// File is an acquired single-instance guard.
type File struct {
	path string
}

// Acquire writes the current PID to path. It fails when the file names a
// still-running process; a PID left behind by a crashed instance is
// replaced.
func Acquire(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create pidfile directory: %w", err)
	}

	if pid, ok := readPID(path); ok && processAlive(pid) {
		return nil, fmt.Errorf("already running as pid %d (pidfile %s)", pid, path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return nil, fmt.Errorf("write pidfile: %w", err)
	}
	return &File{path: path}, nil
}

// Release removes the guard. Only the PID we wrote is removed; a file
// taken over by a newer instance is left alone.
func (f *File) Release() error {
	if pid, ok := readPID(f.path); ok && pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pidfile: %w", err)
	}
	return nil
}

// Path returns the guard file location.
func (f *File) Path() string {
	return f.path
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
