// Package lock keeps two tool servers from binding the same port on one host.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/querybridge/querybridge/internal/config"
)

// Dir holds one lock file per served port.
const Dir = "~/.querybridge/run/"

// ErrHeld is returned when a live process owns the lock.
var ErrHeld = errors.New("lock held")

// PathFor returns the lock file for a server port under dir.
func PathFor(dir string, port int) string {
	if dir == "" {
		dir = Dir
	}
	return filepath.Join(config.ExpandHome(dir), fmt.Sprintf("serve-%d.pid", port))
}

// Acquire writes the current PID to path. A lock left by a dead process is
// taken over.
func Acquire(path string) error {
	if held, pid, err := IsHeld(path); err != nil {
		return err
	} else if held && pid != os.Getpid() {
		return fmt.Errorf("%w: querybridge already serving (PID %d, %s)", ErrHeld, pid, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the lock file. A missing file is not an error.
func Release(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsHeld reports whether a running process owns path, and its PID.
func IsHeld(path string) (bool, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("reading lock: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
