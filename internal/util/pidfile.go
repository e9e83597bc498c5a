package util

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// WritePidFile writes the current process id to the given path.
// Returns ErrAlreadyRunning if the file points to a live process.
func WritePidFile(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		oldPid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err == nil {
			process, err := os.FindProcess(oldPid)
			if err == nil && process.Signal(syscall.Signal(0)) == nil {
				return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, oldPid)
			}
		}
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// RemovePidFile removes the pid file, ignoring a file that is already gone.
func RemovePidFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(path)
}
