package service

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// DefaultPidFile returns where the daemon records its pid.
func DefaultPidFile() string {
	if runtime.GOOS == "windows" {
		dir := os.Getenv("ProgramData")
		if dir == "" {
			dir = `C:\ProgramData`
		}
		return filepath.Join(dir, "usbwarden", "usbwarden.pid")
	}
	return "/var/run/usbwarden.pid"
}

func CreatePidFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func ReadPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("corrupt PID file %s: %w", path, err)
	}
	return pid, nil
}

func RemovePidFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// DaemonRunning reports whether the pid in path belongs to a live process.
// A stale file is removed.
func DaemonRunning(path string) bool {
	pid, err := ReadPidFile(path)
	if err != nil {
		return false
	}
	alive, err := process.PidExists(int32(pid))
	if err != nil || !alive {
		_ = RemovePidFile(path)
		return false
	}
	return true
}
