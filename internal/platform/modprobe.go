package platform

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const modprobeBlock = "install usb-storage /bin/false\nblacklist usb-storage\n"

// ModprobePolicy stores the usb-storage start policy as a modprobe.d file.
// A file that blocks usb-storage means StartDisabled, anything else StartEnabled.
type ModprobePolicy struct {
	Path string
}

// NewModprobePolicy returns a policy backed by the file at path.
func NewModprobePolicy(path string) *ModprobePolicy {
	return &ModprobePolicy{Path: path}
}

func (p *ModprobePolicy) Location() string {
	return p.Path
}

func (p *ModprobePolicy) StartType() (uint32, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return StartEnabled, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", p.Path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !isStorageModule(fields[1]) {
			continue
		}
		if fields[0] == "install" || fields[0] == "blacklist" {
			return StartDisabled, nil
		}
	}
	return StartEnabled, scanner.Err()
}

func (p *ModprobePolicy) SetStartType(start uint32) error {
	switch start {
	case StartEnabled:
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p.Path, err)
		}
		return nil
	case StartDisabled:
		if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(p.Path), err)
		}
		if err := os.WriteFile(p.Path, []byte(modprobeBlock), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.Path, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported start type %d", start)
	}
}

// modprobe treats dashes and underscores in module names alike.
func isStorageModule(name string) bool {
	return strings.ReplaceAll(name, "_", "-") == "usb-storage"
}
