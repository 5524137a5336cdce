package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SysfsEnumerator lists USB devices below a sysfs bus directory such as
// /sys/bus/usb/devices and toggles them through their authorized attribute.
type SysfsEnumerator struct {
	Root string
}

// NewSysfsEnumerator returns an enumerator rooted at root.
func NewSysfsEnumerator(root string) *SysfsEnumerator {
	return &SysfsEnumerator{Root: root}
}

func (e *SysfsEnumerator) Open() (DeviceSet, error) {
	entries, err := os.ReadDir(e.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.Root, err)
	}

	set := &sysfsSet{}
	for _, entry := range entries {
		name := entry.Name()
		// Interfaces (1-2:1.0) share the parent's ids; only devices are listed.
		if strings.Contains(name, ":") {
			continue
		}

		dir := filepath.Join(e.Root, name)
		vendor := readAttr(dir, "idVendor")
		product := readAttr(dir, "idProduct")
		if vendor == "" || product == "" {
			continue
		}

		base := fmt.Sprintf(`USB\VID_%s&PID_%s`, strings.ToUpper(vendor), strings.ToUpper(product))
		ids := []string{}
		if rev := readAttr(dir, "bcdDevice"); rev != "" {
			ids = append(ids, fmt.Sprintf("%s&REV_%s", base, strings.ToUpper(rev)))
		}
		ids = append(ids, base)

		desc := strings.TrimSpace(readAttr(dir, "manufacturer") + " " + readAttr(dir, "product"))

		set.entries = append(set.entries, DeviceEntry{
			InstanceID:  name,
			HardwareIDs: ids,
			Description: desc,
			index:       len(set.dirs),
		})
		set.dirs = append(set.dirs, dir)
	}

	return set, nil
}

type sysfsSet struct {
	entries []DeviceEntry
	dirs    []string
	closed  bool
}

func (s *sysfsSet) Devices() []DeviceEntry {
	return s.entries
}

func (s *sysfsSet) SetEnabled(entry DeviceEntry, enable bool) error {
	if s.closed {
		return ErrSetClosed
	}
	if entry.index < 0 || entry.index >= len(s.dirs) {
		return ErrDeviceNotFound
	}

	value := "0"
	if enable {
		value = "1"
	}

	path := filepath.Join(s.dirs[entry.index], "authorized")
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *sysfsSet) Close() error {
	s.closed = true
	return nil
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
