//go:build windows
// +build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// DefaultStoragePolicyLocation is the USBSTOR service key under HKLM.
const DefaultStoragePolicyLocation = `SYSTEM\CurrentControlSet\Services\USBSTOR`

type setupDiEnumerator struct{}

func newDeviceEnumerator() DeviceEnumerator {
	return setupDiEnumerator{}
}

func (setupDiEnumerator) Open() (DeviceSet, error) {
	devs, err := windows.SetupDiGetClassDevsEx(nil, "", 0, windows.DIGCF_PRESENT|windows.DIGCF_ALLCLASSES, 0, "")
	if err != nil {
		return nil, fmt.Errorf("SetupDiGetClassDevsEx: %w", err)
	}

	set := &setupDiSet{devs: devs}
	for i := 0; ; i++ {
		data, err := devs.EnumDeviceInfo(i)
		if err != nil {
			break
		}

		entry := DeviceEntry{index: len(set.data)}
		if v, err := devs.DeviceRegistryProperty(data, windows.SPDRP_HARDWAREID); err == nil {
			switch ids := v.(type) {
			case []string:
				entry.HardwareIDs = ids
			case string:
				entry.HardwareIDs = []string{ids}
			}
		}
		if v, err := devs.DeviceRegistryProperty(data, windows.SPDRP_COMPATIBLEIDS); err == nil {
			switch ids := v.(type) {
			case []string:
				entry.CompatibleIDs = ids
			case string:
				entry.CompatibleIDs = []string{ids}
			}
		}
		if v, err := devs.DeviceRegistryProperty(data, windows.SPDRP_DEVICEDESC); err == nil {
			if desc, ok := v.(string); ok {
				entry.Description = desc
			}
		}
		if id, err := devs.DeviceInstanceID(data); err == nil {
			entry.InstanceID = id
		}

		set.data = append(set.data, data)
		set.entries = append(set.entries, entry)
	}

	return set, nil
}

type setupDiSet struct {
	devs    windows.DevInfo
	data    []*windows.DevInfoData
	entries []DeviceEntry
	closed  bool
}

func (s *setupDiSet) Devices() []DeviceEntry {
	return s.entries
}

// SetEnabled applies DIF_PROPERTYCHANGE to the current hardware profile.
func (s *setupDiSet) SetEnabled(entry DeviceEntry, enable bool) error {
	if s.closed {
		return ErrSetClosed
	}
	if entry.index < 0 || entry.index >= len(s.data) {
		return ErrDeviceNotFound
	}
	data := s.data[entry.index]

	params := windows.PropChangeParams{
		ClassInstallHeader: *windows.MakeClassInstallHeader(windows.DIF_PROPERTYCHANGE),
		StateChange:        windows.DICS_DISABLE,
		Scope:              windows.DICS_FLAG_CONFIGSPECIFIC,
		HwProfile:          0,
	}
	if enable {
		params.StateChange = windows.DICS_ENABLE
	}

	if err := windows.SetupDiSetClassInstallParams(s.devs, data, &params.ClassInstallHeader, uint32(unsafe.Sizeof(params))); err != nil {
		return fmt.Errorf("SetupDiSetClassInstallParams: %w", err)
	}
	if err := windows.SetupDiCallClassInstaller(windows.DIF_PROPERTYCHANGE, s.devs, data); err != nil {
		return fmt.Errorf("SetupDiCallClassInstaller: %w", err)
	}
	return nil
}

func (s *setupDiSet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.devs.Close()
}

// registryPolicy keeps the Start DWORD of a service key under HKLM.
type registryPolicy struct {
	keyPath string
}

func newStoragePolicy(location string) StoragePolicy {
	return registryPolicy{keyPath: location}
}

func (p registryPolicy) Location() string {
	return `HKLM\` + p.keyPath
}

func (p registryPolicy) StartType() (uint32, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, p.keyPath, registry.QUERY_VALUE)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", p.Location(), err)
	}
	defer key.Close()

	v, _, err := key.GetIntegerValue("Start")
	if err != nil {
		return 0, fmt.Errorf("read %s\\Start: %w", p.Location(), err)
	}
	return uint32(v), nil
}

func (p registryPolicy) SetStartType(start uint32) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, p.keyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Location(), err)
	}
	defer key.Close()

	if err := key.SetDWordValue("Start", start); err != nil {
		return fmt.Errorf("write %s\\Start: %w", p.Location(), err)
	}
	return nil
}

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
