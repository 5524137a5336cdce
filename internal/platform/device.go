package platform

import (
	"errors"
	"strings"
)

var (
	// ErrDeviceNotFound is returned when no enumerated device matches an id.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrUnsupported is returned by backends on platforms without device control.
	ErrUnsupported = errors.New("device control is not supported on this platform")
	// ErrSetClosed is returned when a DeviceSet is used after Close.
	ErrSetClosed = errors.New("device set already closed")
)

// Start values for the mass-storage driver policy. They mirror the Windows
// service start types: 3 loads the driver on demand, 4 never loads it.
const (
	StartEnabled  uint32 = 3
	StartDisabled uint32 = 4
)

// DeviceEntry is one device in an enumeration snapshot.
type DeviceEntry struct {
	InstanceID    string
	HardwareIDs   []string
	CompatibleIDs []string
	Description   string

	index int
}

// DeviceSet is a snapshot of present devices. It must be closed after use.
type DeviceSet interface {
	Devices() []DeviceEntry
	SetEnabled(entry DeviceEntry, enable bool) error
	Close() error
}

// DeviceEnumerator opens fresh DeviceSets.
type DeviceEnumerator interface {
	Open() (DeviceSet, error)
}

// StoragePolicy reads and writes the persistent mass-storage driver start type.
type StoragePolicy interface {
	StartType() (uint32, error)
	SetStartType(start uint32) error
	Location() string
}

// NewDeviceEnumerator creates the platform-specific device enumerator.
func NewDeviceEnumerator() DeviceEnumerator {
	return newDeviceEnumerator()
}

// NewStoragePolicy creates the platform-specific storage policy stored at location.
// An empty location selects DefaultStoragePolicyLocation.
func NewStoragePolicy(location string) StoragePolicy {
	if location == "" {
		location = DefaultStoragePolicyLocation
	}
	return newStoragePolicy(location)
}

// StorageClass reports whether a present device node for deviceID, the device
// itself or one of its composite interfaces, advertises USB class 08.
// composite is set when only a composite parent was found; its interface
// nodes may not be enumerated yet.
func StorageClass(entries []DeviceEntry, deviceID string) (storage, composite bool) {
	if deviceID == "" {
		return false, false
	}
	prefix := `USB\` + strings.ToUpper(deviceID)
	for _, e := range entries {
		if !strings.HasPrefix(strings.ToUpper(e.InstanceID), prefix) {
			continue
		}
		for _, id := range e.CompatibleIDs {
			id = strings.ToUpper(id)
			switch {
			case strings.HasPrefix(id, `USB\CLASS_08`):
				return true, false
			case id == `USB\COMPOSITE`:
				composite = true
			}
		}
	}
	return false, composite
}
