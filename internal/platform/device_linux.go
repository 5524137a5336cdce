//go:build linux
// +build linux

package platform

import (
	"golang.org/x/sys/unix"
)

// DefaultStoragePolicyLocation is the modprobe.d file that blocks usb-storage.
const DefaultStoragePolicyLocation = "/etc/modprobe.d/usbwarden-usb-storage.conf"

const usbDevicesRoot = "/sys/bus/usb/devices"

func newDeviceEnumerator() DeviceEnumerator {
	return NewSysfsEnumerator(usbDevicesRoot)
}

func newStoragePolicy(location string) StoragePolicy {
	return NewModprobePolicy(location)
}

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return unix.Geteuid() == 0
}
