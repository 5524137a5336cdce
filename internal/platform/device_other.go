//go:build !linux && !windows
// +build !linux,!windows

package platform

import (
	"os"
)

const DefaultStoragePolicyLocation = ""

type unsupportedEnumerator struct{}

func newDeviceEnumerator() DeviceEnumerator {
	return unsupportedEnumerator{}
}

func (unsupportedEnumerator) Open() (DeviceSet, error) {
	return nil, ErrUnsupported
}

type unsupportedPolicy struct {
	location string
}

func newStoragePolicy(location string) StoragePolicy {
	return unsupportedPolicy{location: location}
}

func (p unsupportedPolicy) StartType() (uint32, error)  { return 0, ErrUnsupported }
func (p unsupportedPolicy) SetStartType(_ uint32) error { return ErrUnsupported }
func (p unsupportedPolicy) Location() string            { return p.location }

func IsElevated() bool {
	return os.Geteuid() == 0
}
