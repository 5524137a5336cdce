// Package device applies authorization decisions to the operating system:
// per-device enable/disable and the global mass-storage driver policy.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/logging"
	"github.com/gajzzs/usbwarden/internal/platform"
)

// ErrNotImplemented is returned by DisabledDevices. Denied devices are
// tracked by the registry, not read back from the OS.
var ErrNotImplemented = errors.New("not implemented")

// Controller is the device actuator. Every call opens a fresh device set
// and closes it before returning; nothing is cached between calls.
type Controller struct {
	enum   platform.DeviceEnumerator
	policy platform.StoragePolicy
	logger zerolog.Logger
}

func NewController(enum platform.DeviceEnumerator, policy platform.StoragePolicy, logger zerolog.Logger) *Controller {
	return &Controller{
		enum:   enum,
		policy: policy,
		logger: logging.WithCategory(logger, logging.CategoryController),
	}
}

func (c *Controller) EnableDevice(deviceID string) bool {
	return c.SetDeviceEnabled(deviceID, true) == nil
}

func (c *Controller) DisableDevice(deviceID string) bool {
	return c.SetDeviceEnabled(deviceID, false) == nil
}

// SetDeviceEnabled enables or disables the first device whose hardware id
// contains deviceID and returns the cause of a failure.
func (c *Controller) SetDeviceEnabled(deviceID string, enable bool) error {
	verb := "disable"
	if enable {
		verb = "enable"
	}

	c.logger.Info().Str("device_id", deviceID).Msg("Attempting to " + verb + " device")
	if err := c.changeState(deviceID, enable); err != nil {
		c.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to " + verb + " device")
		return err
	}
	c.logger.Info().Str("device_id", deviceID).Msg("Successfully " + verb + "d device")
	return nil
}

// IsDeviceEnabled only reports whether a matching device is present. It does
// not inspect the device's configuration state.
func (c *Controller) IsDeviceEnabled(deviceID string) bool {
	set, err := c.enum.Open()
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to enumerate devices")
		return false
	}
	defer set.Close()

	_, ok := findDevice(set, deviceID)
	return ok
}

func (c *Controller) EnableUSBStorage() bool {
	c.logger.Info().Str("policy", c.policy.Location()).Msg("Enabling USB storage")
	if err := c.policy.SetStartType(platform.StartEnabled); err != nil {
		c.logger.Error().Err(err).Msg("Failed to enable USB storage")
		return false
	}
	c.logger.Info().Msg("USB storage enabled successfully")
	return true
}

func (c *Controller) DisableUSBStorage() bool {
	c.logger.Info().Str("policy", c.policy.Location()).Msg("Disabling USB storage")
	if err := c.policy.SetStartType(platform.StartDisabled); err != nil {
		c.logger.Error().Err(err).Msg("Failed to disable USB storage")
		return false
	}
	c.logger.Info().Msg("USB storage disabled successfully")
	return true
}

// IsUSBStorageEnabled reads the policy back; an unreadable policy counts as disabled.
func (c *Controller) IsUSBStorageEnabled() bool {
	start, err := c.policy.StartType()
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to read USB storage policy")
		return false
	}
	return start == platform.StartEnabled
}

// AllUSBDevices returns one description per enumerable device.
func (c *Controller) AllUSBDevices() []string {
	devices := []string{}

	set, err := c.enum.Open()
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to enumerate devices")
		return devices
	}
	defer set.Close()

	for _, d := range set.Devices() {
		switch {
		case d.Description != "":
			devices = append(devices, d.Description)
		case len(d.HardwareIDs) > 0:
			devices = append(devices, d.HardwareIDs[0])
		}
	}
	return devices
}

// DisabledDevices is not backed by OS enumeration; use the registry's denied list.
func (c *Controller) DisabledDevices() ([]string, error) {
	return nil, ErrNotImplemented
}

func (c *Controller) changeState(deviceID string, enable bool) error {
	set, err := c.enum.Open()
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	defer set.Close()

	entry, ok := findDevice(set, deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", platform.ErrDeviceNotFound, deviceID)
	}
	return set.SetEnabled(entry, enable)
}

// findDevice returns the first device with a hardware id containing deviceID.
func findDevice(set platform.DeviceSet, deviceID string) (platform.DeviceEntry, bool) {
	if deviceID == "" {
		return platform.DeviceEntry{}, false
	}
	needle := strings.ToUpper(deviceID)
	for _, d := range set.Devices() {
		for _, hwid := range d.HardwareIDs {
			if strings.Contains(strings.ToUpper(hwid), needle) {
				return d, true
			}
		}
	}
	return platform.DeviceEntry{}, false
}
