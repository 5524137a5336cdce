package hotplug

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/identity"
	"github.com/gajzzs/usbwarden/internal/platform"
)

const (
	compositeRetries    = 3
	compositeRetryDelay = 500 * time.Millisecond
)

// storageFilter checks a USB device arrival against the OS device tree. The
// device interface notification carries no class, so a mouse and a flash
// drive look alike until their compatible ids are read.
type storageFilter struct {
	enum    platform.DeviceEnumerator
	retries int
	delay   time.Duration
	sleep   func(time.Duration)
	logger  zerolog.Logger
}

func newStorageFilter(enum platform.DeviceEnumerator, logger zerolog.Logger) *storageFilter {
	return &storageFilter{
		enum:    enum,
		retries: compositeRetries,
		delay:   compositeRetryDelay,
		sleep:   time.Sleep,
		logger:  logger,
	}
}

// confirm reports whether path should reach the registry. Paths without a
// VID/PID, enumeration failures and devices the tree does not list yet pass
// through to the registry's own filter.
func (f *storageFilter) confirm(path string) bool {
	id := identity.ExtractDeviceID(path)
	if !identity.IsParseable(id) {
		return true
	}

	for attempt := 0; ; attempt++ {
		storage, composite, listed, err := f.lookup(id)
		if err != nil {
			f.logger.Warn().Err(err).Str("device_id", id).Msg("Cannot read device class; passing arrival through")
			return true
		}
		if !listed {
			return true
		}
		if storage || !composite || attempt >= f.retries {
			if !storage {
				f.logger.Debug().Str("device_id", id).Msg("Ignoring USB device without a mass-storage interface")
			}
			return storage
		}
		f.sleep(f.delay)
	}
}

func (f *storageFilter) lookup(id string) (storage, composite, listed bool, err error) {
	set, err := f.enum.Open()
	if err != nil {
		return false, false, false, err
	}
	defer set.Close()

	entries := set.Devices()
	prefix := `USB\` + strings.ToUpper(id)
	for _, e := range entries {
		if strings.HasPrefix(strings.ToUpper(e.InstanceID), prefix) {
			listed = true
			break
		}
	}
	storage, composite = platform.StorageClass(entries, id)
	return storage, composite, listed, nil
}
