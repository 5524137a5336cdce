//go:build windows

package hotplug

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"github.com/gajzzs/usbwarden/internal/identity"
	"github.com/gajzzs/usbwarden/internal/platform"
	"github.com/gajzzs/usbwarden/internal/registry"
)

var (
	modcfgmgr32 = windows.NewLazySystemDLL("cfgmgr32.dll")

	procCMRegisterNotification   = modcfgmgr32.NewProc("CM_Register_Notification")
	procCMUnregisterNotification = modcfgmgr32.NewProc("CM_Unregister_Notification")
)

const (
	cmNotifyFilterTypeDeviceInterface = 0

	cmNotifyActionDeviceInterfaceArrival = 0
	cmNotifyActionDeviceInterfaceRemoval = 1

	crSuccess = 0

	// CM_NOTIFY_FILTER's union is sized by the 200 WCHAR instance id member.
	cmNotifyFilterUnionSize = 400

	// Offset of SymbolicLink in CM_NOTIFY_EVENT_DATA: FilterType, Reserved, ClassGuid.
	symbolicLinkOffset = 4 + 4 + 16

	eventBacklog = 64
)

type cmNotifyFilter struct {
	Size       uint32
	Flags      uint32
	FilterType uint32
	Reserved   uint32
	ClassGUID  windows.GUID
	_          [cmNotifyFilterUnionSize - 16]byte
}

type deviceEvent struct {
	kind registry.EventKind
	path string
}

// cmSource subscribes to USB device interface arrival and removal through
// the configuration manager. The OS callback only queues; a goroutine
// delivers to the handler.
type cmSource struct {
	logger zerolog.Logger
	filter *storageFilter

	mu       sync.Mutex
	handle   uintptr
	callback uintptr
	events   chan deviceEvent
	done     chan struct{}
}

func newSource(logger zerolog.Logger) Source {
	return &cmSource{
		logger: logger,
		filter: newStorageFilter(platform.NewDeviceEnumerator(), logger),
	}
}

func (s *cmSource) Start(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != 0 {
		return ErrAlreadyStarted
	}
	if err := procCMRegisterNotification.Find(); err != nil {
		return fmt.Errorf("CM_Register_Notification unavailable: %w", err)
	}

	guid, err := windows.GUIDFromString(identity.GUIDUSBDevice)
	if err != nil {
		return err
	}

	filter := cmNotifyFilter{
		FilterType: cmNotifyFilterTypeDeviceInterface,
		ClassGUID:  guid,
	}
	filter.Size = uint32(unsafe.Sizeof(filter))

	s.events = make(chan deviceEvent, eventBacklog)
	s.done = make(chan struct{})
	if s.callback == 0 {
		s.callback = windows.NewCallback(s.onNotify)
	}

	var handle uintptr
	ret, _, _ := procCMRegisterNotification.Call(
		uintptr(unsafe.Pointer(&filter)),
		0,
		s.callback,
		uintptr(unsafe.Pointer(&handle)),
	)
	if ret != crSuccess {
		return fmt.Errorf("CM_Register_Notification failed: CONFIGRET 0x%x", ret)
	}
	s.handle = handle

	go s.deliver(h, s.events, s.done)

	s.logger.Info().Msg("USB monitor started")
	return nil
}

func (s *cmSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == 0 {
		return nil
	}

	ret, _, _ := procCMUnregisterNotification.Call(s.handle)
	s.handle = 0
	close(s.events)
	<-s.done

	if ret != crSuccess {
		return fmt.Errorf("CM_Unregister_Notification failed: CONFIGRET 0x%x", ret)
	}
	s.logger.Info().Msg("USB monitor stopped")
	return nil
}

func (s *cmSource) deliver(h Handler, events <-chan deviceEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		if ev.kind == registry.Arrival && !s.filter.confirm(ev.path) {
			continue
		}
		h(ev.kind, ev.path)
	}
}

// onNotify runs on a system thread pool thread.
func (s *cmSource) onNotify(hNotify, context, action, eventData, eventDataSize uintptr) uintptr {
	var kind registry.EventKind
	switch action {
	case cmNotifyActionDeviceInterfaceArrival:
		kind = registry.Arrival
	case cmNotifyActionDeviceInterfaceRemoval:
		kind = registry.Removal
	default:
		return 0
	}
	if eventData == 0 || eventDataSize <= symbolicLinkOffset {
		return 0
	}

	// eventData is OS memory valid for the duration of the callback, not a
	// Go pointer, so the uintptr arithmetic cannot race the collector.
	link := windows.UTF16PtrToString((*uint16)(unsafe.Pointer(eventData + symbolicLinkOffset)))

	select {
	case s.events <- deviceEvent{kind: kind, path: link}:
	default:
		s.logger.Warn().Str("path", link).Msg("Event backlog full, dropping device event")
	}
	return 0
}
