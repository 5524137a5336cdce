package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/gajzzs/usbwarden/internal/registry"
)

const (
	notificationsBus   = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"

	appName       = "usbwarden"
	expireTimeout = int32(10000)
)

type busCaller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DesktopSender pops a notification through the freedesktop notification
// service on the session bus. The bus is dialed on first use.
type DesktopSender struct {
	mu   sync.Mutex
	obj  busCaller
	dial func() (busCaller, error)
}

func NewDesktopSender() *DesktopSender {
	return &DesktopSender{dial: dialSessionBus}
}

func dialSessionBus() (busCaller, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return conn.Object(notificationsBus, notificationsPath), nil
}

func (d *DesktopSender) Name() string { return "desktop" }

func (d *DesktopSender) Send(ctx context.Context, rec registry.DeviceRecord) error {
	obj, err := d.object()
	if err != nil {
		return err
	}

	summary, body := FormatArrivalEmail(rec)
	call := obj.CallWithContext(ctx, notificationsIface+".Notify", 0,
		appName,
		uint32(0),
		"drive-removable-media",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))},
		expireTimeout,
	)
	if call.Err != nil {
		d.reset()
		return fmt.Errorf("desktop notification failed: %w", call.Err)
	}
	return nil
}

func (d *DesktopSender) object() (busCaller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.obj == nil {
		obj, err := d.dial()
		if err != nil {
			return nil, err
		}
		d.obj = obj
	}
	return d.obj, nil
}

// reset drops the cached bus object so the next send redials.
func (d *DesktopSender) reset() {
	d.mu.Lock()
	d.obj = nil
	d.mu.Unlock()
}
