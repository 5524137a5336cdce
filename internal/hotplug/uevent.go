package hotplug

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gajzzs/usbwarden/internal/identity"
	"github.com/gajzzs/usbwarden/internal/registry"
)

// Uevent is a kernel object event as broadcast on NETLINK_KOBJECT_UEVENT.
type Uevent struct {
	Action    string
	DevPath   string
	Subsystem string
	DevType   string
	Env       map[string]string
}

// ParseUevent decodes a kernel uevent datagram: a "action@devpath" header
// followed by NUL separated KEY=VALUE pairs. Messages re-broadcast by udev
// carry a binary header and are rejected.
func ParseUevent(msg []byte) (Uevent, error) {
	if bytes.HasPrefix(msg, []byte("libudev")) {
		return Uevent{}, fmt.Errorf("udev message")
	}

	fields := bytes.Split(msg, []byte{0})
	header := string(fields[0])
	at := strings.IndexByte(header, '@')
	if at <= 0 {
		return Uevent{}, fmt.Errorf("malformed uevent header %q", header)
	}

	ev := Uevent{
		Action:  header[:at],
		DevPath: header[at+1:],
		Env:     make(map[string]string, len(fields)),
	}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(string(f), "=")
		if !ok {
			continue
		}
		ev.Env[k] = v
	}

	if a := ev.Env["ACTION"]; a != "" {
		ev.Action = a
	}
	if p := ev.Env["DEVPATH"]; p != "" {
		ev.DevPath = p
	}
	ev.Subsystem = ev.Env["SUBSYSTEM"]
	ev.DevType = ev.Env["DEVTYPE"]
	return ev, nil
}

// Kind maps the uevent action to a registry event.
func (e Uevent) Kind() (registry.EventKind, bool) {
	switch e.Action {
	case "add":
		return registry.Arrival, true
	case "remove":
		return registry.Removal, true
	default:
		return 0, false
	}
}

// DevicePath builds the path handed to the registry. Arrivals come from USB
// interface events, which carry the interface class, for example
// USB#VID_0781&PID_5581#CLASS_08#/devices/pci0000:00/.../2-1:1.0.
// Removals come from the usb_device node only. Deauthorizing a device removes
// its interfaces but keeps the device node, and a denied device stays listed.
func (e Uevent) DevicePath() (string, bool) {
	if e.Subsystem != "usb" {
		return "", false
	}

	vid, pid, ok := parseProduct(e.Env["PRODUCT"])
	if !ok {
		return "", false
	}
	prefix := fmt.Sprintf("USB#VID_%04X&PID_%04X", vid, pid)

	switch {
	case e.Action == "add" && e.DevType == "usb_interface":
		class, ok := parseInterfaceClass(e.Env["INTERFACE"])
		if !ok {
			return "", false
		}
		return prefix + identity.ClassTag(class) + e.DevPath, true
	case e.Action == "remove" && e.DevType == "usb_device":
		return prefix + "#" + e.DevPath, true
	default:
		return "", false
	}
}

// routeUevent parses msg and calls h when it is a USB arrival or removal.
func routeUevent(msg []byte, h Handler) (bool, error) {
	ev, err := ParseUevent(msg)
	if err != nil {
		return false, err
	}
	kind, ok := ev.Kind()
	if !ok {
		return false, nil
	}
	path, ok := ev.DevicePath()
	if !ok {
		return false, nil
	}
	h(kind, path)
	return true, nil
}

// parseProduct reads PRODUCT=vid/pid/bcdDevice, in unpadded hex.
func parseProduct(s string) (uint16, uint16, bool) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return 0, 0, false
	}
	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return uint16(vid), uint16(pid), true
}

// parseInterfaceClass reads INTERFACE=class/subclass/protocol, in decimal.
func parseInterfaceClass(s string) (uint8, bool) {
	class, _, _ := strings.Cut(s, "/")
	if class == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(class, 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}
