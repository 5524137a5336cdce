// Package identity turns raw device paths and hardware ids into the
// normalized VID_xxxx&PID_xxxx keys used across usbwarden.
package identity

import (
	"fmt"
	"strings"
)

const (
	vendorMarker  = "VID_"
	productMarker = "PID_"
	idFieldLen    = 4

	// Unknown is returned by ExtractVendorID and ExtractProductID when the marker is missing.
	Unknown = "Unknown"
)

// Interface class GUIDs seen in device interface paths.
const (
	GUIDDiskInterface   = "{53f56307-b6bf-11d0-94f2-00a0c91efb8b}"
	GUIDVolumeInterface = "{53f5630d-b6bf-11d0-94f2-00a0c91efb8b}"
	GUIDUSBDevice       = "{a5dcbf10-6530-11d2-901f-00c04fb951ed}"
)

// MassStorageClassTag marks paths built from Linux uevents whose USB
// interface class is 08 (mass storage).
const MassStorageClassTag = "#CLASS_08#"

const classTagPrefix = "#CLASS_"

// ClassTag formats the interface class marker for a Linux uevent path.
func ClassTag(class uint8) string {
	return fmt.Sprintf("%s%02X#", classTagPrefix, class)
}

// ExtractDeviceID returns VID_<4>&PID_<4> when both markers are present
// and the raw path otherwise. Feeding the result back in yields the same id.
func ExtractDeviceID(path string) string {
	vid, okV := field(path, vendorMarker)
	pid, okP := field(path, productMarker)
	if !okV || !okP {
		return path
	}
	return vendorMarker + vid + "&" + productMarker + pid
}

// ExtractVendorID returns the four characters after VID_, or Unknown.
func ExtractVendorID(hardwareID string) string {
	if v, ok := field(hardwareID, vendorMarker); ok {
		return v
	}
	return Unknown
}

// ExtractProductID returns the four characters after PID_, or Unknown.
func ExtractProductID(hardwareID string) string {
	if v, ok := field(hardwareID, productMarker); ok {
		return v
	}
	return Unknown
}

// IsParseable reports whether id already has the VID_xxxx&PID_xxxx form.
// Ids that fell back to the raw path are not parseable and will not match
// hardware-id lookups reliably.
func IsParseable(id string) bool {
	if len(id) != len("VID_0000&PID_0000") {
		return false
	}
	return strings.HasPrefix(id, vendorMarker) &&
		id[8] == '&' &&
		strings.HasPrefix(id[9:], productMarker)
}

// IsStorageDevice reports whether the device path names a USB mass-storage
// interface. It is the only filter between hotplug events and the registry.
func IsStorageDevice(path string) bool {
	if path == "" {
		return false
	}
	upper := asciiUpper(path)

	if strings.Contains(upper, MassStorageClassTag) {
		return true
	}
	if strings.Contains(upper, classTagPrefix) {
		return false
	}
	if strings.Contains(upper, "USBSTOR") {
		return true
	}

	guid := interfaceGUID(path)
	switch guid {
	case GUIDDiskInterface, GUIDVolumeInterface:
		return true
	case "", GUIDUSBDevice:
	default:
		return false
	}

	bus := busSegment(upper)
	if bus != "USB" {
		return false
	}
	_, okV := field(path, vendorMarker)
	_, okP := field(path, productMarker)
	return okV && okP
}

// field finds marker case-insensitively and returns up to four characters
// following it.
func field(s, marker string) (string, bool) {
	pos := strings.Index(asciiUpper(s), marker)
	if pos < 0 {
		return "", false
	}
	start := pos + len(marker)
	end := start + idFieldLen
	if end > len(s) {
		end = len(s)
	}
	return s[start:end], true
}

// interfaceGUID returns the trailing {...} class GUID of an interface path, lower-cased.
func interfaceGUID(path string) string {
	end := strings.LastIndex(path, "}")
	if end < 0 || end != len(path)-1 {
		return ""
	}
	start := strings.LastIndex(path, "{")
	if start < 0 {
		return ""
	}
	return strings.ToLower(path[start:])
}

// busSegment returns the enumerator name of a \\?\BUS#... path.
func busSegment(upper string) string {
	s := strings.TrimPrefix(upper, `\\?\`)
	s = strings.TrimPrefix(s, `\??\`)
	if i := strings.IndexAny(s, `#\`); i >= 0 {
		return s[:i]
	}
	return s
}

// asciiUpper upper-cases a-z only so byte offsets line up with the input.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
