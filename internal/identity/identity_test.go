package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDeviceID(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "usb device interface",
			path: `\\?\USB#VID_1234&PID_5678#0001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`,
			want: "VID_1234&PID_5678",
		},
		{
			name: "lowercase markers",
			path: `\\?\usb#vid_0781&pid_5567#4c530001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`,
			want: "VID_0781&PID_5567",
		},
		{
			name: "hardware id",
			path: `USB\VID_058F&PID_6387&REV_0100`,
			want: "VID_058F&PID_6387",
		},
		{
			name: "missing product marker falls back to raw path",
			path: `\\?\USB#VID_1234#serial`,
			want: `\\?\USB#VID_1234#serial`,
		},
		{
			name: "no markers",
			path: `\\?\STORAGE#Volume#1`,
			want: `\\?\STORAGE#Volume#1`,
		},
		{
			name: "short trailing field",
			path: `VID_12&PID_5`,
			want: "VID_12&P&PID_5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDeviceID(tt.path))
		})
	}
}

func TestExtractDeviceIDIdempotent(t *testing.T) {
	paths := []string{
		`\\?\USB#VID_1234&PID_5678#0001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`,
		`USB#VID_0781&PID_5567#CLASS_08#/devices/pci0000:00/usb1/1-2/1-2:1.0`,
		`USBSTOR\Disk&Ven_SanDisk&Prod_Cruzer`,
	}

	for _, p := range paths {
		once := ExtractDeviceID(p)
		assert.Equal(t, once, ExtractDeviceID(once), p)
	}
}

func TestExtractVendorAndProduct(t *testing.T) {
	hwid := `USB\VID_046D&PID_C52B&REV_1211`

	assert.Equal(t, "046D", ExtractVendorID(hwid))
	assert.Equal(t, "C52B", ExtractProductID(hwid))
	assert.Equal(t, Unknown, ExtractVendorID(`ACPI\PNP0303`))
	assert.Equal(t, Unknown, ExtractProductID(`USB\VID_046D`))
}

func TestIsParseable(t *testing.T) {
	assert.True(t, IsParseable("VID_1234&PID_5678"))
	assert.False(t, IsParseable(`\\?\STORAGE#Volume#1`))
	assert.False(t, IsParseable("VID_12&P&PID_5"))
	assert.False(t, IsParseable(""))
}

func TestIsStorageDevice(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"usb device interface", `\\?\USB#VID_1234&PID_5678#0001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`, true},
		{"usb device without guid", `\\?\USB#VID_1234&PID_5678#...`, true},
		{"usbstor disk", `\\?\USBSTOR#Disk&Ven_Kingston&Prod_DataTraveler#001#{53f56307-b6bf-11d0-94f2-00a0c91efb8b}`, true},
		{"disk interface guid", `\\?\SCSI#Disk&Ven_Generic#5&1#{53f56307-b6bf-11d0-94f2-00a0c91efb8b}`, true},
		{"volume interface guid", `\\?\STORAGE#Volume#_??_USBSTOR#{53f5630d-b6bf-11d0-94f2-00a0c91efb8b}`, true},
		{"linux mass storage uevent", `USB#VID_0781&PID_5567#CLASS_08#/devices/pci0000:00/usb1/1-2/1-2:1.0`, true},
		{"hid interface", `\\?\HID#VID_046D&PID_C52B&MI_00#7&1#{4d1e55b2-f16f-11cf-88cb-001111000030}`, false},
		{"usb path with hid guid", `\\?\USB#VID_046D&PID_C52B#5&1#{4d1e55b2-f16f-11cf-88cb-001111000030}`, false},
		{"usb hub without markers", `\\?\USB#ROOT_HUB30#4&1#{f18a0e88-c30c-11d0-8815-00a0c906bed8}`, false},
		{"linux hid uevent", `USB#VID_046D&PID_C52B#CLASS_03#/devices/pci0000:00/usb1/1-3/1-3:1.0`, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStorageDevice(tt.path))
		})
	}
}

func TestClassTag(t *testing.T) {
	assert.Equal(t, MassStorageClassTag, ClassTag(0x08))
	assert.Equal(t, "#CLASS_FF#", ClassTag(0xff))
}
