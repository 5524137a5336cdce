package system

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMonitor(goos string, parts []disk.PartitionStat) *Monitor {
	return &Monitor{
		goos: goos,
		hostInfo: func() (*host.InfoStat, error) {
			return &host.InfoStat{Hostname: "ws-07", OS: goos, Platform: "ubuntu", Uptime: 3600}, nil
		},
		memory: func() (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{UsedPercent: 42.5}, nil
		},
		partitions: func(bool) ([]disk.PartitionStat, error) { return parts, nil },
		usage: func(path string) (*disk.UsageStat, error) {
			if path == "/media/usb-broken" {
				return nil, errors.New("stale mount")
			}
			return &disk.UsageStat{Path: path, Total: 1000, Used: 250}, nil
		},
	}
}

func TestHostInfo(t *testing.T) {
	m := fakeMonitor("linux", nil)
	info := m.HostInfo()
	assert.Equal(t, "ws-07", info.Hostname)
	assert.Equal(t, "ubuntu", info.Platform)
	assert.Equal(t, uint64(3600), info.Uptime)
	assert.Equal(t, 42.5, info.MemoryPercent)

	m.hostInfo = func() (*host.InfoStat, error) { return nil, errors.New("boom") }
	info = m.HostInfo()
	assert.Empty(t, info.Hostname)
	assert.Equal(t, 42.5, info.MemoryPercent)
}

func TestRemovableVolumesLinux(t *testing.T) {
	m := fakeMonitor("linux", []disk.PartitionStat{
		{Device: "/dev/nvme0n1p2", Mountpoint: "/", Fstype: "ext4"},
		{Device: "/dev/sda1", Mountpoint: "/boot", Fstype: "vfat"},
		{Device: "/dev/sdb1", Mountpoint: "/media/alex/KINGSTON", Fstype: "vfat"},
		{Device: "/dev/sdc1", Mountpoint: "/media/usb-broken", Fstype: "exfat"},
	})

	vols, err := m.RemovableVolumes()
	require.NoError(t, err)
	require.Len(t, vols, 2)
	assert.Equal(t, Volume{Device: "/dev/sdb1", Mountpoint: "/media/alex/KINGSTON", Fstype: "vfat", Total: 1000, Used: 250}, vols[0])
	assert.Equal(t, uint64(0), vols[1].Total)
}

func TestRemovableVolumesWindows(t *testing.T) {
	m := fakeMonitor("windows", []disk.PartitionStat{
		{Device: "C:", Mountpoint: "C:", Fstype: "NTFS"},
		{Device: "D:", Mountpoint: "D:", Fstype: "CDFS"},
		{Device: "E:", Mountpoint: "E:", Fstype: "FAT32"},
	})

	vols, err := m.RemovableVolumes()
	require.NoError(t, err)
	require.Len(t, vols, 1)
	assert.Equal(t, "E:", vols[0].Mountpoint)
}

func TestRemovableVolumesError(t *testing.T) {
	m := fakeMonitor("linux", nil)
	m.partitions = func(bool) ([]disk.PartitionStat, error) { return nil, errors.New("no mtab") }
	_, err := m.RemovableVolumes()
	assert.Error(t, err)
}
