// Package system reports host facts shown next to the device table.
package system

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type HostInfo struct {
	Hostname      string  `json:"hostname"`
	OS            string  `json:"os"`
	Platform      string  `json:"platform"`
	KernelVersion string  `json:"kernelVersion"`
	Uptime        uint64  `json:"uptime"`
	MemoryPercent float64 `json:"memoryPercent"`
}

// Volume is a mounted filesystem that looks like removable media.
type Volume struct {
	Device     string `json:"device"`
	Mountpoint string `json:"mountpoint"`
	Fstype     string `json:"fstype"`
	Total      uint64 `json:"total"`
	Used       uint64 `json:"used"`
}

type Monitor struct {
	goos       string
	hostInfo   func() (*host.InfoStat, error)
	memory     func() (*mem.VirtualMemoryStat, error)
	partitions func(all bool) ([]disk.PartitionStat, error)
	usage      func(path string) (*disk.UsageStat, error)
}

func NewMonitor() *Monitor {
	return &Monitor{
		goos:       runtime.GOOS,
		hostInfo:   host.Info,
		memory:     mem.VirtualMemory,
		partitions: disk.Partitions,
		usage:      disk.Usage,
	}
}

// HostInfo returns whatever host facts could be read; missing ones stay zero.
func (m *Monitor) HostInfo() HostInfo {
	var info HostInfo
	if h, err := m.hostInfo(); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = h.Platform
		info.KernelVersion = h.KernelVersion
		info.Uptime = h.Uptime
	}
	if v, err := m.memory(); err == nil {
		info.MemoryPercent = v.UsedPercent
	}
	return info
}

// RemovableVolumes lists mounted volumes that are likely on USB media.
func (m *Monitor) RemovableVolumes() ([]Volume, error) {
	parts, err := m.partitions(false)
	if err != nil {
		return nil, err
	}

	vols := []Volume{}
	for _, p := range parts {
		if !isRemovableMount(m.goos, p) {
			continue
		}
		v := Volume{Device: p.Device, Mountpoint: p.Mountpoint, Fstype: p.Fstype}
		if u, err := m.usage(p.Mountpoint); err == nil {
			v.Total = u.Total
			v.Used = u.Used
		}
		vols = append(vols, v)
	}
	return vols, nil
}

func isRemovableMount(goos string, p disk.PartitionStat) bool {
	switch goos {
	case "windows":
		// The system drive is never removable media.
		return !strings.EqualFold(p.Mountpoint, "C:") && !strings.EqualFold(p.Fstype, "CDFS")
	default:
		if !strings.HasPrefix(p.Device, "/dev/sd") {
			return false
		}
		return strings.HasPrefix(p.Mountpoint, "/media/") ||
			strings.HasPrefix(p.Mountpoint, "/run/media/") ||
			strings.HasPrefix(p.Mountpoint, "/mnt/")
	}
}
