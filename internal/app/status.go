package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gajzzs/usbwarden/internal/config"
	"github.com/gajzzs/usbwarden/internal/service"
	"github.com/gajzzs/usbwarden/internal/system"
)

func NewStatusCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:                   "status",
		Short:                 "Show daemon, policy and host status",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := config.Load(o.ConfigPath)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "USB Warden Status")
			fmt.Fprintln(out, "=================")

			fmt.Fprintln(out, "\nConfiguration:")
			fmt.Fprintf(out, "  File: %s\n", o.ConfigPath)
			fmt.Fprintf(out, "  Auto-deny unknown devices: %t\n", cfg.AutoDenyUnknownDevices)
			fmt.Fprintf(out, "  Email notifications: %t\n", cfg.EmailNotificationsEnabled)
			fmt.Fprintf(out, "  Desktop notifications: %t\n", cfg.DesktopNotificationsEnabled)
			fmt.Fprintf(out, "  Control API: %s\n", cfg.ListenAddr)
			fmt.Fprintf(out, "  Admin password set: %t\n", cfg.AdminPasswordHash != "")

			fmt.Fprintln(out, "\nService Status:")
			if sm, err := service.NewServiceManager(service.NewDaemon(cfg), o.ConfigPath); err == nil {
				if status, err := sm.Status(); err == nil {
					fmt.Fprintf(out, "  Status: %s\n", status)
				} else {
					fmt.Fprintln(out, "  Status: Not installed")
				}
			} else {
				fmt.Fprintln(out, "  Status: Not Available")
			}
			fmt.Fprintf(out, "  Daemon running: %t\n", service.DaemonRunning(service.DefaultPidFile()))

			printHost(out, system.NewMonitor())

			if cfg.AdminPasswordHash == "" {
				return nil
			}
			c, err := o.client()
			if err != nil {
				return nil
			}
			st, err := c.Status()
			if err != nil {
				fmt.Fprintf(out, "\nDaemon API: unreachable (%v)\n", err)
				return nil
			}
			fmt.Fprintln(out, "\nDevices:")
			fmt.Fprintf(out, "  Connected: %d\n", st.DeviceCount)
			fmt.Fprintf(out, "  Denied: %d\n", st.DeniedCount)
			if st.USBStorageEnabled != nil {
				fmt.Fprintf(out, "  USB storage: %s\n", enabledText(*st.USBStorageEnabled))
			}
			return nil
		},
	}
}

func printHost(out io.Writer, m *system.Monitor) {
	info := m.HostInfo()
	fmt.Fprintln(out, "\nSystem Information:")
	fmt.Fprintf(out, "  Hostname: %s\n", info.Hostname)
	fmt.Fprintf(out, "  OS: %s (%s %s)\n", info.OS, info.Platform, info.KernelVersion)
	fmt.Fprintf(out, "  Memory Usage: %.2f%%\n", info.MemoryPercent)

	vols, err := m.RemovableVolumes()
	if err != nil {
		return
	}
	fmt.Fprintln(out, "\nRemovable Volumes:")
	if len(vols) == 0 {
		fmt.Fprintln(out, "  none mounted")
	}
	for _, v := range vols {
		fmt.Fprintf(out, "  %s on %s (%s)\n", v.Device, v.Mountpoint, v.Fstype)
	}
}
