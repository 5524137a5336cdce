package app

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/gajzzs/usbwarden/internal/config"
	"github.com/gajzzs/usbwarden/internal/registry"
	"github.com/gajzzs/usbwarden/internal/service"
)

// PasswordEnv supplies the admin password to client commands.
const PasswordEnv = "USBWARDEN_PASSWORD"

// Options holds the persistent root flags shared by every command.
type Options struct {
	ConfigPath string
	Server     string
	Username   string
	Password   string

	// prompt reads a secret interactively; swapped in tests.
	prompt func(label string) (string, error)
}

func NewOptions() *Options {
	return &Options{
		ConfigPath: config.ConfigFile,
		prompt:     promptSecret,
	}
}

// Bind registers the persistent flags on root.
func (o *Options) Bind(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVarP(&o.ConfigPath, "config", "c", o.ConfigPath, "path to config file")
	f.StringVar(&o.Server, "server", "", "control API base URL (default derived from listen_addr)")
	f.StringVarP(&o.Username, "user", "u", "", "admin user name (default from config)")
	f.StringVarP(&o.Password, "password", "p", "", "admin password (or set "+PasswordEnv+")")
}

func (o *Options) client() (*Client, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	server := o.Server
	if server == "" {
		server = serverURL(cfg.ListenAddr)
	}
	user := o.Username
	if user == "" {
		user = cfg.AdminUsername
	}
	pass := o.Password
	if pass == "" {
		pass = os.Getenv(PasswordEnv)
	}
	if pass == "" {
		if pass, err = o.prompt("Admin password"); err != nil {
			return nil, err
		}
	}
	return NewClient(server, user, pass), nil
}

// serverURL turns a listen address such as ":8080" into a loopback URL.
func serverURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func promptSecret(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("must not be empty")
			}
			return nil
		},
	}
	return p.Run()
}

// NewRunCommand runs the daemon in the foreground, or under the service
// manager when started by it.
func NewRunCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the USB monitor daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.ConfigPath)
			if err != nil {
				return err
			}
			sm, err := service.NewServiceManager(service.NewDaemon(cfg), o.ConfigPath)
			if err != nil {
				return err
			}
			return sm.Run()
		},
	}
}

func NewServiceCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the usbwarden system service",
	}

	manager := func() (*service.ServiceManager, error) {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		return service.NewServiceManager(service.NewDaemon(cfg), o.ConfigPath)
	}

	action := func(use, short, done string, fn func(*service.ServiceManager) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := manager()
				if err != nil {
					return err
				}
				if err := fn(sm); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		action("install", "Install and enable the service", "Service installed and enabled for auto-start", (*service.ServiceManager).Install),
		action("uninstall", "Remove the service", "Service uninstalled", (*service.ServiceManager).Uninstall),
		action("start", "Start the service", "Service started", (*service.ServiceManager).Start),
		action("stop", "Stop the service", "Service stopped", (*service.ServiceManager).Stop),
		action("restart", "Restart the service", "Service restarted", (*service.ServiceManager).Restart),
		&cobra.Command{
			Use:   "status",
			Short: "Show service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := manager()
				if err != nil {
					return err
				}
				status, err := sm.Status()
				if err != nil {
					status = "Not installed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service status: %s\n", status)
				fmt.Fprintf(cmd.OutOrStdout(), "Service config: %s\n", service.ServiceConfigPath())
				return nil
			},
		},
	)

	return cmd
}

func NewDevicesCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List and authorize connected storage devices",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List connected storage devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := o.client()
				if err != nil {
					return err
				}
				devices, err := c.Devices()
				if err != nil {
					return err
				}
				printDevices(cmd.OutOrStdout(), devices)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show [device-id]",
			Short: "Show one device",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := o.client()
				if err != nil {
					return err
				}
				rec, err := c.Device(args[0])
				if err != nil {
					return err
				}
				printDevice(cmd.OutOrStdout(), rec)
				return nil
			},
		},
		decisionCommand(o, "allow", "Allow a device", "allowed", (*Client).Allow),
		decisionCommand(o, "deny", "Deny and disable a device", "denied", (*Client).Deny),
	)

	return cmd
}

func decisionCommand(o *Options, verb, short, done string, fn func(*Client, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [device-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ok, err := fn(c, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("device %s is not connected", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device %s %s\n", args[0], done)
			return nil
		},
	}
}

func NewStorageCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Control the USB mass-storage driver policy",
	}

	set := func(enable bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ok, err := c.SetStorage(enable)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("daemon could not change the USB storage policy; see its log")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "USB storage %s\n", enabledText(enable))
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether USB storage is enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := o.client()
				if err != nil {
					return err
				}
				enabled, err := c.StorageEnabled()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "USB storage: %s\n", enabledText(enabled))
				return nil
			},
		},
		&cobra.Command{Use: "enable", Short: "Enable USB storage", Args: cobra.NoArgs, RunE: set(true)},
		&cobra.Command{Use: "disable", Short: "Disable USB storage", Args: cobra.NoArgs, RunE: set(false)},
	)

	return cmd
}

func NewHardwareCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "hardware",
		Short: "List every USB device the OS reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			devices, err := c.Hardware()
			if err != nil {
				return err
			}
			for i, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, d)
			}
			return nil
		},
	}
}

func NewLogsCommand(o *Options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			lines, err := c.Logs(count)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "lines", "n", 100, "number of lines")
	return cmd
}

func NewConfigCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and edit the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(o.ConfigPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", o.ConfigPath)
			}
			if err := config.Default().Save(o.ConfigPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", o.ConfigPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	setPassword := &cobra.Command{
		Use:   "set-password",
		Short: "Set the control API admin password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.ConfigPath)
			if err != nil {
				return err
			}
			pass := o.Password
			if pass == "" {
				if pass, err = o.prompt("New admin password"); err != nil {
					return err
				}
				confirm, err := o.prompt("Confirm password")
				if err != nil {
					return err
				}
				if confirm != pass {
					return errors.New("passwords do not match")
				}
			}
			if o.Username != "" {
				cfg.AdminUsername = o.Username
			}
			if err := cfg.SetAdminPassword(pass); err != nil {
				return err
			}
			if err := cfg.Save(o.ConfigPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin password updated for %q; restart the service to apply\n", cfg.AdminUsername)
			return nil
		},
	}

	cmd.AddCommand(initCmd, setPassword)
	return cmd
}

func printDevices(w io.Writer, devices []registry.DeviceRecord) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No storage devices connected")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE ID\tNAME\tALLOWED\tINSERTED\tLAST ACTION")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n",
			d.DeviceID, d.FriendlyName, d.IsAllowed,
			d.InsertTime.Local().Format("2006-01-02 15:04:05"),
			enforcementText(d.LastEnforcement))
	}
	tw.Flush()
}

func printDevice(w io.Writer, d registry.DeviceRecord) {
	fmt.Fprintf(w, "Device ID:     %s\n", d.DeviceID)
	fmt.Fprintf(w, "Vendor ID:     %s\n", d.VendorID)
	fmt.Fprintf(w, "Product ID:    %s\n", d.ProductID)
	fmt.Fprintf(w, "Name:          %s\n", d.FriendlyName)
	fmt.Fprintf(w, "Path:          %s\n", d.DevicePath)
	if d.DriveLetter != "" {
		fmt.Fprintf(w, "Drive:         %s\n", d.DriveLetter)
	}
	fmt.Fprintf(w, "Allowed:       %t\n", d.IsAllowed)
	fmt.Fprintf(w, "Inserted:      %s\n", d.InsertTime.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Last action:   %s\n", enforcementText(d.LastEnforcement))
}

func enforcementText(e registry.EnforcementResult) string {
	if e.Outcome == registry.OutcomeNone {
		return "-"
	}
	text := e.Action + " " + string(e.Outcome)
	if e.Error != "" {
		text += ": " + e.Error
	}
	return text
}

func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
