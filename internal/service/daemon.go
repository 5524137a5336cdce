package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/api"
	"github.com/gajzzs/usbwarden/internal/config"
	"github.com/gajzzs/usbwarden/internal/device"
	"github.com/gajzzs/usbwarden/internal/hotplug"
	"github.com/gajzzs/usbwarden/internal/logging"
	"github.com/gajzzs/usbwarden/internal/notify"
	"github.com/gajzzs/usbwarden/internal/platform"
	"github.com/gajzzs/usbwarden/internal/registry"
	"github.com/gajzzs/usbwarden/internal/system"
)

const shutdownTimeout = 5 * time.Second

var _ registry.DetailedActuator = (*device.Controller)(nil)

var (
	ErrAlreadyRunning = errors.New("daemon already running")
	ErrNotElevated    = errors.New("administrator privileges are required")
)

// Daemon wires the event source, registry, actuator, notifier and HTTP
// control surface together for one run.
type Daemon struct {
	cfg *config.Config

	source   hotplug.Source
	enum     platform.DeviceEnumerator
	policy   platform.StoragePolicy
	elevated func() bool
	pidFile  string

	mu       sync.Mutex
	running  bool
	sink     *logging.Sink
	logger   zerolog.Logger
	registry *registry.Registry
	queue    *notify.Queue
	server   *api.Server
}

type DaemonOption func(*Daemon)

func WithEventSource(s hotplug.Source) DaemonOption {
	return func(d *Daemon) {
		d.source = s
	}
}

func WithDeviceBackend(enum platform.DeviceEnumerator, policy platform.StoragePolicy) DaemonOption {
	return func(d *Daemon) {
		d.enum = enum
		d.policy = policy
	}
}

func WithElevationCheck(check func() bool) DaemonOption {
	return func(d *Daemon) {
		d.elevated = check
	}
}

func WithPidFile(path string) DaemonOption {
	return func(d *Daemon) {
		d.pidFile = path
	}
}

func NewDaemon(cfg *config.Config, opts ...DaemonOption) *Daemon {
	d := &Daemon{
		cfg:      cfg,
		elevated: platform.IsElevated,
		pidFile:  DefaultPidFile(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Start brings every component up. Failing to start the event source is
// fatal and undoes everything started before it.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrAlreadyRunning
	}
	if !d.elevated() {
		return ErrNotElevated
	}

	sink, err := logging.New(d.cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := sink.Category(logging.CategorySystem)
	logger.Info().Msg("USB Monitor Service starting")

	if d.cfg.AdminPasswordHash == "" {
		logger.Warn().Msg("Admin password is not set; the control API will reject every request until 'usbwarden config set-password' is run")
	}

	enum, policy := d.enum, d.policy
	if enum == nil {
		enum = platform.NewDeviceEnumerator()
	}
	if policy == nil {
		policy = platform.NewStoragePolicy(d.cfg.USBStoragePolicyKey)
	}
	controller := device.NewController(enum, policy, sink.Logger())

	var notifier registry.Notifier
	queue := d.newNotifyQueue(sink.Logger())
	if queue != nil {
		notifier = queue
	}

	reg := registry.New(controller, notifier, sink.Logger(),
		registry.WithAutoDenyUnknown(d.cfg.AutoDenyUnknownDevices),
		registry.WithNotifications(queue != nil),
	)

	server := api.NewServer(reg, d.cfg, sink.Logger(),
		api.WithStorageControl(controller),
		api.WithHostReporter(system.NewMonitor()),
		api.WithLogSource(sink),
	)

	cleanup := func() {
		if queue != nil {
			queue.Close()
		}
		sink.Close()
	}

	if err := server.Start(d.cfg.ListenAddr); err != nil {
		logger.Error().Err(err).Msg("Failed to start web server")
		cleanup()
		return err
	}

	source := d.source
	if source == nil {
		source = hotplug.New(sink.Logger())
	}
	if err := source.Start(reg.HandleHardwareEvent); err != nil {
		logger.Error().Err(err).Msg("Failed to start USB monitor")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = server.Shutdown(ctx)
		cancel()
		cleanup()
		return fmt.Errorf("failed to start USB monitor: %w", err)
	}

	if err := CreatePidFile(d.pidFile); err != nil {
		logger.Warn().Err(err).Msg("Could not create PID file")
	}

	d.source = source
	d.sink = sink
	d.logger = logger
	d.registry = reg
	d.queue = queue
	d.server = server
	d.running = true

	logger.Info().
		Str("listen_addr", server.Addr()).
		Bool("auto_deny_unknown", d.cfg.AutoDenyUnknownDevices).
		Bool("notifications", queue != nil).
		Msg("USB Monitor Service started")
	return nil
}

func (d *Daemon) newNotifyQueue(logger zerolog.Logger) *notify.Queue {
	var senders []notify.Sender
	if d.cfg.EmailNotificationsEnabled {
		senders = append(senders, notify.NewEmailSender(d.cfg.SMTP))
	}
	if d.cfg.DesktopNotificationsEnabled {
		senders = append(senders, notify.NewDesktopSender())
	}
	if len(senders) == 0 {
		return nil
	}
	return notify.NewQueue(senders, logger)
}

func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.logger.Info().Msg("USB Monitor Service stopping")

	var errs []error
	if err := d.source.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop USB monitor: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := d.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop web server: %w", err))
	}
	cancel()

	if d.queue != nil {
		d.queue.Close()
	}
	if err := RemovePidFile(d.pidFile); err != nil {
		d.logger.Warn().Err(err).Msg("Could not remove PID file")
	}

	d.logger.Info().Int("devices", d.registry.Count()).Msg("USB Monitor Service stopped")
	if err := d.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	d.running = false
	d.registry = nil
	d.server = nil
	d.queue = nil
	return errors.Join(errs...)
}

// Registry returns the live registry, or nil when stopped.
func (d *Daemon) Registry() *registry.Registry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry
}

// ListenAddr returns the bound control API address, or "" when stopped.
func (d *Daemon) ListenAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}
