package service

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
)

const (
	ServiceName        = "usbwarden"
	ServiceDisplayName = "USB Warden Storage Monitor"
	ServiceDescription = "Tracks USB storage devices and enforces administrator allow/deny decisions"
)

type ServiceManager struct {
	service service.Service
	daemon  *Daemon
}

type program struct {
	daemon *Daemon
}

func (p *program) Start(s service.Service) error {
	return p.daemon.Start()
}

func (p *program) Stop(s service.Service) error {
	return p.daemon.Stop()
}

// NewServiceManager registers the daemon with the host service manager. The
// installed unit runs "usbwarden run --config <configPath>". d is only
// started through Run.
func NewServiceManager(d *Daemon, configPath string) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	svcConfig := &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
		Executable:  execPath,
		Arguments:   []string{"run", "--config", configPath},
		Dependencies: []string{
			"After=network.target",
		},
		Option: service.KeyValue{
			"Restart":          "on-failure",
			"OnFailure":        "restart",
			"DelayedAutoStart": false,
		},
	}

	svc, err := service.New(&program{daemon: d}, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &ServiceManager{
		service: svc,
		daemon:  d,
	}, nil
}

func (sm *ServiceManager) Install() error {
	if err := sm.service.Install(); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}
	return nil
}

func (sm *ServiceManager) Uninstall() error {
	if err := sm.service.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}
	return nil
}

func (sm *ServiceManager) Start() error {
	return sm.service.Start()
}

func (sm *ServiceManager) Stop() error {
	return sm.service.Stop()
}

func (sm *ServiceManager) Restart() error {
	return sm.service.Restart()
}

func (sm *ServiceManager) Status() (string, error) {
	status, err := sm.service.Status()
	if err != nil {
		return "Unknown", err
	}
	return statusText(status), nil
}

// Run blocks until the service manager (or Ctrl+C when interactive) stops
// the daemon.
func (sm *ServiceManager) Run() error {
	return sm.service.Run()
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Running"
	case service.StatusStopped:
		return "Stopped"
	case service.StatusUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Status(%d)", int(status))
	}
}

// ServiceConfigPath returns where the platform keeps the service definition.
func ServiceConfigPath() string {
	switch service.Platform() {
	case "linux-systemd":
		return "/etc/systemd/system/" + ServiceName + ".service"
	case "windows-service":
		return `Registry: HKEY_LOCAL_MACHINE\SYSTEM\CurrentControlSet\Services\` + ServiceName
	default:
		return "Unknown platform"
	}
}
