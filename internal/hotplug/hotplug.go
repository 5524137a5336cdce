// Package hotplug turns OS device-change notifications into registry events.
package hotplug

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/logging"
	"github.com/gajzzs/usbwarden/internal/registry"
)

var (
	ErrUnsupported    = errors.New("hotplug notifications are not supported on this platform")
	ErrAlreadyStarted = errors.New("hotplug source already started")
)

// Handler receives every arrival and removal. Registry.HandleHardwareEvent
// satisfies it.
type Handler func(kind registry.EventKind, devicePath string)

// Source delivers device events to a handler on its own goroutine until
// stopped. Start failing is fatal for the daemon.
type Source interface {
	Start(h Handler) error
	Stop() error
}

// New returns the event source for the running OS.
func New(logger zerolog.Logger) Source {
	return newSource(logging.WithCategory(logger, logging.CategoryMonitor))
}
