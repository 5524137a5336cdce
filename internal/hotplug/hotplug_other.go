//go:build !linux && !windows

package hotplug

import (
	"github.com/rs/zerolog"
)

type unsupportedSource struct{}

func newSource(zerolog.Logger) Source {
	return unsupportedSource{}
}

func (unsupportedSource) Start(Handler) error { return ErrUnsupported }
func (unsupportedSource) Stop() error         { return nil }
