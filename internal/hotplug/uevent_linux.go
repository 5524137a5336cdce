//go:build linux

package hotplug

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"

	"github.com/gajzzs/usbwarden/internal/registry"
)

const (
	ueventKernelGroup = 1
	ueventBufSize     = 64 * 1024
	pollInterval      = time.Second
)

// ueventSource listens on the kernel uevent multicast group.
type ueventSource struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sock *nl.NetlinkSocket
	stop chan struct{}
	done chan struct{}
}

func newSource(logger zerolog.Logger) Source {
	return &ueventSource{logger: logger}
}

func (s *ueventSource) Start(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock != nil {
		return ErrAlreadyStarted
	}

	sock, err := nl.Subscribe(unix.NETLINK_KOBJECT_UEVENT, ueventKernelGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to kernel uevents: %w", err)
	}

	// A receive timeout lets the reader notice Stop.
	tv := unix.NsecToTimeval(pollInterval.Nanoseconds())
	if err := unix.SetsockoptTimeval(int(sock.GetFd()), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		sock.Close()
		return fmt.Errorf("failed to set uevent socket timeout: %w", err)
	}

	s.sock = sock
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.read(sock, h, s.stop, s.done)

	s.logger.Info().Msg("USB monitor started")
	return nil
}

func (s *ueventSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.sock.Close()
	s.sock = nil

	s.logger.Info().Msg("USB monitor stopped")
	return nil
}

func (s *ueventSource) read(sock *nl.NetlinkSocket, h Handler, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, ueventBufSize)
	fd := int(sock.GetFd())

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			s.logger.Error().Err(err).Msg("Failed to read kernel uevent")
			time.Sleep(pollInterval)
			continue
		}

		s.dispatch(buf[:n], h)
	}
}

func (s *ueventSource) dispatch(msg []byte, h Handler) {
	_, err := routeUevent(msg, func(kind registry.EventKind, path string) {
		s.logger.Debug().Stringer("kind", kind).Str("path", path).Msg("USB event")
		h(kind, path)
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("Skipping uevent")
	}
}
