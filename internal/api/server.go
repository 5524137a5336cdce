//go:generate mockgen -destination=mock_api.go -package=api github.com/gajzzs/usbwarden/internal/api StorageControl,HostReporter

// Package api is the administrative HTTP control surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/logging"
	"github.com/gajzzs/usbwarden/internal/registry"
	"github.com/gajzzs/usbwarden/internal/system"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// DeviceStore is the registry as seen by the control surface.
type DeviceStore interface {
	List() []registry.DeviceRecord
	Get(deviceID string) registry.DeviceRecord
	Allow(deviceID string) bool
	Deny(deviceID string) bool
	Count() int
	Denied() []registry.DeviceRecord
}

// StorageControl exposes the global mass-storage policy and hardware listing.
type StorageControl interface {
	EnableUSBStorage() bool
	DisableUSBStorage() bool
	IsUSBStorageEnabled() bool
	AllUSBDevices() []string
}

type HostReporter interface {
	HostInfo() system.HostInfo
	RemovableVolumes() ([]system.Volume, error)
}

type LogSource interface {
	Recent(count int) ([]string, error)
}

type Authenticator interface {
	CheckAdmin(username, password string) bool
}

type Server struct {
	devices DeviceStore
	auth    Authenticator
	storage StorageControl
	host    HostReporter
	logs    LogSource

	router *mux.Router
	logger zerolog.Logger

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
}

// NewServer builds the router. Routes whose collaborator was not supplied
// answer 503.
func NewServer(devices DeviceStore, auth Authenticator, logger zerolog.Logger, options ...func(*Server)) *Server {
	s := &Server{
		devices: devices,
		auth:    auth,
		router:  mux.NewRouter(),
		logger:  logging.WithCategory(logger, logging.CategoryWeb),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

func WithStorageControl(c StorageControl) func(*Server) {
	return func(s *Server) {
		s.storage = c
	}
}

func WithHostReporter(h HostReporter) func(*Server) {
	return func(s *Server) {
		s.host = h
	}
}

func WithLogSource(l LogSource) func(*Server) {
	return func(s *Server) {
		s.logs = l
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogger, corsMiddleware, s.basicAuth)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	s.router.HandleFunc("/api/devices", s.handleListDevices).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/devices/{id}", s.handleGetDevice).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/device/allow", s.handleAllow).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/device/deny", s.handleDeny).Methods(http.MethodPost, http.MethodOptions)

	s.router.HandleFunc("/api/storage", s.handleStorageStatus).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/storage/enable", s.handleStorageEnable).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/storage/disable", s.handleStorageDisable).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/hardware", s.handleHardware).Methods(http.MethodGet, http.MethodOptions)

	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet, http.MethodOptions)
}

// ServeHTTP lets tests drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start binds addr and serves in the background. Bind errors are returned.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Web server listening")
	return nil
}

// Addr returns the bound address while the server is running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.addr = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
