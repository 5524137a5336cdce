// Package logging provides the usbwarden log sink: zerolog JSON lines
// written to a size-rotated file and mirrored to the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// Categories used across the daemon.
const (
	CategorySystem     = "System"
	CategoryMonitor    = "USBMonitor"
	CategoryEvent      = "USBEvent"
	CategoryController = "DeviceController"
	CategoryWeb        = "WebServer"
	CategoryNotify     = "Notifier"
)

type Config struct {
	File         string `json:"file"`
	MaxSizeBytes int64  `json:"max_size_bytes"`
	MaxFiles     int    `json:"max_files"`
	Level        string `json:"level"`
	Console      bool   `json:"console"`
}

// Sink owns the process logger and its rotating file.
type Sink struct {
	logger zerolog.Logger
	file   *RotatingFile
	async  io.Closer
}

// New builds the sink. File writes go through a diode so a slow disk or a
// rotation never blocks callers; lines are dropped under sustained overload.
func New(cfg Config) (*Sink, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	s := &Sink{}
	var writers []io.Writer

	if cfg.File != "" {
		f, err := OpenRotatingFile(cfg.File, cfg.MaxSizeBytes, cfg.MaxFiles)
		if err != nil {
			return nil, err
		}
		dw := diode.NewWriter(f, 1000, 10*time.Millisecond, func(missed int) {
			fmt.Fprintf(os.Stderr, "logging: dropped %d messages\n", missed)
		})
		s.file = f
		s.async = dw
		writers = append(writers, dw)
	}

	if cfg.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05.000"})
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	s.logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return s, nil
}

// Logger returns the root logger.
func (s *Sink) Logger() zerolog.Logger {
	return s.logger
}

// Category returns a logger tagged with the given category.
func (s *Sink) Category(name string) zerolog.Logger {
	return WithCategory(s.logger, name)
}

// Recent returns the last count lines of the current log file.
func (s *Sink) Recent(count int) ([]string, error) {
	if s.file == nil {
		return []string{}, nil
	}
	return s.file.Tail(count)
}

func (s *Sink) Close() error {
	if s.async != nil {
		if err := s.async.Close(); err != nil {
			return err
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// WithCategory tags l with a category field.
func WithCategory(l zerolog.Logger, category string) zerolog.Logger {
	return l.With().Str("category", category).Logger()
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
