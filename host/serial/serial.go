// Package serial opens the tuning link to external tools.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is a serial link. Tests substitute in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush discards buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	Baud int

	// ReadTimeout bounds each read (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultConfig returns the default configuration for a device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial device is required")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards unread input and unsent output
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// Device returns the device path the port was opened with
func (p *NativePort) Device() string {
	return p.cfg.Device
}

type session struct {
	ctx  context.Context
	port Port
}

// Session adapts a port with a read timeout into a stream that only ends when
// ctx is done: timed-out reads (no data, or io.EOF) are retried.
func Session(ctx context.Context, port Port) io.ReadWriter {
	return &session{ctx: ctx, port: port}
}

func (s *session) Read(b []byte) (int, error) {
	for {
		n, err := s.port.Read(b)
		if n > 0 || (err != nil && !errors.Is(err, io.EOF)) {
			return n, err
		}
		if err := s.ctx.Err(); err != nil {
			return 0, err
		}
	}
}

func (s *session) Write(b []byte) (int, error) {
	return s.port.Write(b)
}
