package adc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/itohio/micscan/internal/log"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the UART rate the firmware is flashed with.
	DefaultBaudRate = 115200
	// MaxReading is the largest value a 12-bit converter reports.
	MaxReading = 4095
)

var _ Converter = (*Serial)(nil)

// port is the part of serial.Port the converter uses.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a Converter backed by the micscan firmware over a serial link.
// The firmware streams one decimal reading per line while conversion runs.
type Serial struct {
	port     string
	baudRate int

	conn      port
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	running   bool

	// Armed transfer
	dst  []uint16
	pos  int
	xfer *Transfer

	dropped uint64 // Readings received with no transfer armed
}

// NewSerial creates a serial converter for the given port and baud rate.
func NewSerial(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading readings.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	conn, err := serial.Open(s.port, &serial.Mode{
		BaudRate: s.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.attach(conn)
	return nil
}

// attach starts the reader on an already opened port. Caller holds mu.
func (s *Serial) attach(conn port) {
	s.conn = conn
	s.connected = true
	go s.readLines()
}

// Close stops conversion and closes the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if s.xfer != nil {
		s.xfer.Complete(ErrNotConnected)
		s.disarm()
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Warn("error closing serial port", "port", s.port, "err", err)
		}
		s.conn = nil
	}

	s.connected = false
	s.running = false

	return nil
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Dropped returns how many readings arrived while no transfer was armed.
func (s *Serial) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Drain discards buffered input and cancels a transfer left over from a failed capture.
func (s *Serial) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}

	if s.xfer != nil {
		s.xfer.Complete(context.Canceled)
		s.disarm()
	}

	if err := s.conn.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	return nil
}

// Run sends the run ("1") or stop ("0") command to the firmware.
func (s *Serial) Run(enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}

	cmd := "0\n"
	if enable {
		cmd = "1\n"
	}
	if _, err := s.conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("failed to send run command: %w", err)
	}

	s.running = enable
	return nil
}

// Arm starts filling dst with the next len(dst) readings.
func (s *Serial) Arm(dst []uint16) (*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.xfer != nil {
		return nil, ErrTransferArmed
	}

	xfer := NewTransfer()
	if len(dst) == 0 {
		xfer.Complete(nil)
		return xfer, nil
	}

	s.dst = dst
	s.pos = 0
	s.xfer = xfer
	return xfer, nil
}

// disarm clears the armed transfer. Caller holds mu.
func (s *Serial) disarm() {
	s.dst = nil
	s.pos = 0
	s.xfer = nil
}

// store delivers one reading to the armed transfer.
func (s *Serial) store(v uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.xfer == nil || !s.running {
		s.dropped++
		return
	}

	s.dst[s.pos] = v
	s.pos++
	if s.pos == len(s.dst) {
		s.xfer.Complete(nil)
		s.disarm()
	}
}

// readLines reads readings from the serial port until the port closes.
func (s *Serial) readLines() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in serial reader", "panic", r)
		}
	}()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := parseReading(line)
		if err != nil {
			log.Debug("skipping serial line", "line", line, "err", err)
			continue
		}
		s.store(v)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		select {
		case <-s.ctx.Done():
		default:
			log.Error("error reading from serial port", "port", s.port, "err", err)
		}
	}

	// Fail a pending transfer so the sampler does not wait on a dead link
	s.mu.Lock()
	if s.xfer != nil {
		s.xfer.Complete(fmt.Errorf("serial link closed: %w", ErrNotConnected))
		s.disarm()
	}
	s.mu.Unlock()
}

// parseReading parses one firmware line into a 12-bit reading.
// Format: decimal integer 0..4095
func parseReading(line string) (uint16, error) {
	v, err := strconv.ParseUint(line, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid reading: %w", err)
	}
	if v > MaxReading {
		return 0, fmt.Errorf("reading out of range: %d (max %d)", v, MaxReading)
	}
	return uint16(v), nil
}
