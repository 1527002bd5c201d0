package console

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the original firmware's UART setting.
	DefaultBaudRate = 9600
	// DefaultPollInterval bounds how long Pending waits for a byte.
	DefaultPollInterval = 5 * time.Millisecond
)

type writeReq struct {
	b    byte
	done chan error
}

// SerialPort is a Port backed by a real serial device.
// Writes go through a single writer goroutine so a stuck transmitter can be
// abandoned by SendByte without losing byte order.
type SerialPort struct {
	port serial.Port
	tx   chan writeReq

	closeOnce sync.Once
	closed    chan struct{}
}

// OpenSerial opens name with 8 data bits, no parity and 1 stop bit.
func OpenSerial(name string, baudRate int, poll time.Duration) (*SerialPort, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(poll); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}

	s := &SerialPort{
		port:   port,
		tx:     make(chan writeReq),
		closed: make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

func (s *SerialPort) writeLoop() {
	buf := make([]byte, 1)
	for {
		select {
		case <-s.closed:
			return
		case req := <-s.tx:
			buf[0] = req.b
			_, err := s.port.Write(buf)
			req.done <- err
		}
	}
}

// SendByte hands b to the writer goroutine and waits for the write to finish.
func (s *SerialPort) SendByte(ctx context.Context, b byte) error {
	req := writeReq{b: b, done: make(chan error, 1)}

	select {
	case s.tx <- req:
	case <-s.closed:
		return fmt.Errorf("serial port closed")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reads at most one byte, waiting up to the poll interval.
func (s *SerialPort) Pending() (byte, bool, error) {
	buf := make([]byte, 1)
	n, err := s.port.Read(buf)
	if err != nil {
		return 0, false, fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// Close stops the writer goroutine and closes the device.
func (s *SerialPort) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.port.Close()
	})
	return err
}

// Ports returns the names of the serial devices present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
