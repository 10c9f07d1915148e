package printers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"

	"go.bug.st/serial"
)

// DefaultBaudRate applies when the printer address has no "@baud" suffix.
const DefaultBaudRate = 9600

// SerialPort is the part of an open serial port the transport writes to.
type SerialPort interface {
	Write(p []byte) (int, error)
	Drain() error
	Close() error
}

// SerialOpener opens a device with the given line settings.
type SerialOpener func(device string, mode *serial.Mode) (SerialPort, error)

func openSerialPort(device string, mode *serial.Mode) (SerialPort, error) {
	return serial.Open(device, mode)
}

// SerialTransport writes ESC/POS to a printer attached over USB or RS-232.
// The address is the device path with an optional baud rate, for example
// "/dev/ttyUSB0" or "/dev/ttyUSB0@19200". Lines are 8N1.
type SerialTransport struct {
	open SerialOpener
}

type SerialOption func(*SerialTransport)

// WithSerialOpener replaces the device opener.
func WithSerialOpener(open SerialOpener) SerialOption {
	return func(t *SerialTransport) { t.open = open }
}

func NewSerialTransport(opts ...SerialOption) *SerialTransport {
	t := &SerialTransport{open: openSerialPort}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SerialTransport) Kind() printing.TransportKind { return printing.DirectSerial }

// Send opens the port, writes the job and waits for it to drain. When ctx
// ends first the port is closed, which unblocks a pending write, and the
// send fails with the context error.
func (t *SerialTransport) Send(ctx context.Context, printer printing.PrinterConfig, ticket printing.Ticket) (ports.JobID, error) {
	if err := ctx.Err(); err != nil {
		return "", transportError(printer, err)
	}
	device, mode, err := parseSerialAddress(printer.Address())
	if err != nil {
		return "", transportError(printer, err)
	}

	job := &serialJob{}
	done := make(chan error, 1)
	payload := EncodeESCPOS(printer, ticket)
	go func() { done <- job.run(t.open, device, mode, payload) }()

	select {
	case err := <-done:
		if err != nil {
			return "", transportError(printer, err)
		}
		return newJobID("serial"), nil
	case <-ctx.Done():
		job.abort()
		return "", transportError(printer, fmt.Errorf("print to %s: %w", device, ctx.Err()))
	}
}

func parseSerialAddress(address string) (string, *serial.Mode, error) {
	device, baud := address, DefaultBaudRate
	if i := strings.LastIndex(address, "@"); i >= 0 {
		rate, err := strconv.Atoi(address[i+1:])
		if err != nil || rate <= 0 {
			return "", nil, fmt.Errorf("invalid baud rate in serial address %q", address)
		}
		device, baud = address[:i], rate
	}
	return device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}, nil
}

// serialJob owns the port of one send so an abandoned send can close it.
type serialJob struct {
	mu      sync.Mutex
	port    SerialPort
	aborted bool
}

func (j *serialJob) run(open SerialOpener, device string, mode *serial.Mode, payload []byte) error {
	port, err := open(device, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}
	if !j.attach(port) {
		_ = port.Close()
		return context.Canceled
	}
	defer j.release()

	if _, err := port.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", device, err)
	}
	if err := port.Drain(); err != nil {
		return fmt.Errorf("drain %s: %w", device, err)
	}
	return nil
}

func (j *serialJob) attach(port SerialPort) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.aborted {
		return false
	}
	j.port = port
	return true
}

func (j *serialJob) abort() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.aborted = true
	j.closeLocked()
}

func (j *serialJob) release() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closeLocked()
}

func (j *serialJob) closeLocked() {
	if j.port != nil {
		_ = j.port.Close()
		j.port = nil
	}
}
