package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the bit rate of the Wisol WSSFM10R UART.
	DefaultBaudRate = 9600

	tarmReadInterval = 100 * time.Millisecond
)

var (
	errNilContext   = errors.New("sigfox: context is nil")
	errNoSerialPort = errors.New("sigfox: serial port name is required")
)

// SerialDialer opens the modem UART with go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil. Defaults to DefaultBaudRate.
	BaudRate int
	// Mode overrides the whole line configuration when set.
	Mode *serial.Mode
}

// Dial implements Dialer.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errNilContext
	}
	if d.PortName == "" {
		return nil, errNoSerialPort
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	return port, nil
}

// TarmDialer opens the modem UART with github.com/tarm/serial. It is meant
// for hosts where go.bug.st/serial cannot enumerate the port, such as some
// USB-serial bridges on older kernels.
type TarmDialer struct {
	PortName string
	BaudRate int
}

// Dial implements Dialer.
func (d TarmDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errNilContext
	}
	if d.PortName == "" {
		return nil, errNoSerialPort
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baud := d.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        d.PortName,
		Baud:        baud,
		ReadTimeout: tarmReadInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	return &tarmPort{port: port}, nil
}

// tarmPort turns the timed reads of tarm/serial into blocking reads: an idle
// line reports (0, io.EOF) every read interval until the port is closed.
type tarmPort struct {
	port   *tarm.Port
	closed atomic.Bool
}

func (p *tarmPort) Read(b []byte) (int, error) {
	for {
		n, err := p.port.Read(b)
		if n == 0 && errors.Is(err, io.EOF) && !p.closed.Load() {
			continue
		}
		return n, err
	}
}

func (p *tarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *tarmPort) Close() error {
	p.closed.Store(true)
	return p.port.Close()
}

func (p *tarmPort) ResetInputBuffer() error {
	return p.port.Flush()
}
