// Package simulator emulates a Wisol Sigfox module behind a serial line.
//
// A Device hands out a fresh in-memory port on every Dial, like a UART
// reopened per exchange, and answers the AT$ command set the way the module
// does. It backs the gateway's -simulate mode and the driver tests.
package simulator

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"i4.energy/across/sigfoxgw/at"
	"i4.energy/across/sigfoxgw/modem"
	"i4.energy/across/sigfoxgw/payload"
)

// Config holds the identity and readings reported by a Device.
type Config struct {
	ID  string
	PAC string
	// Temperature in tenths of a degree Celsius.
	Temperature int
	// Voltage in millivolts.
	Voltage int
	// Echo makes the device repeat every byte it receives, terminators
	// included.
	Echo bool
}

func (c *Config) setDefaults() {
	if c.ID == "" {
		c.ID = "002BEE7A"
	}
	if c.PAC == "" {
		c.PAC = "1A2B3C4D5E6F7A8B"
	}
	if c.Temperature == 0 {
		c.Temperature = 215
	}
	if c.Voltage == 0 {
		c.Voltage = 3300
	}
}

type script struct {
	prefix   string
	response string
}

// Device is a simulated Sigfox module. It is safe for concurrent use.
type Device struct {
	mu       sync.Mutex
	config   Config
	scripts  []script
	muted    []string
	commands []string
	messages []string
	dials    int
}

// New creates a Device answering with the given identity and readings.
func New(config Config) *Device {
	config.setDefaults()
	return &Device{config: config}
}

// Dial implements modem.Dialer.
func (d *Device) Dial(ctx context.Context) (modem.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()

	pr, pw := io.Pipe()
	p := &Port{
		device: d,
		pw:     pw,
		out:    make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go p.serve(pr)
	return p, nil
}

// Respond overrides the answer to every command starting with prefix. The
// response is sent verbatim, terminators included.
func (d *Device) Respond(prefix, response string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script{prefix: prefix, response: response})
}

// Mute silences the answer to every command starting with prefix.
func (d *Device) Mute(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = append(d.muted, prefix)
}

// Unmute removes every Mute and Respond override.
func (d *Device) Unmute() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = nil
	d.scripts = nil
}

// Commands returns the commands received so far, terminators removed.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Messages returns the hex payloads of the uplinks acknowledged so far.
func (d *Device) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

// Dials returns how many ports were opened.
func (d *Device) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// handle returns the answer to cmd and whether the device answers at all.
func (d *Device) handle(cmd string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cmd == "" {
		return "", false
	}
	d.commands = append(d.commands, cmd)

	for _, prefix := range d.muted {
		if strings.HasPrefix(cmd, prefix) {
			return "", false
		}
	}
	for _, s := range d.scripts {
		if strings.HasPrefix(cmd, s.prefix) {
			return s.response, true
		}
	}

	switch {
	case strings.HasPrefix(cmd, at.CmdSendMessage):
		hexPayload := strings.TrimPrefix(cmd, at.CmdSendMessage)
		if err := payload.Validate(hexPayload); err != nil {
			return at.ERROR + at.CR, true
		}
		d.messages = append(d.messages, hexPayload)
		return at.OK + at.CR, true
	case cmd == at.CmdGetID:
		return d.config.ID + at.CR, true
	case cmd == at.CmdGetPAC:
		return d.config.PAC + at.CR, true
	case cmd == at.CmdGetTemperature:
		return strconv.Itoa(d.config.Temperature) + at.CR, true
	case cmd == at.CmdGetVoltage:
		return strconv.Itoa(d.config.Voltage) + at.CR, true
	case cmd == "AT", cmd == at.CmdSleep, cmd == at.CmdWakeup:
		return at.OK + at.CR, true
	default:
		return at.ERROR + at.CR, true
	}
}

func (d *Device) echo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.Echo
}

// Port is one opened connection to a Device. Reads block until the device
// answers or the port is closed.
type Port struct {
	device  *Device
	pw      *io.PipeWriter
	out     chan []byte
	done    chan struct{}
	once    sync.Once
	pending []byte
}

func (p *Port) serve(r *io.PipeReader) {
	scanner := bufio.NewScanner(r)
	scanner.Split(at.Splitter)
	for scanner.Scan() {
		if resp, ok := p.device.handle(scanner.Text()); ok {
			p.emit([]byte(resp))
		}
	}
}

func (p *Port) emit(b []byte) {
	select {
	case p.out <- b:
	case <-p.done:
	}
}

func (p *Port) Write(b []byte) (int, error) {
	select {
	case <-p.done:
		return 0, io.ErrClosedPipe
	default:
	}
	if p.device.echo() {
		p.emit(append([]byte(nil), b...))
	}
	return p.pw.Write(b)
}

func (p *Port) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case data := <-p.out:
			p.pending = data
		case <-p.done:
			return 0, io.EOF
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *Port) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.pw.Close()
	})
	return nil
}
