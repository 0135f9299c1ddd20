package modem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"i4.energy/across/sigfoxgw/at"
	"i4.energy/across/sigfoxgw/payload"
)

// Modem drives a Wisol WSSFM10R Sigfox module through its AT command set.
//
// The serial channel is opened for each exchange and closed right after, so
// a Modem holds no connection between calls. Exchanges are serialized: a
// Modem is safe for concurrent use but never has two commands in flight.
type Modem struct {
	// config contains the modem configuration settings
	config Config
	logger *slog.Logger
	// echo receives the frame trace
	echo io.Writer
	// duty gates uplink messages
	duty DutyCycle
	now  func() time.Time

	// mu serializes exchanges and guards the device state below
	mu       sync.Mutex
	closed   bool
	lastSend time.Time
	id       string
}

// New creates a new Modem instance with the given configuration. No I/O is
// performed; call Begin to bring the module up.
func New(config Config) (*Modem, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	m := &Modem{
		config: config,
		logger: config.Logger,
		echo:   config.Echo,
		duty: DutyCycle{
			Floor:       config.MinSendInterval,
			Recommended: config.RecommendedSendInterval,
			Logger:      config.Logger,
		},
		now: time.Now,
	}
	if config.Emulator {
		m.id = config.Device
	}
	return m, nil
}

// Close marks the modem as shut down. Pending exchanges complete; every
// later call fails with ErrAlreadyClosed.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true
	return nil
}

// SendCommand sends an AT command and returns the response text once
// expected terminators have been received. The terminator is appended to
// cmd when missing. Commands do not count against the duty cycle.
//
// On failure the partial response, if any, is returned with the error.
func (m *Modem) SendCommand(ctx context.Context, cmd string, expected uint8) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCommand(ctx, cmd, expected)
}

func (m *Modem) sendCommand(ctx context.Context, cmd string, expected uint8) (string, error) {
	if !strings.HasSuffix(cmd, at.CR) {
		cmd += at.CR
	}
	out, err := m.exchange(ctx, []byte(cmd), m.config.CommandTimeout, expected)
	if err != nil {
		return out.Response, fmt.Errorf("%s: %w", strings.TrimSuffix(cmd, at.CR), err)
	}
	return out.Response, nil
}

// SendMessage sends an uplink carrying hexPayload, at most 24 hex digits
// (12 bytes). The message is refused with ErrTooSoon when the previous one
// went out less than the minimum send interval ago. The send time is only
// recorded when the modem acknowledges the message.
func (m *Modem) SendMessage(ctx context.Context, hexPayload string) error {
	if err := payload.Validate(hexPayload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}

	m.logger.Info("sending message", "device", m.id, "payload", hexPayload)
	now := m.now()
	if !m.duty.Ready(now, m.lastSend) {
		return fmt.Errorf("%w: last message %s ago", ErrTooSoon, now.Sub(m.lastSend).Round(time.Millisecond))
	}

	cmd := at.CmdSendMessage + hexPayload + at.CR
	out, err := m.exchange(ctx, []byte(cmd), m.config.CommandTimeout, 1)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	m.lastSend = m.now()
	m.logger.Info("message sent", "payload", hexPayload, "response", out.Response)
	return nil
}

// SendString encodes text, at most 12 characters, and sends it with
// SendMessage.
func (m *Modem) SendString(ctx context.Context, text string) error {
	m.logger.Debug("sending text", "text", text)
	hexPayload, err := payload.EncodeText(text)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return m.SendMessage(ctx, hexPayload)
}

// LastSend returns the time of the last acknowledged message, or the zero
// time when none was sent since Begin.
func (m *Modem) LastSend() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSend
}

// LogValue implements slog.LogValuer.
func (m *Modem) LogValue() slog.Value {
	s := m.State()
	return slog.GroupValue(
		slog.String("id", s.ID),
		slog.String("country", string(s.Country)),
		slog.String("zone", s.Zone.String()),
		slog.Bool("emulator", s.Emulator),
	)
}
