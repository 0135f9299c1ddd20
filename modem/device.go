package modem

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"i4.energy/across/sigfoxgw/at"
)

// Country is an ISO 3166-1 alpha-2 code. It selects the Sigfox radio
// configuration zone the module is expected to operate in.
type Country string

const (
	CountryAU Country = "AU"
	CountryBR Country = "BR"
	CountryFR Country = "FR"
	CountryJP Country = "JP"
	CountryNZ Country = "NZ"
	CountryOM Country = "OM"
	CountrySA Country = "SA"
	CountrySG Country = "SG"
	CountryTW Country = "TW"
	CountryUS Country = "US"
)

// ParseCountry normalizes a two letter country code.
func ParseCountry(s string) (Country, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'A' || s[0] > 'Z' || s[1] < 'A' || s[1] > 'Z' {
		return "", fmt.Errorf("invalid country code %q", s)
	}
	return Country(s), nil
}

// Zone is a Sigfox Radio Configuration Zone.
type Zone int

const (
	RCZ1 Zone = 1 // Europe, Oman, South Africa
	RCZ2 Zone = 2 // USA, Mexico, Brazil
	RCZ3 Zone = 3 // Japan
	RCZ4 Zone = 4 // Latin America, Asia Pacific
)

func (z Zone) String() string {
	return "RCZ" + strconv.Itoa(int(z))
}

// ZoneFor returns the zone a Wisol module is set up for in country c. The
// US runs on RCZ2 and France on RCZ1; every other market is served by the
// RCZ4 modules.
func ZoneFor(c Country) Zone {
	switch c {
	case CountryUS:
		return RCZ2
	case CountryFR:
		return RCZ1
	default:
		return RCZ4
	}
}

// DeviceState is a snapshot of what the Modem knows about the module.
type DeviceState struct {
	LastSend time.Time
	Emulator bool
	ID       string
	Country  Country
	Zone     Zone
}

// State returns the current device state.
func (m *Modem) State() DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return DeviceState{
		LastSend: m.lastSend,
		Emulator: m.config.Emulator,
		ID:       m.id,
		Country:  m.config.Country,
		Zone:     ZoneFor(m.config.Country),
	}
}

// Begin waits for the module to power up and reads its identity. The
// sequence is attempted up to Config.MaxRetries times, each attempt
// preceded by Config.BeginDelay. The duty cycle starts afresh.
func (m *Modem) Begin(ctx context.Context) error {
	m.mu.Lock()
	m.lastSend = time.Time{}
	m.mu.Unlock()

	var err error
	for attempt := 1; attempt <= m.config.MaxRetries; attempt++ {
		if err = sleep(ctx, m.config.BeginDelay); err != nil {
			return fmt.Errorf("bring-up cancelled: %w", err)
		}
		if err = m.begin(ctx); err == nil {
			return nil
		}
		m.logger.Warn("bring-up attempt failed", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("bring-up failed after %d attempts: %w", m.config.MaxRetries, err)
}

func (m *Modem) begin(ctx context.Context) error {
	if m.config.Emulator {
		m.logger.Info("emulation mode enabled", "device", m.config.Device)
	}

	id, pac, err := m.GetID(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("module identified", "id", id, "pac", pac)

	country := m.config.Country
	m.logger.Info("radio configuration zone", "country", country, "zone", ZoneFor(country))
	return nil
}

// GetID reads the device ID and the PAC used to register the device. In
// emulator mode the configured device ID is returned with an empty PAC.
func (m *Modem) GetID(ctx context.Context) (id, pac string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.Emulator {
		return m.config.Device, "", nil
	}

	id, err = m.sendCommand(ctx, at.CmdGetID, 1)
	if err != nil {
		return "", "", fmt.Errorf("get ID: %w", err)
	}
	m.id = id

	pac, err = m.sendCommand(ctx, at.CmdGetPAC, 1)
	if err != nil {
		return id, "", fmt.Errorf("get PAC: %w", err)
	}
	return id, pac, nil
}

// GetTemperature returns the module temperature in degrees Celsius.
func (m *Modem) GetTemperature(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.Emulator {
		return 36, nil
	}

	resp, err := m.sendCommand(ctx, at.CmdGetTemperature, 1)
	if err != nil {
		return 0, fmt.Errorf("get temperature: %w", err)
	}
	tenths, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, fmt.Errorf("get temperature: %w: %q", ErrUnexpectedResponse, resp)
	}
	return float64(tenths) / 10, nil
}

// GetVoltage returns the supply voltage in volts.
func (m *Modem) GetVoltage(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.Emulator {
		return 12.3, nil
	}

	resp, err := m.sendCommand(ctx, at.CmdGetVoltage, 1)
	if err != nil {
		return 0, fmt.Errorf("get voltage: %w", err)
	}
	millivolts, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("get voltage: %w: %q", ErrUnexpectedResponse, resp)
	}
	return millivolts / 1000, nil
}

// GetEmulator reports whether messages go to the emulator network.
func (m *Modem) GetEmulator() bool {
	return m.config.Emulator
}

// DisableEmulator makes sure messages go to the Sigfox network. The Wisol
// module always uses its unique key, so only a Modem configured for the
// emulator cannot comply.
func (m *Modem) DisableEmulator() error {
	if m.config.Emulator {
		return m.unsupported("disable emulator")
	}
	return nil
}

// EnableEmulator would switch the module to the public emulator key.
func (m *Modem) EnableEmulator() error { return m.unsupported("enable emulator") }

// Zone returns the radio configuration zone of the configured country.
func (m *Modem) Zone() Zone {
	return ZoneFor(m.config.Country)
}

// SetZone would reconfigure the radio zone. Wisol modules are built for a
// single zone.
func (m *Modem) SetZone(Zone) error { return m.unsupported("set zone") }

func (m *Modem) GetHardware(context.Context) (string, error) {
	return "", m.unsupported("get hardware")
}

func (m *Modem) GetFirmware(context.Context) (string, error) {
	return "", m.unsupported("get firmware")
}

func (m *Modem) GetParameter(_ context.Context, address uint8) (string, error) {
	return "", m.unsupported(fmt.Sprintf("get parameter 0x%02x", address))
}

func (m *Modem) GetPower(context.Context) (int, error) {
	return 0, m.unsupported("get power")
}

func (m *Modem) SetPower(_ context.Context, power int) error {
	return m.unsupported(fmt.Sprintf("set power %d", power))
}

func (m *Modem) WriteSettings(context.Context) error { return m.unsupported("write settings") }

func (m *Modem) Reboot(context.Context) error { return m.unsupported("reboot") }

// Sleep would enter the low power mode (AT$P=1).
func (m *Modem) Sleep(context.Context) error { return m.unsupported("sleep") }

// Wakeup would leave the low power mode (AT$P=0).
func (m *Modem) Wakeup(context.Context) error { return m.unsupported("wakeup") }

// Receive would return a downlink message.
func (m *Modem) Receive(context.Context) (string, error) {
	return "", m.unsupported("receive")
}

func (m *Modem) unsupported(op string) error {
	m.logger.Warn("operation not supported", "op", op)
	return fmt.Errorf("%s: %w", op, ErrUnsupported)
}
