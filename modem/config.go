package modem

import (
	"io"
	"log/slog"
	"time"
)

func (c *Config) validate() error {
	if c.Dialer == nil && !c.Emulator {
		return ErrNoDialer
	}
	return nil
}

type Config struct {
	Dialer Dialer
	// Logger receives structured driver logs. Discarded when nil.
	Logger *slog.Logger
	// Echo receives the human readable trace of every frame sent and
	// received. Discarded when nil.
	Echo io.Writer

	// Emulator routes messages to the Sigfox emulator network: frames are
	// not sent to the module and Device stands in for the module ID.
	Emulator bool
	Device   string
	Country  Country

	CommandTimeout time.Duration
	SettleDelay    time.Duration
	Pacing         time.Duration

	MinSendInterval         time.Duration
	RecommendedSendInterval time.Duration

	MaxRetries int
	BeginDelay time.Duration
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Echo == nil {
		c.Echo = io.Discard
	}
	if c.Country == "" {
		c.Country = CountrySG
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 60 * time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 200 * time.Millisecond
	}
	if c.Pacing == 0 {
		c.Pacing = 10 * time.Millisecond
	}
	if c.MinSendInterval == 0 {
		c.MinSendInterval = 2 * time.Second
	}
	if c.RecommendedSendInterval == 0 {
		c.RecommendedSendInterval = 10 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.BeginDelay == 0 {
		c.BeginDelay = 2 * time.Second
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithEcho(w io.Writer) *ConfigBuilder {
	b.config.Echo = w
	return b
}

// WithEmulator enables emulator mode with the given public device ID.
func (b *ConfigBuilder) WithEmulator(device string) *ConfigBuilder {
	b.config.Emulator = true
	b.config.Device = device
	return b
}

func (b *ConfigBuilder) WithCountry(c Country) *ConfigBuilder {
	b.config.Country = c
	return b
}

func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.CommandTimeout = d
	return b
}

func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.config.SettleDelay = d
	return b
}

func (b *ConfigBuilder) WithPacing(d time.Duration) *ConfigBuilder {
	b.config.Pacing = d
	return b
}

func (b *ConfigBuilder) WithMinSendInterval(d time.Duration) *ConfigBuilder {
	b.config.MinSendInterval = d
	return b
}

func (b *ConfigBuilder) WithRecommendedSendInterval(d time.Duration) *ConfigBuilder {
	b.config.RecommendedSendInterval = d
	return b
}

func (b *ConfigBuilder) WithMaxRetries(n int) *ConfigBuilder {
	b.config.MaxRetries = n
	return b
}

func (b *ConfigBuilder) WithBeginDelay(d time.Duration) *ConfigBuilder {
	b.config.BeginDelay = d
	return b
}

// Build applies defaults and validates the configuration.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	config.setDefaults()
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
