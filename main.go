package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"i4.energy/across/sigfoxgw/modem"
	"i4.energy/across/sigfoxgw/simulator"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the Sigfox module")
	flag.Int("baud-rate", modem.DefaultBaudRate, "Baud rate for serial communication")
	flag.String("serial-driver", "bugst", "Serial library to use (bugst, tarm)")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("country", "SG", "ISO 3166-1 alpha-2 code of the deployment country")
	flag.String("emulator-device", "", "Send to the Sigfox emulator as this device ID")
	flag.Bool("simulate", false, "Use an in-process simulated module instead of the serial port")
	flag.String("http-token", "", "Bearer token required on HTTP requests")
	flag.String("mqtt-broker", "", "MQTT broker URL, empty disables MQTT")
	flag.String("mqtt-topic", "sigfox/send", "MQTT topic to receive message requests on")
	flag.Int("max-retries", 3, "Delivery attempts for queued messages")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	country, err := modem.ParseCountry(config.Country)
	if err != nil {
		logger.Error("Invalid country", "error", err)
		os.Exit(1)
	}

	hub := NewDiagHub(logger.With("component", "diagnostics"))

	builder := modem.NewConfigBuilder().
		WithDialer(newDialer(config)).
		WithLogger(logger.With("component", "modem")).
		WithEcho(hub).
		WithCountry(country)
	if config.EmulatorDevice != "" {
		builder = builder.WithEmulator(config.EmulatorDevice)
	}
	modemConfig, err := builder.Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	m, err := modem.New(modemConfig)
	if err != nil {
		logger.Error("Failed to create modem", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Begin(ctx); err != nil {
		logger.Error("Failed to bring up the Sigfox module", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting Sigfox Gateway", "modem", m)

	queue := NewQueue(m, 256, logger.With("component", "queue"))
	queue.MaxRetries = config.MaxRetries
	go queue.Run(ctx)

	startMQTT(ctx, config, queue, logger.With("component", "mqtt"))

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:      logger.With("component", "server"),
			Modem:       m,
			Queue:       queue,
			Diagnostics: hub,
			Token:       config.HTTPToken,
		},
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing modem")
	if err := m.Close(); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}
}

// newDialer returns the serial backend selected by the configuration.
func newDialer(config *Config) modem.Dialer {
	switch {
	case config.Simulate:
		return simulator.New(simulator.Config{})
	case config.SerialDriver == "tarm":
		return modem.TarmDialer{PortName: config.SerialPort, BaudRate: config.BaudRate}
	default:
		return modem.SerialDialer{PortName: config.SerialPort, BaudRate: config.BaudRate}
	}
}
