package modem

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.bug.st/serial"
	"go.uber.org/mock/gomock"
)

func TestSerialDialer_Dial(t *testing.T) {
	tests := []struct {
		name     string
		dialer   SerialDialer
		ctx      func() context.Context
		expected string
	}{
		{
			name:     "Empty port name",
			dialer:   SerialDialer{},
			ctx:      context.Background,
			expected: "sigfox: serial port name is required",
		},
		{
			name:     "Nil context",
			dialer:   SerialDialer{PortName: "/dev/ttyUSB0"},
			ctx:      func() context.Context { return nil },
			expected: "sigfox: context is nil",
		},
		{
			name:   "Context canceled",
			dialer: SerialDialer{PortName: "/dev/nonexistent"},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			expected: context.Canceled.Error(),
		},
		{
			name:   "Explicit line mode",
			dialer: SerialDialer{
				PortName: "/dev/nonexistent",
				Mode: &serial.Mode{
					BaudRate: 9600,
					Parity:   serial.NoParity,
					DataBits: 8,
					StopBits: serial.OneStopBit,
				},
			},
			ctx: context.Background,
		},
		{
			name:   "Default 8N1 at the module baud rate",
			dialer: SerialDialer{PortName: "/dev/nonexistent"},
			ctx:    context.Background,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, err := tt.dialer.Dial(tt.ctx())

			if err == nil {
				t.Fatal("expected an error")
			}
			if transport != nil {
				t.Error("expected nil transport on error")
			}
			if tt.expected != "" && err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, err)
			}
			if tt.expected == "" && !strings.Contains(err.Error(), "/dev/nonexistent") {
				t.Errorf("expected the port name in the error, got %q", err)
			}
		})
	}
}

func TestTarmDialer_Dial(t *testing.T) {
	t.Run("Empty port name", func(t *testing.T) {
		transport, err := TarmDialer{}.Dial(context.Background())

		if err == nil || err.Error() != "sigfox: serial port name is required" {
			t.Errorf("unexpected error: %v", err)
		}
		if transport != nil {
			t.Error("expected nil transport for empty port name")
		}
	})

	t.Run("Nil context", func(t *testing.T) {
		transport, err := TarmDialer{PortName: "/dev/ttyUSB0"}.Dial(nil)

		if err == nil || err.Error() != "sigfox: context is nil" {
			t.Errorf("unexpected error: %v", err)
		}
		if transport != nil {
			t.Error("expected nil transport for nil context")
		}
	})

	t.Run("Context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		transport, err := TarmDialer{PortName: "/dev/nonexistent"}.Dial(ctx)

		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
		if transport != nil {
			t.Error("expected nil transport for canceled context")
		}
	})

	t.Run("Non-existent port", func(t *testing.T) {
		transport, err := TarmDialer{PortName: "/dev/nonexistent", BaudRate: 9600}.Dial(context.Background())

		if err == nil {
			t.Error("expected error for non-existent port")
		}
		if transport != nil {
			t.Error("expected nil transport for non-existent port")
		}
	})
}

// Test the interface compliance
func TestTransportInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransport := NewMockTransport(ctrl)

	// Test that mockTransport implements Transport interface
	var _ Transport = mockTransport

	// Test basic operations
	data := []byte("test")
	mockTransport.EXPECT().Write(data).Return(len(data), nil)
	mockTransport.EXPECT().Read(gomock.Any()).Return(4, nil)
	mockTransport.EXPECT().Close().Return(nil)

	n, err := mockTransport.Write(data)
	if err != nil {
		t.Errorf("unexpected write error: %v", err)
	}
	if n != len(data) {
		t.Errorf("expected %d bytes written, got %d", len(data), n)
	}

	buf := make([]byte, 10)
	n, err = mockTransport.Read(buf)
	if err != nil {
		t.Errorf("unexpected read error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 bytes read, got %d", n)
	}

	err = mockTransport.Close()
	if err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestDialerInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDialer := NewMockDialer(ctrl)
	mockTransport := NewMockTransport(ctrl)

	// Test that mockDialer implements Dialer interface
	var _ Dialer = mockDialer

	ctx := context.Background()
	mockDialer.EXPECT().Dial(ctx).Return(mockTransport, nil)

	transport, err := mockDialer.Dial(ctx)
	if err != nil {
		t.Errorf("unexpected dial error: %v", err)
	}
	if transport != mockTransport {
		t.Error("expected mock transport to be returned")
	}
}

func TestDialerInterface_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDialer := NewMockDialer(ctrl)
	dialError := errors.New("dial failed")

	ctx := context.Background()
	mockDialer.EXPECT().Dial(ctx).Return(nil, dialError)

	transport, err := mockDialer.Dial(ctx)
	if err != dialError {
		t.Errorf("expected dial error, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport on error")
	}
}
