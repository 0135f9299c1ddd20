package modem

import (
	"context"
	"io"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an open, bidirectional byte stream to a Sigfox modem.
//
// A Transport is assumed to be already configured (baud rate, framing) and
// ready for use. It provides the low-level I/O primitives required to send
// AT commands and receive responses. Typical implementations include serial
// ports and the in-memory simulator used for testing.
//
// Reads must block until data is available or the Transport is closed;
// Close must unblock a pending Read.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a Sigfox modem.
//
// The Modem dials a fresh Transport for every exchange and closes it
// afterwards, so the channel is never held between commands.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It may
	// perform blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}
