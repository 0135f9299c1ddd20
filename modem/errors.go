package modem

import "errors"

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// open the serial channel for each exchange, unless the Modem runs in
	// emulator mode.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when the Dialer hands back no Transport.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when an operation is attempted on a Modem
	// that has been closed, including a second call to Close.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrNoResponse is returned when the modem stays silent until the
	// exchange timeout elapses.
	ErrNoResponse = errors.New("no response")

	// ErrUnexpectedResponse is returned when the modem answered but the
	// number of terminators seen before the timeout is below the expected
	// count, or the answer cannot be interpreted.
	//
	// The partial response is still available in the Outcome.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrTooSoon is returned when a message is sent before the minimum
	// interval since the previous message has elapsed. The serial channel is
	// not touched.
	//
	// Callers may retry later; the radio duty cycle is a regulatory limit
	// and repeated violations can get the device blocked by the operator.
	ErrTooSoon = errors.New("duty cycle: too soon since last message")

	// ErrUnsupported is returned by operations this modem family does not
	// implement. It is never reported as success.
	ErrUnsupported = errors.New("operation not supported")
)
