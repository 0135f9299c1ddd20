package modem

import (
	"context"
	"fmt"
	"io"
	"time"

	"i4.energy/across/sigfoxgw/at"
)

// readChunkSize bounds a single Read from the transport.
const readChunkSize = 64

// Outcome is the result of one command/response exchange.
type Outcome struct {
	// Response holds the bytes received, terminators removed.
	Response string
	// Markers holds the terminators cut out of Response.
	Markers Markers
	// Expected is the number of terminators the caller waited for.
	Expected uint8
}

// Count returns the number of terminators received.
func (o Outcome) Count() uint8 {
	return o.Markers.Count()
}

// Success reports whether the expected number of terminators arrived.
func (o Outcome) Success() bool {
	return o.Markers.Count() >= o.Expected
}

// inputResetter is implemented by transports that can discard bytes
// received before the exchange started.
type inputResetter interface {
	ResetInputBuffer() error
}

// Exchange sends cmd to the modem and collects the response until expected
// terminators have been received or timeout elapses.
//
// The command is written one byte at a time, paced by Config.Pacing since
// the module UART has no flow control. Inbound bytes are consumed while
// writing because the module may echo. The timeout starts once the last
// byte has been written, without any pacing delay after it: it bounds the
// wait for the answer, not the time spent sending. Use a context deadline
// to bound the whole exchange.
//
// The returned error is nil exactly when Outcome.Success reports true.
// ErrNoResponse and ErrUnexpectedResponse tell a silent modem from a
// partial answer.
func (m *Modem) Exchange(ctx context.Context, cmd []byte, timeout time.Duration, expected uint8) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchange(ctx, cmd, timeout, expected)
}

// exchange is Exchange without locking; m.mu must be held.
func (m *Modem) exchange(ctx context.Context, cmd []byte, timeout time.Duration, expected uint8) (Outcome, error) {
	out := Outcome{Expected: expected}
	if m.closed {
		return out, ErrAlreadyClosed
	}

	if m.config.Emulator {
		m.logger.Debug("emulator mode, frame not sent", "cmd", string(cmd))
		return out, nil
	}

	transport, err := m.config.Dialer.Dial(ctx)
	if err != nil {
		return out, fmt.Errorf("open channel: %w", err)
	}
	if transport == nil {
		return out, ErrNotInitialized
	}

	response, err := m.transfer(ctx, transport, cmd, timeout, expected, &out.Markers)
	if closeErr := transport.Close(); closeErr != nil {
		m.logger.Warn("close channel", "error", closeErr)
	}
	out.Response = string(response)
	m.trace(cmd, response, out.Markers)

	if err != nil {
		return out, err
	}
	if !out.Success() {
		if len(response) == 0 {
			m.logger.Warn("no response", "cmd", string(cmd), "timeout", timeout)
			return out, fmt.Errorf("%w within %s", ErrNoResponse, timeout)
		}
		m.logger.Warn("unexpected response", "cmd", string(cmd), "response", out.Response,
			"markers", out.Count(), "expected", expected)
		return out, fmt.Errorf("%w: %q (%d of %d terminators)", ErrUnexpectedResponse, out.Response, out.Count(), expected)
	}
	if len(response) > 0 && at.Classify(out.Response) == at.TypeFinal && out.Response != at.OK {
		m.logger.Warn("modem reported an error", "cmd", string(cmd), "response", out.Response)
	}
	m.logger.Debug("response", "response", out.Response)
	return out, nil
}

// transfer runs the send/receive loop on an open transport. It returns the
// response text gathered so far; a nil error means the loop ended because
// of the terminator count or the timeout.
func (m *Modem) transfer(ctx context.Context, t Transport, cmd []byte, timeout time.Duration, expected uint8, markers *Markers) ([]byte, error) {
	if err := sleep(ctx, m.config.SettleDelay); err != nil {
		return nil, fmt.Errorf("exchange cancelled: %w", err)
	}
	if r, ok := t.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			m.logger.Warn("discard stale input", "error", err)
		}
	}

	inbound := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go readChunks(t, inbound, readErrs, stop)

	// wait paces the writes, then measures the response timeout.
	first := time.Duration(0)
	if len(cmd) == 0 {
		first = timeout
	}
	wait := time.NewTimer(first)
	defer wait.Stop()

	var (
		response []byte
		sent     int
	)
	// consume appends chunk to the response and reports whether the
	// expected terminator count has been reached.
	consume := func(chunk []byte) bool {
		for _, b := range chunk {
			if b != at.Terminator {
				response = append(response, b)
				continue
			}
			markers.Add(len(response))
			if markers.Count() >= expected {
				return true
			}
		}
		return false
	}

	for {
		select {
		case <-ctx.Done():
			return response, fmt.Errorf("exchange cancelled: %w", ctx.Err())

		case err := <-readErrs:
			// Chunks read before the failure are still queued.
		drain:
			for {
				select {
				case chunk := <-inbound:
					if consume(chunk) {
						return response, nil
					}
				default:
					break drain
				}
			}
			return response, fmt.Errorf("read: %w", err)

		case chunk := <-inbound:
			if consume(chunk) {
				return response, nil
			}

		case <-wait.C:
			if sent == len(cmd) {
				return response, nil
			}
			if _, err := t.Write(cmd[sent : sent+1]); err != nil {
				return response, fmt.Errorf("write %q: %w", cmd, err)
			}
			sent++
			if sent < len(cmd) {
				wait.Reset(m.config.Pacing)
			} else {
				wait.Reset(timeout)
			}
		}
	}
}

// readChunks forwards everything read from r until r fails or stop closes.
func readChunks(r io.Reader, inbound chan<- []byte, errs chan<- error, stop <-chan struct{}) {
	for {
		buf := make([]byte, readChunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case inbound <- buf[:n]:
			case <-stop:
				return
			}
		}
		if err != nil {
			select {
			case errs <- err:
			case <-stop:
			}
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
