package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"i4.energy/across/sigfoxgw/modem"
	"i4.energy/across/sigfoxgw/payload"
)

// ErrQueueFull is returned by Enqueue when no more messages can be held.
var ErrQueueFull = errors.New("message queue full")

// Message is an uplink request received over HTTP or MQTT. Exactly one of
// Payload and Text must be set.
type Message struct {
	// ID is optional; one is derived from the content when empty
	ID      string `json:"id,omitempty"`
	Payload string `json:"payload,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Hex returns the payload to send, encoding Text when needed.
func (msg Message) Hex() (string, error) {
	switch {
	case msg.Payload != "" && msg.Text != "":
		return "", errors.New("only one of 'payload' and 'text' may be set")
	case msg.Payload != "":
		if err := payload.Validate(msg.Payload); err != nil {
			return "", err
		}
		return msg.Payload, nil
	case msg.Text != "":
		return payload.EncodeText(msg.Text)
	default:
		return "", errors.New("one of 'payload' or 'text' is required")
	}
}

// Sender sends one uplink. It is implemented by *modem.Modem.
type Sender interface {
	SendMessage(ctx context.Context, hexPayload string) error
}

type job struct {
	id       string
	hex      string
	attempts int
}

// Queue delivers messages in the background. Messages refused by the duty
// cycle or lost in the exchange are retried after a jittered delay, up to
// MaxRetries times.
//
// Delivery is at least once: a module that stays silent may still have sent
// the uplink, so the retry can duplicate it. A partial answer means the
// module took the frame and is not retried.
type Queue struct {
	Logger     *slog.Logger
	MaxRetries int
	// RetryDelay is the base delay before a retry; up to half of it is
	// added as jitter.
	RetryDelay time.Duration

	sender Sender
	jobs   chan job
}

// NewQueue creates a queue holding up to size messages.
func NewQueue(sender Sender, size int, logger *slog.Logger) *Queue {
	return &Queue{
		Logger:     logger,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		sender:     sender,
		jobs:       make(chan job, size),
	}
}

// Enqueue validates msg and schedules it for delivery. It returns the
// message ID.
func (q *Queue) Enqueue(msg Message) (string, error) {
	hexPayload, err := msg.Hex()
	if err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}
	id := msg.ID
	if id == "" {
		h := sha1.Sum(fmt.Appendf(nil, "%s|%d", hexPayload, time.Now().UnixNano()))
		id = hex.EncodeToString(h[:8])
	}

	select {
	case q.jobs <- job{id: id, hex: hexPayload}:
		q.Logger.Info("message queued", "id", id, "payload", hexPayload)
		return id, nil
	default:
		return "", ErrQueueFull
	}
}

// Run delivers queued messages until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.deliver(ctx, j)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, j job) {
	for {
		err := q.sender.SendMessage(ctx, j.hex)
		if err == nil {
			q.Logger.Info("message delivered", "id", j.id, "attempts", j.attempts+1)
			return
		}
		if !retryable(err) || j.attempts >= q.MaxRetries {
			q.Logger.Error("message dropped", "id", j.id, "attempts", j.attempts+1, "error", err)
			return
		}

		j.attempts++
		delay := q.RetryDelay
		if delay > 0 {
			delay += rand.N(delay/2 + 1)
		}
		q.Logger.Warn("send failed, retrying", "id", j.id, "error", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			q.Logger.Warn("message abandoned on shutdown", "id", j.id)
			return
		case <-t.C:
		}
	}
}

// retryable reports whether sending again later may succeed.
func retryable(err error) bool {
	switch {
	case errors.Is(err, modem.ErrUnsupported),
		errors.Is(err, modem.ErrAlreadyClosed),
		errors.Is(err, modem.ErrUnexpectedResponse),
		isPayloadError(err):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func isPayloadError(err error) bool {
	return errors.Is(err, payload.ErrInvalidHexDigit) ||
		errors.Is(err, payload.ErrOddLength) ||
		errors.Is(err, payload.ErrPayloadTooLong) ||
		errors.Is(err, payload.ErrTextTooLong)
}
