package modem_test

import (
	"io"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/sigfoxgw/modem"
)

// MockSequenceBuilder scripts the serial traffic of consecutive exchanges.
// Every exchange dials its own MockTransport, writes the command one byte at
// a time and closes the transport.
type MockSequenceBuilder struct {
	ctrl   *gomock.Controller
	dialer *modem.MockDialer
	calls  []any
}

func NewMockSequence(ctrl *gomock.Controller, dialer *modem.MockDialer) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		ctrl:   ctrl,
		dialer: dialer,
		calls:  []any{},
	}
}

// Exchange expects cmd to be written and makes response readable once its
// last byte went out. An empty response leaves the line silent.
func (b *MockSequenceBuilder) Exchange(cmd, response string) *MockSequenceBuilder {
	transport := modem.NewMockTransport(b.ctrl)
	written := make(chan struct{})
	closed := make(chan struct{})

	b.calls = append(b.calls, b.dialer.EXPECT().Dial(gomock.Any()).Return(transport, nil))
	for i := range len(cmd) {
		call := transport.EXPECT().Write([]byte{cmd[i]}).Return(1, nil)
		if i == len(cmd)-1 {
			call = call.Do(func([]byte) { close(written) })
		}
		b.calls = append(b.calls, call)
	}
	b.calls = append(b.calls, transport.EXPECT().Close().DoAndReturn(func() error {
		close(closed)
		return nil
	}))

	if response != "" {
		transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			select {
			case <-written:
				return copy(p, response), nil
			case <-closed:
				return 0, io.EOF
			}
		}).MaxTimes(1)
	}
	blockUntilClosed(transport, closed)
	return b
}

// WriteFailure expects the first byte of cmd to be rejected with err.
func (b *MockSequenceBuilder) WriteFailure(cmd string, err error) *MockSequenceBuilder {
	transport := modem.NewMockTransport(b.ctrl)
	closed := make(chan struct{})

	b.calls = append(b.calls,
		b.dialer.EXPECT().Dial(gomock.Any()).Return(transport, nil),
		transport.EXPECT().Write([]byte{cmd[0]}).Return(0, err),
		transport.EXPECT().Close().DoAndReturn(func() error {
			close(closed)
			return nil
		}),
	)
	blockUntilClosed(transport, closed)
	return b
}

// DialFailure expects a dial that fails with err.
func (b *MockSequenceBuilder) DialFailure(err error) *MockSequenceBuilder {
	b.calls = append(b.calls, b.dialer.EXPECT().Dial(gomock.Any()).Return(nil, err))
	return b
}

func (b *MockSequenceBuilder) Calls() []any {
	return b.calls
}

// blockUntilClosed lets the background reader park on transport until the
// exchange closes it.
func blockUntilClosed(transport *modem.MockTransport, closed <-chan struct{}) {
	transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		<-closed
		return 0, io.EOF
	}).AnyTimes()
}
