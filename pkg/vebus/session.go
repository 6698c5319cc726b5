package vebus

import (
	"context"
	"fmt"
)

// Session is an open connection to a single VE.Bus device.
//
// The Send* methods are fire-and-forget: a nil error only means the request
// left this process, never that the device accepted it. Answers arrive
// asynchronously on Frames.
type Session interface {
	SendLEDRequest() error
	SendDCRequest() error
	SendACRequest(phase int) error
	SendConfigRequest() error
	// SendStateRequest sets the switch state. A nil currentLimit leaves the
	// current limit unspecified.
	SendStateRequest(state SwitchState, currentLimit *float64) error

	// Frames is closed when the session is closed or the transport fails.
	Frames() <-chan Frame

	Close() error
	// WaitClosed blocks until teardown started by Close has completed.
	WaitClosed(ctx context.Context) error
}

// ConnectionError is returned when a session to Device cannot be opened.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("vebus: cannot open %s: %v", e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
