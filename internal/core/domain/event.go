package domain

import (
	"time"

	"github.com/j9brown/victron-vebus/pkg/vebus"
)

// FrameReceivedEvent is published for every frame the device sends.
type FrameReceivedEvent struct {
	Frame vebus.Frame
	At    time.Time
}

// AcknowledgedEvent is published once, when a control command sees the
// device acknowledge the requested switch state.
type AcknowledgedEvent struct {
	SwitchState vebus.SwitchState
	At          time.Time
}

// ControllerStateEvent is published on every controller state transition.
type ControllerStateEvent struct {
	State string
	At    time.Time
}
