package domain

import (
	"fmt"

	"github.com/j9brown/victron-vebus/pkg/vebus"
)

const (
	COMMAND_MONITOR = "monitor"
	COMMAND_CONTROL = "control"
)

// Command is what a controller runs for the lifetime of one session.
type Command interface {
	CommandName() string
	Device() string
}

// MonitorCommand polls the device status until stopped.
type MonitorCommand struct {
	DeviceID string
}

// ControlCommand sets the switch state and retries until the device
// acknowledges. With StayResident the controller then keeps monitoring.
type ControlCommand struct {
	DeviceID     string
	SwitchState  vebus.SwitchState
	CurrentLimit *float64
	StayResident bool
}

func (c MonitorCommand) CommandName() string { return COMMAND_MONITOR }
func (c MonitorCommand) Device() string      { return c.DeviceID }

func (c ControlCommand) CommandName() string { return COMMAND_CONTROL }
func (c ControlCommand) Device() string      { return c.DeviceID }

// Description is the line announced before a control command starts.
func (c ControlCommand) Description() string {
	limit := "unspecified"
	if c.CurrentLimit != nil {
		limit = fmt.Sprintf("%g", *c.CurrentLimit)
	}
	return fmt.Sprintf("Setting switch state to %s and current limit to %s amps", c.SwitchState, limit)
}

// ensure interface compliance
var (
	_ Command = MonitorCommand{}
	_ Command = ControlCommand{}
)
