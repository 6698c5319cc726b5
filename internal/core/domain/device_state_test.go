package domain

import (
	"testing"

	"github.com/j9brown/victron-vebus/pkg/vebus"

	"github.com/stretchr/testify/assert"
)

func TestDeviceStateDefaults(t *testing.T) {

	s := NewDeviceState()
	assert.Equal(t, 1, s.ACNumPhases)
	assert.False(t, s.Acknowledged)
}

func TestDeviceStatePhaseCount(t *testing.T) {

	assert := assert.New(t)

	s := NewDeviceState()
	assert.False(s.Apply(vebus.ACFrame{Phase: 1, NumPhases: 3}))
	assert.Equal(3, s.ACNumPhases)

	// zero or less means not reported and never overwrites
	s.Apply(vebus.ACFrame{Phase: 1, NumPhases: 0})
	assert.Equal(3, s.ACNumPhases)
	s.Apply(vebus.ACFrame{Phase: 1, NumPhases: -1})
	assert.Equal(3, s.ACNumPhases)

	s.Apply(vebus.ACFrame{Phase: 1, NumPhases: 2})
	assert.Equal(2, s.ACNumPhases)
}

func TestDeviceStateAcknowledgmentLatches(t *testing.T) {

	assert := assert.New(t)

	s := NewDeviceState()
	assert.True(s.Apply(vebus.StateFrame{}), "first acknowledgment")
	assert.True(s.Acknowledged)

	assert.False(s.Apply(vebus.StateFrame{}), "already acknowledged")
	assert.False(s.Apply(vebus.ConfigFrame{SwitchState: vebus.SwitchStateOff}))
	assert.True(s.Acknowledged, "never reset")
}

func TestDeviceStateIgnoresOtherFrames(t *testing.T) {

	s := NewDeviceState()
	for _, f := range []vebus.Frame{vebus.DCFrame{Voltage: 52}, vebus.LEDFrame{}, vebus.ConfigFrame{}} {
		assert.False(t, s.Apply(f))
	}
	assert.Equal(t, NewDeviceState(), s)
}

func TestControlCommandDescription(t *testing.T) {

	limit := 12.5
	c := ControlCommand{SwitchState: vebus.SwitchStateChargerOnly, CurrentLimit: &limit}
	assert.Equal(t, "Setting switch state to CHARGER_ONLY and current limit to 12.5 amps", c.Description())

	c.CurrentLimit = nil
	assert.Equal(t, "Setting switch state to CHARGER_ONLY and current limit to unspecified amps", c.Description())
	assert.Equal(t, COMMAND_CONTROL, c.CommandName())
}
