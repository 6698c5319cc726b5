package vebus

import (
	"fmt"
	"strings"
)

// SwitchState is the commandable operating mode of the device.
type SwitchState uint8

const (
	SwitchStateOn SwitchState = iota + 1
	SwitchStateOff
	SwitchStateChargerOnly
	SwitchStateInverterOnly
)

var switchStateNames = map[SwitchState]string{
	SwitchStateOn:           "ON",
	SwitchStateOff:          "OFF",
	SwitchStateChargerOnly:  "CHARGER_ONLY",
	SwitchStateInverterOnly: "INVERTER_ONLY",
}

// SwitchStates lists every valid switch state in declaration order.
func SwitchStates() []SwitchState {
	return []SwitchState{SwitchStateOn, SwitchStateOff, SwitchStateChargerOnly, SwitchStateInverterOnly}
}

func (s SwitchState) String() string {
	if name, ok := switchStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SwitchState(%d)", uint8(s))
}

// Valid reports whether s is one of the four known switch states.
func (s SwitchState) Valid() bool {
	_, ok := switchStateNames[s]
	return ok
}

// ParseSwitchState accepts the state name in any case, e.g. "charger_only".
func ParseSwitchState(str string) (SwitchState, error) {
	upper := strings.ToUpper(strings.TrimSpace(str))
	for state, name := range switchStateNames {
		if name == upper {
			return state, nil
		}
	}
	return 0, fmt.Errorf("invalid switch state %q: must be one of on, off, charger_only, inverter_only", str)
}

func (s SwitchState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SwitchState) UnmarshalText(text []byte) error {
	state, err := ParseSwitchState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// DeviceState is the operating state reported in AC frames.
type DeviceState uint8

const (
	DeviceStateDown DeviceState = iota
	DeviceStateStartup
	DeviceStateOff
	DeviceStateSlave
	DeviceStateInvertFull
	DeviceStateInvertHalf
	DeviceStateInvertAES
	DeviceStatePowerAssist
	DeviceStateBypass
	DeviceStateCharge
)

var deviceStateNames = []string{
	"DOWN",
	"STARTUP",
	"OFF",
	"SLAVE",
	"INVERT_FULL",
	"INVERT_HALF",
	"INVERT_AES",
	"POWER_ASSIST",
	"BYPASS",
	"CHARGE",
}

func (s DeviceState) String() string {
	if int(s) < len(deviceStateNames) {
		return deviceStateNames[s]
	}
	return fmt.Sprintf("DeviceState(%d)", uint8(s))
}

func (s DeviceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DeviceState) UnmarshalText(text []byte) error {
	upper := strings.ToUpper(string(text))
	for i, name := range deviceStateNames {
		if name == upper {
			*s = DeviceState(i)
			return nil
		}
	}
	return fmt.Errorf("invalid device state %q", string(text))
}
