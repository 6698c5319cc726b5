package vebus

import "strings"

// Frame is a decoded inbound message from a VE.Bus device.
// Frames are values and are never modified after being produced.
type Frame interface {
	FrameName() string
}

// ACFrame reports the AC status of one phase
type ACFrame struct {
	Phase           int         `json:"phase" yaml:"phase"`
	NumPhases       int         `json:"ac_num_phases" yaml:"ac_num_phases"` // 0 = not reported yet
	MainsVoltage    float64     `json:"mains_voltage" yaml:"mains_voltage"`
	MainsCurrent    float64     `json:"mains_current" yaml:"mains_current"`
	InverterVoltage float64     `json:"inverter_voltage" yaml:"inverter_voltage"`
	InverterCurrent float64     `json:"inverter_current" yaml:"inverter_current"`
	MainsFrequency  float64     `json:"mains_frequency" yaml:"mains_frequency"`
	State           DeviceState `json:"state" yaml:"state"`
}

// DCFrame reports the battery side status
type DCFrame struct {
	Voltage           float64 `json:"voltage" yaml:"voltage"`
	CurrentInverting  float64 `json:"current_inverting" yaml:"current_inverting"`
	CurrentCharging   float64 `json:"current_charging" yaml:"current_charging"`
	InverterFrequency float64 `json:"inverter_frequency" yaml:"inverter_frequency"`
}

// LEDSet holds one flag per front panel LED
type LEDSet struct {
	Mains       bool `json:"mains" yaml:"mains"`
	Absorption  bool `json:"absorption" yaml:"absorption"`
	Bulk        bool `json:"bulk" yaml:"bulk"`
	Float       bool `json:"float" yaml:"float"`
	Inverter    bool `json:"inverter" yaml:"inverter"`
	Overload    bool `json:"overload" yaml:"overload"`
	LowBattery  bool `json:"low_battery" yaml:"low_battery"`
	Temperature bool `json:"temperature" yaml:"temperature"`
}

// String lists the names of the set LEDs, or "none".
func (s LEDSet) String() string {
	var names []string
	for _, led := range []struct {
		name string
		set  bool
	}{
		{"mains", s.Mains},
		{"absorption", s.Absorption},
		{"bulk", s.Bulk},
		{"float", s.Float},
		{"inverter", s.Inverter},
		{"overload", s.Overload},
		{"low_battery", s.LowBattery},
		{"temperature", s.Temperature},
	} {
		if led.set {
			names = append(names, led.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// LEDFrame reports which LEDs are lit and which are blinking
type LEDFrame struct {
	On    LEDSet `json:"on" yaml:"on"`
	Blink LEDSet `json:"blink" yaml:"blink"`
}

// ConfigFrame reports the active switch state and current limits
type ConfigFrame struct {
	SwitchState         SwitchState `json:"switch_state" yaml:"switch_state"`
	CurrentLimit        float64     `json:"current_limit" yaml:"current_limit"`
	MinimumCurrentLimit float64     `json:"minimum_current_limit" yaml:"minimum_current_limit"`
	MaximumCurrentLimit float64     `json:"maximum_current_limit" yaml:"maximum_current_limit"`
}

// StateFrame acknowledges a state request. It carries no correlation id.
type StateFrame struct{}

func (ACFrame) FrameName() string     { return "ACFrame" }
func (DCFrame) FrameName() string     { return "DCFrame" }
func (LEDFrame) FrameName() string    { return "LEDFrame" }
func (ConfigFrame) FrameName() string { return "ConfigFrame" }
func (StateFrame) FrameName() string  { return "StateFrame" }

// ensure interface compliance
var (
	_ Frame = ACFrame{}
	_ Frame = DCFrame{}
	_ Frame = LEDFrame{}
	_ Frame = ConfigFrame{}
	_ Frame = StateFrame{}
)
