package domain

import "github.com/j9brown/victron-vebus/pkg/vebus"

// DeviceState is what the controller tracks from inbound frames.
type DeviceState struct {
	// ACNumPhases is the last positive phase count reported by an AC frame.
	ACNumPhases int `json:"ac_num_phases"`
	// Acknowledged latches once any state frame is seen.
	Acknowledged bool `json:"acknowledged"`
}

func NewDeviceState() DeviceState {
	return DeviceState{
		ACNumPhases:  1,
		Acknowledged: false,
	}
}

// Apply updates the state from frame and reports whether frame is the first
// acknowledgment observed.
func (s *DeviceState) Apply(frame vebus.Frame) bool {
	switch f := frame.(type) {
	case vebus.ACFrame:
		// zero or less means not reported
		if f.NumPhases > 0 {
			s.ACNumPhases = f.NumPhases
		}
	case vebus.StateFrame:
		if !s.Acknowledged {
			s.Acknowledged = true
			return true
		}
	}
	return false
}
