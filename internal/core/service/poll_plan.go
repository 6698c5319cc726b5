package service

import "github.com/j9brown/victron-vebus/pkg/vebus"

// MonitorCycle is one full status poll: LED, DC, AC phases 1..phases in order
// and finally config. A phase count below one polls no AC phase.
func MonitorCycle(phases int) []vebus.Request {
	reqs := make([]vebus.Request, 0, max(phases, 0)+3)
	reqs = append(reqs, vebus.LEDRequest{}, vebus.DCRequest{})
	for phase := 1; phase <= phases; phase++ {
		reqs = append(reqs, vebus.ACRequest{Phase: phase})
	}
	return append(reqs, vebus.ConfigRequest{})
}

// WaitAckIteration is one retry of a control command: the state request
// followed by a config request so the display shows what the device applied.
func WaitAckIteration(state vebus.SwitchState, currentLimit *float64) []vebus.Request {
	return []vebus.Request{
		vebus.StateRequest{SwitchState: state, CurrentLimit: currentLimit},
		vebus.ConfigRequest{},
	}
}
