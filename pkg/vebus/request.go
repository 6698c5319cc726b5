package vebus

import "fmt"

// Request is an outbound request kind understood by every Session.
type Request interface {
	RequestName() string
}

type LEDRequest struct{}

type DCRequest struct{}

type ACRequest struct {
	Phase int
}

type ConfigRequest struct{}

type StateRequest struct {
	SwitchState  SwitchState
	CurrentLimit *float64
}

func (LEDRequest) RequestName() string    { return "led" }
func (DCRequest) RequestName() string     { return "dc" }
func (ACRequest) RequestName() string     { return "ac" }
func (ConfigRequest) RequestName() string { return "config" }
func (StateRequest) RequestName() string  { return "state" }

func (r ACRequest) String() string {
	return fmt.Sprintf("ac(%d)", r.Phase)
}

func (r StateRequest) String() string {
	if r.CurrentLimit == nil {
		return fmt.Sprintf("state(%s)", r.SwitchState)
	}
	return fmt.Sprintf("state(%s, %gA)", r.SwitchState, *r.CurrentLimit)
}

// Send issues req on session.
func Send(session Session, req Request) error {
	switch r := req.(type) {
	case LEDRequest:
		return session.SendLEDRequest()
	case DCRequest:
		return session.SendDCRequest()
	case ACRequest:
		return session.SendACRequest(r.Phase)
	case ConfigRequest:
		return session.SendConfigRequest()
	case StateRequest:
		return session.SendStateRequest(r.SwitchState, r.CurrentLimit)
	default:
		return fmt.Errorf("vebus: unsupported request %T", req)
	}
}
