package vebus

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
)

var ErrSessionClosed = errors.New("vebus: session closed")

// SimulatedOptions configures a SimulatedSession
type SimulatedOptions struct {
	// Phases is reported as ACFrame.NumPhases. Zero reports "unknown".
	Phases int
	// AckAfter makes the device acknowledge from the AckAfter-th state request
	// on. Zero never acknowledges.
	AckAfter int
	// Silent devices never answer.
	Silent bool
}

// SimulatedSession is an in-process device. It answers every request with a
// plausible frame and records the requests it received, in order.
type SimulatedSession struct {
	opts SimulatedOptions

	mu            sync.Mutex
	requests      []Request
	stateRequests int
	switchState   SwitchState
	currentLimit  float64
	closed        bool

	frames    chan Frame
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewSimulatedSession(opts SimulatedOptions) *SimulatedSession {
	return &SimulatedSession{
		opts:         opts,
		switchState:  SwitchStateOn,
		currentLimit: 16,
		frames:       make(chan Frame, 16),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// NewSimulatedSessionFromURL reads options from a device id such as
// sim://?phases=3&ack_after=2
func NewSimulatedSessionFromURL(u *url.URL) (*SimulatedSession, error) {
	opts := SimulatedOptions{Phases: 1}
	q := u.Query()
	if v := q.Get("phases"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.New("phases must be a non negative integer")
		}
		opts.Phases = n
	}
	if v := q.Get("ack_after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.New("ack_after must be a non negative integer")
		}
		opts.AckAfter = n
	}
	if v := q.Get("silent"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("silent must be a boolean")
		}
		opts.Silent = b
	}
	return NewSimulatedSession(opts), nil
}

func (s *SimulatedSession) SendLEDRequest() error {
	return s.handle(LEDRequest{}, LEDFrame{
		On: LEDSet{Mains: true, Float: true},
	})
}

func (s *SimulatedSession) SendDCRequest() error {
	return s.handle(DCRequest{}, DCFrame{
		Voltage:           53.2,
		CurrentInverting:  0,
		CurrentCharging:   4.7,
		InverterFrequency: 50,
	})
}

func (s *SimulatedSession) SendACRequest(phase int) error {
	return s.handle(ACRequest{Phase: phase}, ACFrame{
		Phase:           phase,
		NumPhases:       s.opts.Phases,
		MainsVoltage:    231.4,
		MainsCurrent:    2.1,
		InverterVoltage: 231.2,
		InverterCurrent: 1.3,
		MainsFrequency:  50.02,
		State:           DeviceStateCharge,
	})
}

func (s *SimulatedSession) SendConfigRequest() error {
	s.mu.Lock()
	frame := ConfigFrame{
		SwitchState:         s.switchState,
		CurrentLimit:        s.currentLimit,
		MinimumCurrentLimit: 2.5,
		MaximumCurrentLimit: 50,
	}
	s.mu.Unlock()
	return s.handle(ConfigRequest{}, frame)
}

func (s *SimulatedSession) SendStateRequest(state SwitchState, currentLimit *float64) error {
	var limit *float64
	if currentLimit != nil {
		v := *currentLimit
		limit = &v
	}

	s.mu.Lock()
	s.stateRequests++
	s.switchState = state
	if limit != nil {
		s.currentLimit = *limit
	}
	ack := s.opts.AckAfter > 0 && s.stateRequests >= s.opts.AckAfter
	s.mu.Unlock()

	if ack {
		return s.handle(StateRequest{SwitchState: state, CurrentLimit: limit}, StateFrame{})
	}
	return s.handle(StateRequest{SwitchState: state, CurrentLimit: limit}, nil)
}

// Inject delivers frame as if the device had sent it unprompted.
func (s *SimulatedSession) Inject(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.emit(frame)
}

func (s *SimulatedSession) handle(req Request, answer Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.requests = append(s.requests, req)
	if answer == nil || s.opts.Silent {
		return nil
	}
	return s.emit(answer)
}

// emit must be called with mu held.
func (s *SimulatedSession) emit(frame Frame) error {
	select {
	case s.frames <- frame:
		return nil
	case <-s.closing:
		return ErrSessionClosed
	}
}

// Requests returns a copy of every request received so far.
func (s *SimulatedSession) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// IsClosed reports whether Close has been called.
func (s *SimulatedSession) IsClosed() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *SimulatedSession) Frames() <-chan Frame {
	return s.frames
}

func (s *SimulatedSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.mu.Lock()
		s.closed = true
		close(s.frames)
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

func (s *SimulatedSession) WaitClosed(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensure interface compliance
var _ Session = (*SimulatedSession)(nil)
