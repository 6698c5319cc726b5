package actor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/j9brown/victron-vebus/internal/config"
	"github.com/j9brown/victron-vebus/internal/core/domain"
	"github.com/j9brown/victron-vebus/internal/core/port"
	"github.com/j9brown/victron-vebus/internal/core/service"
	. "github.com/j9brown/victron-vebus/internal/util/actorutil"
	"github.com/j9brown/victron-vebus/pkg/vebus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const stopTeardownTimeout = 2 * time.Second

// ControllerActor runs one command against one device session. Frames and
// polling steps are both handled by the actor mailbox, so they never
// interleave.
type ControllerActor struct {
	ActorWithStates
	config      config.Config
	command     domain.Command
	opener      port.SessionOpener
	eventStream *eventstream.EventStream
	result      chan<- error
	logger      *zap.Logger

	scheduler   *scheduler.TimerScheduler
	stash       *Stash
	session     vebus.Session
	listener    *Listener
	deviceState domain.DeviceState
	lastFrames  map[string]vebus.Frame
	pending     []vebus.Request
	cancelOpen  context.CancelFunc
	handoff     *openHandoff
	cancelTick  scheduler.CancelFunc
	outcome     error
	reported    bool
}

type ControllerOption func(*ControllerActor)

// WithDeviceState replaces the initial device state.
func WithDeviceState(s domain.DeviceState) ControllerOption {
	return func(a *ControllerActor) {
		a.deviceState = s
	}
}

type controllerTick struct {
}

type sessionOpened struct {
	session vebus.Session
	err     error
}

type frameReceived struct {
	frame vebus.Frame
}

type sessionClosed struct {
	err error
}

// openHandoff passes the session opened by the background task to the actor.
// Once abandoned, further sessions are refused and the caller must close them.
type openHandoff struct {
	mu        sync.Mutex
	abandoned bool
	session   vebus.Session
}

// offer parks session until the actor takes it, false if the open was abandoned.
func (h *openHandoff) offer(session vebus.Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.abandoned {
		return false
	}
	h.session = session
	return true
}

func (h *openHandoff) take() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = nil
}

// abandon refuses later offers and returns a parked session nobody took.
func (h *openHandoff) abandon() vebus.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.abandoned = true
	session := h.session
	h.session = nil
	return session
}

// NewControllerActor creates the controller for command. The command outcome
// is sent exactly once on result: nil on success, a *vebus.ConnectionError
// when the device cannot be opened, context.Canceled when the actor is
// stopped first. result must have room for one value.
func NewControllerActor(config config.Config, command domain.Command, opener port.SessionOpener,
	eventStream *eventstream.EventStream, result chan<- error, logger *zap.Logger, opts ...ControllerOption) *ControllerActor {
	act := &ControllerActor{
		config:      config,
		command:     command,
		opener:      opener,
		eventStream: eventStream,
		result:      result,
		logger:      ActorLogger(domain.ACTOR_ID_CONTROLLER, logger),
		stash:       &Stash{},
		deviceState: domain.NewDeviceState(),
		lastFrames:  map[string]vebus.Frame{},
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	for _, opt := range opts {
		opt(act)
	}
	act.Become(ControllerStartingState{
		actor: act,
	})
	return act
}

func (state *ControllerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type ControllerStartingState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerStartingState) Name() string {
	return "starting"
}

func (state ControllerStartingState) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("controller@starting started", zap.String("command", state.actor.command.CommandName()),
			zap.String("device", state.actor.command.Device()))
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx.ActorSystem().Root)
		state.actor.transition(ctx, ControllerOpeningState{
			actor: state.actor,
		}.OnEnter(ctx))
	default:
		state.actor.receiveCommon(ctx, state)
	}
}

// Opening state

type ControllerOpeningState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerOpeningState) Name() string {
	return "opening"
}

func (state ControllerOpeningState) OnEnter(ctx actor.Context) ControllerOpeningState {
	a := state.actor
	device := a.command.Device()
	openCtx, cancel := context.WithCancel(context.Background())
	a.cancelOpen = cancel
	handoff := &openHandoff{}
	a.handoff = handoff

	NewBackgroundTask(ctx, func() (*sessionOpened, error) {
		session, err := a.opener(openCtx, device)
		if err != nil {
			return &sessionOpened{err: asConnectionError(device, err)}, nil
		}
		if !handoff.offer(session) {
			// stopped or timed out while opening
			session.Close()
			return &sessionOpened{err: context.Canceled}, nil
		}
		return &sessionOpened{session: session}, nil
	}).WithTimeout(2*a.config.OpenTimeout() + time.Second).Recover(func(err error) sessionOpened {
		cancel()
		if session := handoff.abandon(); session != nil {
			session.Close()
		}
		return sessionOpened{err: asConnectionError(device, err)}
	}).PipeTo(ctx.Self())
	return state
}

func (state ControllerOpeningState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case sessionOpened:
		a.cancelOpen()
		if msg.err != nil {
			a.logger.Error("controller@opening cannot open device", zap.Error(msg.err))
			a.finish(ctx, msg.err)
			return
		}
		a.logger.Debug("controller@opening session opened")
		a.handoff.take()
		a.session = msg.session

		self := ctx.Self()
		root := ctx.ActorSystem().Root
		a.listener = NewListener(a.session.Frames(), func(frame vebus.Frame) {
			root.Send(self, frameReceived{frame: frame})
		}, ActorLogger(domain.ACTOR_ID_LISTENER, a.logger))
		a.listener.Start()

		switch a.command.(type) {
		case domain.ControlCommand:
			a.transition(ctx, ControllerWaitAckState{actor: a})
		default:
			a.transition(ctx, ControllerMonitoringState{actor: a})
		}
		ctx.Send(self, controllerTick{})
		a.stash.UnstashAll(ctx)
	default:
		if !a.receiveCommon(ctx, state) {
			a.logger.Debug("controller@opening stash", zap.String("type", fmt.Sprintf("%T", msg)))
			a.stash.Stash(ctx, msg)
		}
	}
}

// WaitAck state: repeat state and config requests until acknowledged

type ControllerWaitAckState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerWaitAckState) Name() string {
	return "waitAck"
}

func (state ControllerWaitAckState) Receive(ctx actor.Context) {
	a := state.actor
	switch ctx.Message().(type) {
	case controllerTick:
		if len(a.pending) == 0 {
			// top of an iteration
			if a.deviceState.Acknowledged {
				a.onAcknowledged(ctx)
				return
			}
			cmd := a.command.(domain.ControlCommand)
			a.pending = service.WaitAckIteration(cmd.SwitchState, cmd.CurrentLimit)
		}
		a.sendNext(ctx, state)
	default:
		a.receiveCommon(ctx, state)
	}
}

func (a *ControllerActor) onAcknowledged(ctx actor.Context) {
	cmd := a.command.(domain.ControlCommand)
	if cmd.StayResident {
		a.logger.Info("controller@waitAck acknowledged, monitoring")
		a.transition(ctx, ControllerMonitoringState{actor: a})
		ctx.Send(ctx.Self(), controllerTick{})
		return
	}
	a.logger.Info("controller@waitAck acknowledged, closing")
	a.transition(ctx, ControllerClosingState{actor: a}.OnEnter(ctx))
}

// Monitoring state: poll the device status forever

type ControllerMonitoringState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerMonitoringState) Name() string {
	return "monitoring"
}

func (state ControllerMonitoringState) Receive(ctx actor.Context) {
	a := state.actor
	switch ctx.Message().(type) {
	case controllerTick:
		if len(a.pending) == 0 {
			// phase count is read once per cycle
			a.pending = service.MonitorCycle(a.deviceState.ACNumPhases)
		}
		a.sendNext(ctx, state)
	default:
		a.receiveCommon(ctx, state)
	}
}

// Closing state: wait for the session teardown

type ControllerClosingState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerClosingState) Name() string {
	return "closing"
}

func (state ControllerClosingState) OnEnter(ctx actor.Context) ControllerClosingState {
	a := state.actor
	a.pending = nil
	session, listener := a.session, a.listener
	listener.Expect()
	if err := session.Close(); err != nil {
		a.logger.Warn("controller@closing close failed", zap.Error(err))
	}
	NewBackgroundTaskNoError(ctx, func() *sessionClosed {
		err := session.WaitClosed(context.Background())
		// every frame is dispatched before the command completes
		<-listener.Done()
		return &sessionClosed{err: err}
	}).Recover(func(err error) sessionClosed {
		return sessionClosed{err: fmt.Errorf("teardown: %w", err)}
	}).PipeTo(ctx.Self())
	return state
}

func (state ControllerClosingState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case sessionClosed:
		if msg.err != nil {
			a.logger.Warn("controller@closing teardown failed", zap.Error(msg.err))
		}
		a.logger.Debug("controller@closing session closed")
		a.session = nil
		a.finish(ctx, nil)
	case controllerTick:
	default:
		a.receiveCommon(ctx, state)
	}
}

// Closed state

type ControllerClosedState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerClosedState) Name() string {
	return "closed"
}

func (state ControllerClosedState) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case controllerTick, sessionOpened, sessionClosed:
	default:
		state.actor.receiveCommon(ctx, state)
	}
}

// receiveCommon handles the messages every state answers the same way and
// reports whether msg was one of them.
func (a *ControllerActor) receiveCommon(ctx actor.Context, state ActorState) bool {
	switch msg := ctx.Message().(type) {
	case frameReceived:
		a.dispatch(msg.frame)
	case domain.ActorHealthRequest:
		a.logger.Debug(fmt.Sprintf("controller@%s ActorHealthRequest", state.Name()))
		ForRequest(msg).Respond(ctx, domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROLLER,
			Healthy: a.outcome == nil,
			State:   state.Name(),
		})
	case domain.GetDeviceStateRequest:
		a.logger.Debug(fmt.Sprintf("controller@%s GetDeviceStateRequest", state.Name()))
		ForRequest(msg).Respond(ctx, domain.GetDeviceStateResponse{
			Device:      a.command.Device(),
			Command:     a.command.CommandName(),
			State:       state.Name(),
			DeviceState: a.deviceState,
			Frames:      maps.Clone(a.lastFrames),
		})
	case *actor.Stopping:
		a.onStopping(state)
	case *actor.Started, *actor.Stopped, *actor.Restarting:
	default:
		return false
	}
	return true
}

// dispatch applies an inbound frame and announces it
func (a *ControllerActor) dispatch(frame vebus.Frame) {
	newlyAcknowledged := a.deviceState.Apply(frame)
	a.lastFrames[frame.FrameName()] = frame
	a.eventStream.Publish(domain.FrameReceivedEvent{Frame: frame, At: time.Now()})
	if !newlyAcknowledged {
		return
	}
	if cmd, ok := a.command.(domain.ControlCommand); ok {
		a.logger.Debug("controller@dispatch acknowledged", zap.Stringer("switch_state", cmd.SwitchState))
		a.eventStream.Publish(domain.AcknowledgedEvent{SwitchState: cmd.SwitchState, At: time.Now()})
	}
}

func (a *ControllerActor) sendNext(ctx actor.Context, state ActorState) {
	req := a.pending[0]
	a.pending = a.pending[1:]
	a.logger.Debug(fmt.Sprintf("controller@%s send %s request", state.Name(), req.RequestName()), zap.Any("request", req))
	if err := vebus.Send(a.session, req); err != nil {
		// fire and forget, the next iteration retries
		a.logger.Warn(fmt.Sprintf("controller@%s send %s request failed", state.Name(), req.RequestName()), zap.Error(err))
	}
	a.cancelTick = a.scheduler.SendOnce(a.config.Delay(), ctx.Self(), controllerTick{})
}

func (a *ControllerActor) transition(ctx actor.Context, state ActorState) {
	a.logger.Debug(fmt.Sprintf("controller@%s become %s", a.StateName(), state.Name()))
	a.Become(state)
	a.eventStream.Publish(domain.ControllerStateEvent{State: state.Name(), At: time.Now()})
}

func (a *ControllerActor) finish(ctx actor.Context, err error) {
	a.outcome = err
	a.transition(ctx, ControllerClosedState{actor: a})
	a.report(err)
}

func (a *ControllerActor) report(err error) {
	if a.reported {
		return
	}
	a.reported = true
	a.result <- err
}

func (a *ControllerActor) onStopping(state ActorState) {
	a.logger.Debug(fmt.Sprintf("controller@%s stopping", state.Name()))
	if a.cancelTick != nil {
		a.cancelTick()
	}
	if a.cancelOpen != nil {
		a.cancelOpen()
	}
	if a.handoff != nil {
		// opened but never delivered to the mailbox
		if session := a.handoff.abandon(); session != nil {
			a.logger.Debug(fmt.Sprintf("controller@%s closing undelivered session", state.Name()))
			session.Close()
		}
	}
	if a.session != nil {
		a.listener.Expect()
		a.session.Close()
		ctx, cancel := context.WithTimeout(context.Background(), stopTeardownTimeout)
		defer cancel()
		if err := a.session.WaitClosed(ctx); err != nil {
			a.logger.Warn(fmt.Sprintf("controller@%s teardown failed", state.Name()), zap.Error(err))
		}
		a.session = nil
	}
	a.report(context.Canceled)
}

func asConnectionError(device string, err error) error {
	var connErr *vebus.ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	return &vebus.ConnectionError{Device: device, Err: err}
}
