package actor

import (
	"sync/atomic"

	"github.com/j9brown/victron-vebus/pkg/vebus"

	"go.uber.org/zap"
)

// Listener drains a session's frame stream in the background and hands every
// frame to dispatch, one at a time and in arrival order.
type Listener struct {
	frames   <-chan vebus.Frame
	dispatch func(vebus.Frame)
	logger   *zap.Logger
	stopping atomic.Bool
	done     chan struct{}
}

func NewListener(frames <-chan vebus.Frame, dispatch func(vebus.Frame), logger *zap.Logger) *Listener {
	return &Listener{
		frames:   frames,
		dispatch: dispatch,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (l *Listener) Start() {
	go l.run()
}

func (l *Listener) run() {
	defer close(l.done)
	count := 0
	for frame := range l.frames {
		count++
		l.dispatch(frame)
	}
	// nobody is told: the controller keeps polling a dead session
	if l.stopping.Load() {
		l.logger.Debug("listener@listening frame stream closed", zap.Int("frames", count))
	} else {
		l.logger.Warn("listener@listening frame stream ended", zap.Int("frames", count))
	}
}

// Expect marks the end of the stream as expected, it is logged at debug level.
func (l *Listener) Expect() {
	l.stopping.Store(true)
}

// Done is closed once the stream has ended and the last frame was dispatched.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}
