package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs fn outside the actor. Panics and timeouts become
// errors handed to Recover, results are delivered as messages. A failed task
// without Recover delivers nothing.
type SafeBackgroundTask[T any] struct {
	system  *actor.ActorSystem
	fn      func() (*T, error)
	timeout *time.Duration
	recover func(error) T
	deliver func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		system: ctx.ActorSystem(),
		fn:     fn,
	}
}

func NewBackgroundTaskNoError[T any](ctx actor.Context, fn func() *T) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		system: ctx.ActorSystem(),
		fn: func() (*T, error) {
			return fn(), nil
		},
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo runs the task on its own goroutine and sends the result (or the
// recovered value) to pid. The actor keeps processing messages meanwhile.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	root := t.system.Root
	t.deliver = func(value T) {
		root.Send(pid, value)
	}
	go t.run()
}

func (t *SafeBackgroundTask[T]) run() {
	bgFn := io.Eval(t.fn)
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	value := result.Value
	if result.Error != nil {
		if t.recover == nil {
			return
		}
		value = t.recover(result.Error)
	}

	t.deliver(value)
}
