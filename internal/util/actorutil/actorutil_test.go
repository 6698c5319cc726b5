package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedState string

func (s namedState) Name() string          { return string(s) }
func (s namedState) Receive(actor.Context) {}

func TestStateName(t *testing.T) {
	s := ActorWithStates{Behavior: actor.NewBehavior()}
	assert.Equal(t, "", s.StateName())

	s.Become(namedState("opening"))
	assert.Equal(t, "opening", s.StateName())

	s.Become(namedState("closed"))
	assert.Equal(t, "closed", s.StateName())
}

type taskResult struct {
	value int
}

func runTask(t *testing.T, build func(ctx actor.Context) *SafeBackgroundTask[taskResult]) taskResult {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	results := make(chan taskResult, 1)
	system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			build(ctx).PipeTo(ctx.Self())
		case taskResult:
			results <- msg
		}
	}))

	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		require.FailNow(t, "task result not delivered")
		return taskResult{}
	}
}

func recoverWith(value int) func(error) taskResult {
	return func(error) taskResult {
		return taskResult{value: value}
	}
}

func TestBackgroundTaskPipeTo(t *testing.T) {
	r := runTask(t, func(ctx actor.Context) *SafeBackgroundTask[taskResult] {
		return NewBackgroundTask(ctx, func() (*taskResult, error) {
			return &taskResult{value: 42}, nil
		})
	})
	assert.Equal(t, 42, r.value)
}

func TestBackgroundTaskRecover(t *testing.T) {
	cases := map[string]func() (*taskResult, error){
		"error": func() (*taskResult, error) {
			return nil, errors.New("boom")
		},
		"panic": func() (*taskResult, error) {
			panic("boom")
		},
		"nil result": func() (*taskResult, error) {
			return nil, nil
		},
		"timeout": func() (*taskResult, error) {
			time.Sleep(time.Second)
			return &taskResult{value: 1}, nil
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			r := runTask(t, func(ctx actor.Context) *SafeBackgroundTask[taskResult] {
				return NewBackgroundTask(ctx, fn).
					WithTimeout(50 * time.Millisecond).
					Recover(recoverWith(-1))
			})
			assert.Equal(t, -1, r.value)
		})
	}
}

func TestBackgroundTaskNoError(t *testing.T) {
	r := runTask(t, func(ctx actor.Context) *SafeBackgroundTask[taskResult] {
		return NewBackgroundTaskNoError(ctx, func() *taskResult {
			return &taskResult{value: 7}
		})
	})
	assert.Equal(t, 7, r.value)
}

func TestStashUnstashAll(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	received := make(chan string, 4)
	stash := &Stash{}
	ready := false
	pid := system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case string:
			if !ready {
				stash.Stash(ctx, msg)
				return
			}
			received <- msg
		case bool:
			ready = msg
			stash.UnstashAll(ctx)
		}
	}))

	system.Root.Send(pid, "a")
	system.Root.Send(pid, "b")
	system.Root.Send(pid, true)

	for _, want := range []string{"a", "b"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "stashed message not delivered")
		}
	}
	assert.Equal(t, 0, stash.Len())
}

func TestBackgroundTaskFailureWithoutRecover(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	results := make(chan taskResult, 1)
	system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			NewBackgroundTask(ctx, func() (*taskResult, error) {
				return nil, errors.New("boom")
			}).PipeTo(ctx.Self())
		case taskResult:
			results <- msg
		}
	}))

	select {
	case r := <-results:
		assert.Failf(t, "unexpected result", "%v", r)
	case <-time.After(100 * time.Millisecond):
	}
}
