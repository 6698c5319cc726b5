package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorWithStates switches the actor behavior between named states and
// remembers which one is active.
type ActorWithStates struct {
	Behavior actor.Behavior
	current  ActorState
}

type ActorState interface {
	Name() string
	Receive(actor.Context)
}

func (s *ActorWithStates) Become(state ActorState) {
	s.current = state
	s.Behavior.Become(state.Receive)
}

// StateName is the name of the active state, "" before the first Become.
func (s *ActorWithStates) StateName() string {
	if s.current == nil {
		return ""
	}
	return s.current.Name()
}
