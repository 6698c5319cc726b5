package actor

import (
	"testing"
	"time"

	"github.com/j9brown/victron-vebus/pkg/vebus"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestListenerDispatchesInOrder(t *testing.T) {

	frames := make(chan vebus.Frame, 4)
	var got []vebus.Frame
	l := NewListener(frames, func(f vebus.Frame) {
		got = append(got, f)
	}, zap.NewNop())
	l.Start()

	frames <- vebus.LEDFrame{}
	frames <- vebus.ACFrame{Phase: 1}
	frames <- vebus.StateFrame{}
	close(frames)

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("listener did not end")
	}
	assert.Equal(t, []vebus.Frame{vebus.LEDFrame{}, vebus.ACFrame{Phase: 1}, vebus.StateFrame{}}, got)
}

func TestListenerEndsWithStream(t *testing.T) {

	frames := make(chan vebus.Frame)
	l := NewListener(frames, func(vebus.Frame) {}, zap.NewNop())
	l.Expect()
	l.Start()
	close(frames)

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("listener did not end")
	}
}
