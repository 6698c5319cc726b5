package vebus

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedSessionFromURL(t *testing.T) {

	u, err := url.Parse("sim://?phases=3&ack_after=2&silent=false")
	require.NoError(t, err)
	s, err := NewSimulatedSessionFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, SimulatedOptions{Phases: 3, AckAfter: 2}, s.opts)

	u, _ = url.Parse("sim://")
	s, err = NewSimulatedSessionFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, 1, s.opts.Phases)

	for _, bad := range []string{"sim://?phases=x", "sim://?ack_after=-1", "sim://?silent=maybe"} {
		u, _ = url.Parse(bad)
		_, err = NewSimulatedSessionFromURL(u)
		assert.Error(t, err, bad)
	}
}

func TestSimulatedSessionAnswers(t *testing.T) {

	s := NewSimulatedSession(SimulatedOptions{Phases: 3})
	defer s.Close()

	require.NoError(t, s.SendACRequest(2))
	frame := <-s.Frames()
	ac, ok := frame.(ACFrame)
	require.True(t, ok)
	assert.Equal(t, 2, ac.Phase)
	assert.Equal(t, 3, ac.NumPhases)

	limit := 8.0
	require.NoError(t, s.SendStateRequest(SwitchStateChargerOnly, &limit))
	require.NoError(t, s.SendConfigRequest())
	frame = <-s.Frames()
	cfg, ok := frame.(ConfigFrame)
	require.True(t, ok, "state request must not be acknowledged when ack_after is 0")
	assert.Equal(t, SwitchStateChargerOnly, cfg.SwitchState)
	assert.Equal(t, 8.0, cfg.CurrentLimit)
}

func TestSimulatedSessionAcknowledgesAfter(t *testing.T) {

	s := NewSimulatedSession(SimulatedOptions{Phases: 1, AckAfter: 2})
	defer s.Close()

	require.NoError(t, s.SendStateRequest(SwitchStateOff, nil))
	require.NoError(t, s.SendStateRequest(SwitchStateOff, nil))

	select {
	case frame := <-s.Frames():
		assert.Equal(t, StateFrame{}, frame)
	case <-time.After(time.Second):
		t.Fatal("no acknowledgment")
	}
	assert.Len(t, s.Requests(), 2)
	assert.Nil(t, s.Requests()[0].(StateRequest).CurrentLimit)
}

func TestSimulatedSessionClose(t *testing.T) {

	s := NewSimulatedSession(SimulatedOptions{Silent: true})
	require.NoError(t, s.SendLEDRequest())
	assert.False(t, s.IsClosed())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.IsClosed())

	_, open := <-s.Frames()
	assert.False(t, open, "frames must be closed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.WaitClosed(ctx))

	assert.ErrorIs(t, s.SendDCRequest(), ErrSessionClosed)
	assert.ErrorIs(t, s.Inject(DCFrame{}), ErrSessionClosed)
	assert.Len(t, s.Requests(), 1)
}

func TestSimulatedSessionCloseUnblocksSender(t *testing.T) {

	s := NewSimulatedSession(SimulatedOptions{})
	// nobody reads frames, fill the buffer
	done := make(chan error)
	go func() {
		for {
			if err := s.Inject(LEDFrame{}); err != nil {
				done <- err
				return
			}
		}
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("sender still blocked after close")
	}
}
