package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/j9brown/victron-vebus/internal/core/domain"
	"github.com/j9brown/victron-vebus/pkg/vebus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController answers like the controller actor does
type fakeController struct {
	healthy bool
}

func (f *fakeController) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_CONTROLLER, Healthy: f.healthy, State: "monitoring"})
	case domain.GetDeviceStateRequest:
		ctx.Respond(domain.GetDeviceStateResponse{
			Device:      "sim://",
			Command:     domain.COMMAND_MONITOR,
			State:       "monitoring",
			DeviceState: domain.DeviceState{ACNumPhases: 3},
			Frames: map[string]vebus.Frame{
				"ConfigFrame": vebus.ConfigFrame{SwitchState: vebus.SwitchStateOn, CurrentLimit: 16},
			},
		})
	}
}

func newTestServer(t *testing.T, healthy bool) (*Server, *actor.ActorSystem) {
	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &fakeController{healthy: healthy}
	}))
	t.Cleanup(as.Shutdown)
	return &Server{rootContext: as.Root, controllerActor: pid, askTimeout: time.Second}, as
}

func TestHealthCheck(t *testing.T) {

	s, _ := newTestServer(t, true)
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK (monitoring)", rec.Body.String())
}

func TestHealthCheckUnhealthy(t *testing.T) {

	s, _ := newTestServer(t, false)
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCheckControllerGone(t *testing.T) {

	s, as := newTestServer(t, true)
	as.Root.StopFuture(s.controllerActor).Wait()
	s.askTimeout = 100 * time.Millisecond

	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestState(t *testing.T) {

	s, _ := newTestServer(t, true)
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Device      string `json:"device"`
		State       string `json:"state"`
		DeviceState struct {
			ACNumPhases  int  `json:"ac_num_phases"`
			Acknowledged bool `json:"acknowledged"`
		} `json:"device_state"`
		Frames map[string]map[string]any `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sim://", body.Device)
	assert.Equal(t, 3, body.DeviceState.ACNumPhases)
	assert.Equal(t, "ON", body.Frames["ConfigFrame"]["switch_state"])
}
