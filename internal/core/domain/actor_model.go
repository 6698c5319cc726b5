package domain

import "github.com/j9brown/victron-vebus/pkg/vebus"

const (
	ACTOR_ID_CONTROLLER = "controller"
	ACTOR_ID_LISTENER   = "listener"
	ACTOR_ID_DISPLAY    = "display"
	ACTOR_ID_SERVER     = "server"
)

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

type GetDeviceStateRequest struct {
	ActorRequestMixIn
}

// GetDeviceStateResponse is a snapshot of what the controller knows about the
// device. Frames holds the latest frame of each kind, keyed by frame name.
type GetDeviceStateResponse struct {
	ActorResponseMixIn
	Device      string                 `json:"device"`
	Command     string                 `json:"command"`
	State       string                 `json:"state"`
	DeviceState DeviceState            `json:"device_state"`
	Frames      map[string]vebus.Frame `json:"frames"`
}
