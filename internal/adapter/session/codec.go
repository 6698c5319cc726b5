package session

import (
	"encoding/json"
	"fmt"

	"github.com/j9brown/victron-vebus/internal/mqtt"
	"github.com/j9brown/victron-vebus/pkg/vebus"
)

type acRequestPayload struct {
	Phase int `json:"phase"`
}

type stateRequestPayload struct {
	SwitchState  vebus.SwitchState `json:"switch_state"`
	CurrentLimit *float64          `json:"current_limit,omitempty"`
}

// DecodeFrame parses the JSON payload a gateway published on the frame topic
// of the given kind.
func DecodeFrame(kind string, payload []byte) (vebus.Frame, error) {
	switch kind {
	case mqtt.FRAME_KIND_AC:
		var f vebus.ACFrame
		err := json.Unmarshal(payload, &f)
		return f, err
	case mqtt.FRAME_KIND_DC:
		var f vebus.DCFrame
		err := json.Unmarshal(payload, &f)
		return f, err
	case mqtt.FRAME_KIND_LED:
		var f vebus.LEDFrame
		err := json.Unmarshal(payload, &f)
		return f, err
	case mqtt.FRAME_KIND_CONFIG:
		var f vebus.ConfigFrame
		err := json.Unmarshal(payload, &f)
		return f, err
	case mqtt.FRAME_KIND_STATE:
		// acknowledgments carry no data, any payload is accepted
		return vebus.StateFrame{}, nil
	default:
		return nil, fmt.Errorf("unknown frame kind %q", kind)
	}
}

// EncodeRequest returns the JSON payload published on the request topic
// named by req.RequestName().
func EncodeRequest(req vebus.Request) ([]byte, error) {
	switch r := req.(type) {
	case vebus.ACRequest:
		return json.Marshal(acRequestPayload{Phase: r.Phase})
	case vebus.StateRequest:
		return json.Marshal(stateRequestPayload{SwitchState: r.SwitchState, CurrentLimit: r.CurrentLimit})
	case vebus.LEDRequest, vebus.DCRequest, vebus.ConfigRequest:
		return []byte("{}"), nil
	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}
}
