package session

import (
	"context"
	"fmt"
	"net/url"

	"github.com/j9brown/victron-vebus/internal/config"
	"github.com/j9brown/victron-vebus/internal/core/port"
	"github.com/j9brown/victron-vebus/pkg/vebus"

	"go.uber.org/zap"
)

const SCHEME_SIMULATED = "sim"

// NewOpener returns the opener used by the controller. Device ids are URLs,
// the scheme selects the transport.
func NewOpener(cfg config.Config, logger *zap.Logger) port.SessionOpener {
	return func(ctx context.Context, deviceID string) (vebus.Session, error) {
		return Open(ctx, cfg, deviceID, logger)
	}
}

func Open(ctx context.Context, cfg config.Config, deviceID string, logger *zap.Logger) (vebus.Session, error) {
	u, err := url.Parse(deviceID)
	if err != nil {
		return nil, &vebus.ConnectionError{Device: deviceID, Err: err}
	}
	switch u.Scheme {
	case SCHEME_SIMULATED:
		s, err := vebus.NewSimulatedSessionFromURL(u)
		if err != nil {
			return nil, &vebus.ConnectionError{Device: deviceID, Err: err}
		}
		logger.Debug("opened simulated session", zap.String("device", deviceID))
		return s, nil
	case "mqtt", "mqtts", "tcp", "ssl", "ws", "wss":
		return OpenMQTTSession(ctx, cfg, deviceID, u, logger)
	case "":
		return nil, &vebus.ConnectionError{Device: deviceID, Err: fmt.Errorf("device id must be a URL such as sim:// or mqtt://host/topic")}
	default:
		return nil, &vebus.ConnectionError{Device: deviceID, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}
