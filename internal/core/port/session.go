package port

import (
	"context"

	"github.com/j9brown/victron-vebus/pkg/vebus"
)

// SessionOpener opens a session to the device named by deviceID. Failures are
// reported as *vebus.ConnectionError.
type SessionOpener func(ctx context.Context, deviceID string) (vebus.Session, error)
