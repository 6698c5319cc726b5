package util

import (
	"github.com/j9brown/victron-vebus/internal/config"

	"go.uber.org/zap"
)

// LoadTestConfig returns a valid configuration with delays short enough for
// tests.
func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel:          zap.DebugLevel,
		Format:            config.FORMAT_TEXT,
		DelayMillis:       5,
		OpenTimeoutMillis: 1000,
		MQTT: config.MQTTConfig{
			ClientId: "vebusctl_test",
			Qos:      1,
		},
	}
}
