package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {

	assert := assert.New(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(zap.WarnLevel, cfg.LogLevel)
	assert.Equal(FORMAT_TEXT, cfg.Format)
	assert.Equal(uint32(2000), cfg.DelayMillis)
	assert.Equal("2s", cfg.Delay().String())
	assert.Equal(uint(0), cfg.HttpPort)
	assert.Equal(byte(1), cfg.MQTT.Qos)
}

func TestLoadFromEnv(t *testing.T) {

	t.Setenv("VEBUS_DELAY_MILLIS", "25")
	t.Setenv("VEBUS_LOG_LEVEL", "debug")
	t.Setenv("VEBUS_FORMAT", "JSON")
	t.Setenv("VEBUS_MQTT_USERNAME", "victron")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, uint32(25), cfg.DelayMillis)
	assert.Equal(t, zap.DebugLevel, cfg.LogLevel)
	assert.Equal(t, FORMAT_JSON, cfg.Format)
	assert.Equal(t, "victron", cfg.MQTT.Username)
}

func TestLoadFromFile(t *testing.T) {

	file := filepath.Join(t.TempDir(), "vebus.yaml")
	err := os.WriteFile(file, []byte("format: yaml\nhttp_port: 8080\nmqtt:\n  client_id: garage\n  qos: 0\n"), 0o600)
	require.NoError(t, err)

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, FORMAT_YAML, cfg.Format)
	assert.Equal(t, uint(8080), cfg.HttpPort)
	assert.Equal(t, "garage", cfg.MQTT.ClientId)
	assert.Equal(t, byte(0), cfg.MQTT.Qos)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {

	v := viper.New()
	v.Set("delay_millis", 0)
	_, err := Load(v, "")
	assert.Error(t, err, "zero delay")

	v = viper.New()
	v.Set("format", "xml")
	_, err = Load(v, "")
	assert.Error(t, err, "unknown format")

	v = viper.New()
	v.Set("log_level", "loud")
	_, err = Load(v, "")
	assert.Error(t, err, "unknown log level")
}

func TestCheckMQTTTopic(t *testing.T) {

	topic, err := CheckMQTTTopic("/VEBus/Garage/")
	require.NoError(t, err)
	assert.Equal(t, "vebus/garage", topic)

	_, err = CheckMQTTTopic("vebus/#")
	assert.Error(t, err)
	_, err = CheckMQTTTopic("")
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {

	cfg := Config{MQTT: MQTTConfig{Username: "u", Password: "p"}}
	r := cfg.Redacted()
	assert.Equal(t, "*redacted*", r.MQTT.Password)
	assert.Equal(t, "p", cfg.MQTT.Password)
}
