package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FORMAT_TEXT = "text"
	FORMAT_JSON = "json"
	FORMAT_YAML = "yaml"
)

type Config struct {
	LogLevel          zapcore.Level `mapstructure:"-"`
	Format            string        `mapstructure:"format"`
	DelayMillis       uint32        `mapstructure:"delay_millis"`
	OpenTimeoutMillis uint32        `mapstructure:"open_timeout_millis"`
	HttpPort          uint          `mapstructure:"http_port"`
	HttpLog           bool          `mapstructure:"http_log"`
	MQTT              MQTTConfig    `mapstructure:"mqtt"`
}

type MQTTConfig struct {
	Username string
	Password string
	ClientId string `mapstructure:"client_id"`
	Qos      byte   `mapstructure:"qos"`
}

// Delay is the pause after every request sent to the device
func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMillis) * time.Millisecond
}

func (c Config) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMillis) * time.Millisecond
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("format", FORMAT_TEXT)
	v.SetDefault("delay_millis", 2000)
	v.SetDefault("open_timeout_millis", 5000)
	v.SetDefault("http_port", 0)
	v.SetDefault("http_log", false)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.qos", 1)
}

// Load reads the configuration from the environment (VEBUS_*), from the yaml
// file named by configFile or CONFIG_FILE when set, and from any flags
// already bound to v.
func Load(v *viper.Viper, configFile string) (*Config, error) {

	SetDefaults(v)

	v.SetEnvPrefix("vebus")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// if defined, try to load config from yaml file
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		slog.Debug("Using config", "file", configFile)
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	level, err := ParseLogLevel(v.GetString("log_level"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Format = strings.ToLower(cfg.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.Format {
	case FORMAT_TEXT, FORMAT_JSON, FORMAT_YAML:
	default:
		return fmt.Errorf("config param format must be one of text, json, yaml (got %q)", c.Format)
	}
	if c.DelayMillis < 1 {
		return errors.New("config param delay_millis should be >= 1")
	}
	if c.OpenTimeoutMillis < 100 {
		return errors.New("config param open_timeout_millis should be >= 100")
	}
	if c.HttpPort > 65535 {
		return errors.New("config param http_port should be <= 65535")
	}
	if c.MQTT.Qos > 2 {
		return errors.New("config param mqtt.qos should be 0, 1 or 2")
	}
	return nil
}

func ParseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return zap.DebugLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	case "fatal":
		return zap.FatalLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
}

// CheckMQTTTopic validates a gateway base topic such as "vebus/garage".
func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(strings.Trim(baseTopic, "/"))
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_-]+(/[a-z0-9_-]+)*$")
	if !baseTopicRegexp.MatchString(lowerBaseTopic) {
		return "", errors.New("invalid topic. can only contain letters, numbers, dashes, underscores and slashes")
	}
	return lowerBaseTopic, nil
}

// Redacted returns a copy safe to log
func (c Config) Redacted() Config {
	if c.MQTT.Username != "" {
		c.MQTT.Username = "*redacted*"
	}
	if c.MQTT.Password != "" {
		c.MQTT.Password = "*redacted*"
	}
	return c
}
