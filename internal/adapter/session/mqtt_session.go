package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/j9brown/victron-vebus/internal/config"
	"github.com/j9brown/victron-vebus/internal/mqtt"
	"github.com/j9brown/victron-vebus/pkg/vebus"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	publishTimeout    = 5 * time.Second
	disconnectTimeout = 250 * time.Millisecond
)

// MQTTSession talks to a VE.Bus device through a gateway that relays frames
// and requests over MQTT.
type MQTTSession struct {
	device string
	client *mqtt.MQTTClient
	logger *zap.Logger

	mu     sync.Mutex
	closed bool

	frames    chan vebus.Frame
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	stopOnce  sync.Once
}

// EndpointFromURL maps mqtt://[user:pass@]host:port/base/topic to a gateway
// endpoint. mqtts is an alias of ssl, the other paho schemes pass through.
func EndpointFromURL(u *url.URL) (mqtt.Endpoint, error) {
	scheme := u.Scheme
	switch scheme {
	case "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	case "tcp", "ssl", "ws", "wss":
	default:
		return mqtt.Endpoint{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return mqtt.Endpoint{}, fmt.Errorf("missing broker host")
	}
	host := u.Host
	if u.Port() == "" {
		if scheme == "ssl" {
			host += ":8883"
		} else if scheme == "tcp" {
			host += ":1883"
		}
	}
	baseTopic, err := config.CheckMQTTTopic(strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return mqtt.Endpoint{}, fmt.Errorf("base topic: %w", err)
	}
	ep := mqtt.Endpoint{
		Broker:    fmt.Sprintf("%s://%s", scheme, host),
		BaseTopic: baseTopic,
	}
	if u.User != nil {
		ep.Username = u.User.Username()
		ep.Password, _ = u.User.Password()
	}
	return ep, nil
}

// OpenMQTTSession connects to the broker and subscribes to the gateway frame
// topics. It fails with a *vebus.ConnectionError.
func OpenMQTTSession(ctx context.Context, cfg config.Config, device string, u *url.URL, logger *zap.Logger) (*MQTTSession, error) {
	ep, err := EndpointFromURL(u)
	if err != nil {
		return nil, &vebus.ConnectionError{Device: device, Err: err}
	}

	s := newMQTTSession(device, ep, logger)
	s.client = mqtt.CreateMQTTClient(ep, cfg.MQTT.Qos, mqtt.OptsFromConfig(cfg.MQTT, ep), nil, s.onConnectionLost)

	timeout := cfg.OpenTimeout()

	if err := await(ctx, func(cont func(error)) { s.client.Connect(cont, timeout) }); err != nil {
		return nil, &vebus.ConnectionError{Device: device, Err: err}
	}
	s.logger.Debug("mqtt session connected")

	if err := await(ctx, func(cont func(error)) { s.client.SubscribeToFrameTopics(s.onMessage, cont, timeout) }); err != nil {
		s.client.Disconnect(disconnectTimeout)
		return nil, &vebus.ConnectionError{Device: device, Err: err}
	}
	s.logger.Debug("mqtt session subscribed")

	return s, nil
}

func newMQTTSession(device string, ep mqtt.Endpoint, logger *zap.Logger) *MQTTSession {
	return &MQTTSession{
		device:  device,
		logger:  logger.With(zap.String("device", ep.Broker), zap.String("base_topic", ep.BaseTopic)),
		frames:  make(chan vebus.Frame, 16),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// await blocks on a continuation style client call
func await(ctx context.Context, call func(func(error))) error {
	result := make(chan error, 1)
	call(func(err error) {
		result <- err
	})
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onConnectionLost ends the session, auto reconnect is off
func (s *MQTTSession) onConnectionLost(_ pahomqtt.Client, err error) {
	s.logger.Warn("mqtt session connection lost", zap.Error(err))
	s.stopFrames()
}

func (s *MQTTSession) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	kind, err := s.client.ParseFrameKind(msg)
	if err != nil {
		s.logger.Debug("mqtt session ignoring message", zap.String("topic", msg.Topic()))
		return
	}
	frame, err := DecodeFrame(kind, msg.Payload())
	if err != nil {
		s.logger.Warn("mqtt session cannot decode frame", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.frames <- frame:
	case <-s.closing:
	}
}

func (s *MQTTSession) send(req vebus.Request) error {
	payload, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return vebus.ErrSessionClosed
	}
	topic := s.client.RequestTopic(req.RequestName())
	s.client.Publish(topic, payload, s.client.Qos(), false, func(err error) {
		if err != nil {
			s.logger.Warn("mqtt session publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}, publishTimeout)
	return nil
}

func (s *MQTTSession) SendLEDRequest() error {
	return s.send(vebus.LEDRequest{})
}

func (s *MQTTSession) SendDCRequest() error {
	return s.send(vebus.DCRequest{})
}

func (s *MQTTSession) SendACRequest(phase int) error {
	return s.send(vebus.ACRequest{Phase: phase})
}

func (s *MQTTSession) SendConfigRequest() error {
	return s.send(vebus.ConfigRequest{})
}

func (s *MQTTSession) SendStateRequest(state vebus.SwitchState, currentLimit *float64) error {
	return s.send(vebus.StateRequest{SwitchState: state, CurrentLimit: currentLimit})
}

func (s *MQTTSession) Frames() <-chan vebus.Frame {
	return s.frames
}

// stopFrames ends the frame stream without touching the broker connection
func (s *MQTTSession) stopFrames() {
	s.stopOnce.Do(func() {
		close(s.closing)
		s.mu.Lock()
		s.closed = true
		close(s.frames)
		s.mu.Unlock()
	})
}

func (s *MQTTSession) Close() error {
	s.closeOnce.Do(func() {
		s.stopFrames()
		go func() {
			s.client.Disconnect(disconnectTimeout)
			s.logger.Debug("mqtt session disconnected")
			close(s.done)
		}()
	})
	return nil
}

func (s *MQTTSession) WaitClosed(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensure interface compliance
var _ vebus.Session = (*MQTTSession)(nil)
