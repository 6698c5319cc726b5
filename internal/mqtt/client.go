package mqtt

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/j9brown/victron-vebus/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	FRAME_KIND_AC     = "ac"
	FRAME_KIND_DC     = "dc"
	FRAME_KIND_LED    = "led"
	FRAME_KIND_CONFIG = "config"
	FRAME_KIND_STATE  = "state"
)

// Endpoint locates a VE.Bus gateway: the broker it is attached to and the
// base topic it publishes under.
type Endpoint struct {
	Broker    string
	BaseTopic string
	Username  string
	Password  string
}

func OptsFromConfig(cfg config.MQTTConfig, ep Endpoint) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(ep.Broker)

	clientId := cfg.ClientId
	if clientId == "" {
		clientId = fmt.Sprintf("vebusctl_%s", uuid.NewString())
	}
	opts.SetClientID(clientId)

	username, password := cfg.Username, cfg.Password
	if ep.Username != "" {
		username, password = ep.Username, ep.Password
	}
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	// one session per invocation: a lost connection ends it
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	// frames must reach the listener in arrival order
	opts.SetOrderMatters(true)

	return opts
}

func CreateMQTTClient(ep Endpoint, qos byte, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return WrapMQTTClient(mqtt.NewClient(opts), ep, qos)
}

// WrapMQTTClient adds the gateway topic layout of ep to an existing paho client.
func WrapMQTTClient(client mqtt.Client, ep Endpoint, qos byte) *MQTTClient {
	return &MQTTClient{
		client:           client,
		baseTopic:        ep.BaseTopic,
		qos:              qos,
		frameTopicRegexp: frameTopicExtractor(ep.BaseTopic),
	}
}

type MQTTClient struct {
	client           mqtt.Client
	baseTopic        string
	qos              byte
	frameTopicRegexp *regexp.Regexp
}

func (c *MQTTClient) Qos() byte {
	return c.qos
}

func (c *MQTTClient) FrameTopic(kind string) string {
	return fmt.Sprintf("%s/frame/%s", c.baseTopic, kind)
}

func (c *MQTTClient) RequestTopic(kind string) string {
	return fmt.Sprintf("%s/request/%s", c.baseTopic, kind)
}

// ParseFrameKind returns the frame kind a message was published for.
func (c *MQTTClient) ParseFrameKind(msg mqtt.Message) (string, error) {
	matches := c.frameTopicRegexp.FindAllStringSubmatch(msg.Topic(), 1)
	if len(matches) == 0 {
		return "", errors.New("invalid frame topic")
	}
	if len(matches[0]) != 2 {
		return "", errors.New("invalid frame topic")
	}
	return matches[0][1], nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToFrameTopics(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.framesTopic(), c.qos, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) framesTopic() string {
	return fmt.Sprintf("%s/frame/+", c.baseTopic)
}

func frameTopicExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/frame/([a-z]+)$", regexp.QuoteMeta(baseTopic)))
}
