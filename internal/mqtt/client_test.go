package mqtt

import (
	"testing"

	"github.com/j9brown/victron-vebus/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestFrameTopicParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "vebus/garage"
	topic := "vebus/garage/frame/config"
	r := frameTopicExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal("config", matches[0][1], "kind extract")
}

func TestFrameTopicParseFail(t *testing.T) {

	assert := assert.New(t)

	r := frameTopicExtractor("vebus")

	assert.Len(r.FindAllStringSubmatch("vebus/request/state", 1), 0, "request topic")
	assert.Len(r.FindAllStringSubmatch("other/frame/ac", 1), 0, "foreign base topic")
	assert.Len(r.FindAllStringSubmatch("vebus/frame/ac/extra", 1), 0, "nested topic")
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	ep := Endpoint{Broker: "tcp://localhost:1883", BaseTopic: "vebus"}
	c := CreateMQTTClient(ep, 1, OptsFromConfig(config.MQTTConfig{}, ep), nil, nil)

	assert.Equal("vebus/frame/ac", c.FrameTopic(FRAME_KIND_AC))
	assert.Equal("vebus/request/state", c.RequestTopic(FRAME_KIND_STATE))
	assert.Equal("vebus/frame/+", c.framesTopic())
	assert.Equal(byte(1), c.Qos())
}

func TestOptsFromConfig(t *testing.T) {

	assert := assert.New(t)

	ep := Endpoint{Broker: "tcp://localhost:1883", BaseTopic: "vebus"}
	opts := OptsFromConfig(config.MQTTConfig{Username: "cfg", Password: "secret"}, ep)
	assert.Equal("cfg", opts.Username)
	assert.False(opts.AutoReconnect)
	assert.True(opts.Order)
	assert.Contains(opts.ClientID, "vebusctl_")

	ep.Username = "url"
	ep.Password = "pw"
	opts = OptsFromConfig(config.MQTTConfig{ClientId: "fixed"}, ep)
	assert.Equal("url", opts.Username)
	assert.Equal("pw", opts.Password)
	assert.Equal("fixed", opts.ClientID)
}
