package mqtt

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// IConsumer defines a topic subscription with an injectable message handler.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// Consumer subscribes to a single topic on a shared client and forwards every
// message to the injected handler.
type Consumer struct {
	client  mqtt.Client
	handler func(topic string, message mqtt.Message) error
	topic   string
	logger  *zap.Logger
}

func NewConsumer(client mqtt.Client, topic string, handler func(topic string, message mqtt.Message) error, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		handler: handler,
		logger:  logger,
	}
}

func (c *Consumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	c.handler = handler
}

// QoSFor picks the per-topic QoS: alert fan-out and the legacy aggregate topic
// ride QoS 1 (at-least-once), raw telemetry stays on QoS 0.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "ladybug/alerts") || strings.HasPrefix(t, "trapdata") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes and blocks until the context is cancelled, then
// unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(
		c.topic,
		QoSFor(c.topic),
		func(client mqtt.Client, message mqtt.Message) {
			if c.handler == nil {
				c.logger.Warn("no handler set", zap.String("topic", c.topic))
				return
			}
			if err := c.handler(message.Topic(), message); err != nil {
				c.logger.Error("message handler error", zap.String("topic", c.topic), zap.Error(err))
			}
		},
	)

	if token.Wait() && token.Error() != nil {
		c.logger.Error("subscribe error", zap.String("topic", c.topic), zap.Error(token.Error()))
		return
	}
	c.logger.Info("subscribed", zap.String("topic", c.topic))

	<-ctx.Done()

	unsubToken := c.client.Unsubscribe(c.topic)
	unsubToken.Wait()
}
