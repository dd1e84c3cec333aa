package mqtt

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// IPublisher publishes messages to the broker.
type IPublisher interface {
	PublishMessage(message string) error
	PublishTo(topic string, message string) error
	Close()
}

// Publisher publishes on a default topic over a shared client. PublishTo
// overrides the topic per call, which the ingest service uses for the
// per-farm alert topics.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

func NewPublisher(client mqtt.Client, topic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// PublishMessage publishes on the default topic.
func (p *Publisher) PublishMessage(message string) error {
	return p.PublishTo(p.topic, message)
}

// PublishTo publishes on an explicit topic with the per-topic QoS.
func (p *Publisher) PublishTo(topic string, message string) error {
	token := p.client.Publish(topic, QoSFor(topic), false, message)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	p.logger.Debug("published", zap.String("topic", topic), zap.Int("bytes", len(message)))
	return nil
}

// Close gracefully closes the shared MQTT connection.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// ReconnectPublisher dials the broker lazily, on the first publish, and
// survives outages: a broker that is down at boot or dies later just makes
// publishes fail until it comes back, at which point the next call redials.
// Transport errors are never fatal to the owning process.
type ReconnectPublisher struct {
	cfg            *Config
	topic          string
	logger         *zap.Logger
	connectTimeout time.Duration

	mu     sync.Mutex
	client mqtt.Client
}

func NewReconnectPublisher(cfg *Config, topic string, logger *zap.Logger) *ReconnectPublisher {
	return &ReconnectPublisher{
		cfg:            cfg,
		topic:          topic,
		logger:         logger,
		connectTimeout: 5 * time.Second,
	}
}

// PublishMessage publishes on the default topic.
func (p *ReconnectPublisher) PublishMessage(message string) error {
	return p.PublishTo(p.topic, message)
}

// PublishTo publishes on an explicit topic, dialing first if needed. A failed
// publish drops the cached connection so the next call starts fresh.
func (p *ReconnectPublisher) PublishTo(topic string, message string) error {
	client, err := p.connected()
	if err != nil {
		return err
	}
	token := client.Publish(topic, QoSFor(topic), false, message)
	token.Wait()
	if token.Error() != nil {
		p.drop()
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	p.logger.Debug("published", zap.String("topic", topic), zap.Int("bytes", len(message)))
	return nil
}

func (p *ReconnectPublisher) connected() (mqtt.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnectionOpen() {
		return p.client, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.BrokerURL())
	opts.SetUsername(p.cfg.User)
	opts.SetPassword(p.cfg.Password)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(p.connectTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("publisher connect: %w", token.Error())
	}
	p.logger.Info("publisher connected", zap.String("addr", p.cfg.BrokerURL()))
	p.client = client
	return client, nil
}

func (p *ReconnectPublisher) drop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Disconnect(0)
		p.client = nil
	}
}

// Close gracefully closes the connection if one was ever established.
func (p *ReconnectPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.client = nil
}
