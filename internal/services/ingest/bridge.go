package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	mq "github.com/ladybugteam/ladybug-backend/pkg/mqtt"
)

// BridgeState is the connection lifecycle state.
type BridgeState int32

const (
	StateDisconnected BridgeState = iota
	StateConnecting
	StateConnected
)

func (s BridgeState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Wildcard subscriptions covering every trap plus the legacy aggregate topic.
func DefaultTopics() []string {
	return []string{
		TopicNamespace + "/+/status",
		TopicNamespace + "/+/location",
		LegacyAggregateTopic,
	}
}

// Bridge owns the broker connection lifecycle. It connects with capped
// exponential backoff, (re)subscribes the trap topics on every connect and
// hands each inbound message to the pipeline untouched; decoding is the
// codec's job. The bridge retries forever and only stops with the context.
type Bridge struct {
	cfg             *mq.Config
	topics          []string
	pipeline        *Pipeline
	logger          *zap.Logger
	dispatchTimeout time.Duration

	// mu guards client: written by the supervisor goroutine, read by the
	// health handlers.
	mu     sync.Mutex
	client mqtt.Client
	state  atomic.Int32
	lost   chan error
}

func NewBridge(cfg *mq.Config, topics []string, pl *Pipeline, logger *zap.Logger) *Bridge {
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	return &Bridge{
		cfg:             cfg,
		topics:          topics,
		pipeline:        pl,
		logger:          logger,
		dispatchTimeout: 10 * time.Second,
		lost:            make(chan error, 1),
	}
}

func (b *Bridge) State() BridgeState {
	return BridgeState(b.state.Load())
}

func (b *Bridge) Connected() bool {
	c := b.getClient()
	return c != nil && c.IsConnectionOpen()
}

func (b *Bridge) setClient(c mqtt.Client) {
	b.mu.Lock()
	b.client = c
	b.mu.Unlock()
}

func (b *Bridge) getClient() mqtt.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// Run drives the reconnect state machine until ctx is cancelled. On shutdown
// the connection is closed cleanly so in-flight pipeline calls can finish.
func (b *Bridge) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // never give up

	for {
		b.state.Store(int32(StateConnecting))
		if err := b.connect(); err != nil {
			b.state.Store(int32(StateDisconnected))
			wait := bo.NextBackOff()
			b.logger.Warn("broker connect failed",
				zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}
		bo.Reset()
		b.state.Store(int32(StateConnected))
		b.logger.Info("broker connected", zap.String("addr", b.cfg.BrokerURL()))
		b.subscribeAll()

		select {
		case <-ctx.Done():
			b.shutdown()
			return
		case err := <-b.lost:
			b.state.Store(int32(StateDisconnected))
			bridgeReconnects.Inc()
			b.logger.Warn("broker connection lost", zap.Error(err))
		}
	}
}

func (b *Bridge) connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.BrokerURL())
	opts.SetUsername(b.cfg.User)
	opts.SetPassword(b.cfg.Password)
	// unique suffix so a restarted instance doesn't steal its own session
	opts.SetClientID(b.cfg.ClientID + "-" + uuid.NewString()[:8])
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	// reconnection is the supervisor loop's job, not paho's
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		select {
		case b.lost <- err:
		default:
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	b.setClient(client)
	return nil
}

// subscribeAll subscribes every configured topic with a bounded number of
// immediate retries. A topic that still fails is logged and picked up on the
// next reconnect cycle; it does not itself force a reconnect.
func (b *Bridge) subscribeAll() {
	client := b.getClient()
	if client == nil {
		return
	}
	const attempts = 3
	for _, topic := range b.topics {
		var err error
		for i := 0; i < attempts; i++ {
			token := client.Subscribe(topic, mq.QoSFor(topic), b.onMessage)
			token.Wait()
			if err = token.Error(); err == nil {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if err != nil {
			b.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		b.logger.Info("subscribed", zap.String("topic", topic))
	}
}

func (b *Bridge) onMessage(_ mqtt.Client, m mqtt.Message) {
	b.dispatch(m.Topic(), m.Payload())
}

// Inject feeds a synthetic message through the same dispatch path as a live
// broker delivery, so tests and operator tooling can exercise the pipeline
// without a broker.
func (b *Bridge) Inject(topic string, payload []byte) {
	b.dispatch(topic, payload)
}

func (b *Bridge) dispatch(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), b.dispatchTimeout)
	defer cancel()
	b.pipeline.HandleMessage(ctx, topic, payload)
}

func (b *Bridge) shutdown() {
	b.state.Store(int32(StateDisconnected))
	client := b.getClient()
	if client == nil {
		return
	}
	if client.IsConnected() {
		token := client.Unsubscribe(b.topics...)
		token.WaitTimeout(2 * time.Second)
		client.Disconnect(250)
	}
	b.logger.Info("broker bridge stopped")
}
