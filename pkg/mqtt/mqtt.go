package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config holds the broker connection parameters shared by all clients.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// BrokerURL returns the tcp:// address for the paho client.
func (c *Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// NewConn establishes a broker connection, retrying the initial connect with
// exponential backoff. The connection is closed when ctx is cancelled.
// Used by the trap simulator; the ingest bridge manages its own client so it
// can drive the reconnect state machine itself.
func NewConn(cfg *Config, ctx context.Context, logger *zap.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Warn("broker connect attempt failed", zap.Error(token.Error()))
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, uint64(maxRetries-1)))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	logger.Info("connected to MQTT broker", zap.String("addr", cfg.BrokerURL()))

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		logger.Info("MQTT connection closed")
	}()

	return client, nil
}

// CloseConn disconnects the client if it is still connected.
func CloseConn(client mqtt.Client) {
	if client.IsConnected() {
		client.Disconnect(250)
	}
}
