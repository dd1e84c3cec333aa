package ingest

import (
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ladybugteam/ladybug-backend/internal/model"
	mq "github.com/ladybugteam/ladybug-backend/pkg/mqtt"
)

type stubToken struct{}

func (stubToken) Wait() bool                     { return true }
func (stubToken) WaitTimeout(time.Duration) bool { return true }
func (stubToken) Error() error                   { return nil }
func (stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type stubClient struct{ open bool }

func (c *stubClient) IsConnected() bool                { return c.open }
func (c *stubClient) IsConnectionOpen() bool           { return c.open }
func (c *stubClient) Connect() mqtt.Token              { return stubToken{} }
func (c *stubClient) Disconnect(uint)                  {}
func (c *stubClient) AddRoute(string, mqtt.MessageHandler) {}
func (c *stubClient) Publish(string, byte, bool, interface{}) mqtt.Token {
	return stubToken{}
}
func (c *stubClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return stubToken{}
}
func (c *stubClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return stubToken{}
}
func (c *stubClient) Unsubscribe(...string) mqtt.Token { return stubToken{} }
func (c *stubClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func TestDefaultTopics(t *testing.T) {
	topics := DefaultTopics()
	assert.Equal(t, []string{"ladybug/+/status", "ladybug/+/location", "trapdata"}, topics)
}

func TestBridgeStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
}

// Connected and the supervisor's client swap must be safe to run
// concurrently; the health handlers poll while Run reconnects.
func TestBridgeClientAccessIsSynchronized(t *testing.T) {
	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				b.Connected()
				b.State()
			}
		}()
	}
	for j := 0; j < 500; j++ {
		b.setClient(&stubClient{open: true})
		b.setClient(nil)
	}
	b.setClient(&stubClient{open: true})
	wg.Wait()

	assert.True(t, b.Connected())
}

func TestBridgeStartsDisconnected(t *testing.T) {
	f := newFixture(t)
	b := NewBridge(&mq.Config{Host: "localhost", Port: 1883, ClientID: "test"}, nil, f.pipeline, zap.NewNop())

	assert.Equal(t, StateDisconnected, b.State())
	assert.False(t, b.Connected())
}

// Inject must exercise the exact pipeline path a live delivery takes.
func TestBridgeInjectDispatchesToPipeline(t *testing.T) {
	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())

	b.Inject("ladybug/trap7/status", []byte("25,31.5,3"))

	require.Len(t, f.alerts.upserts, 1)
	assert.Equal(t, model.LevelRed, f.alerts.upserts[0].Level)
	require.Len(t, f.readings.appended, 1)
}

func TestBridgeInjectMalformedIsSwallowed(t *testing.T) {
	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())

	// must not panic, must not mutate anything
	b.Inject("garbage", []byte("1,2,3"))
	b.Inject("ladybug/trap7/status", []byte("nope"))

	assert.Empty(t, f.alerts.upserts)
	assert.Empty(t, f.readings.appended)
}
