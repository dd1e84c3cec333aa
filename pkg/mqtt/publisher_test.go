package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQoSFor(t *testing.T) {
	assert.Equal(t, byte(1), QoSFor("ladybug/alerts/farm-7"))
	assert.Equal(t, byte(1), QoSFor("trapdata"))
	assert.Equal(t, byte(0), QoSFor("ladybug/trap1/status"))
	assert.Equal(t, byte(0), QoSFor("ladybug/trap1/location"))
}

func TestReconnectPublisherUnreachableBroker(t *testing.T) {
	p := NewReconnectPublisher(&Config{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		ClientID: "test-pub",
	}, "ladybug/alerts/farm-1", zap.NewNop())
	p.connectTimeout = 200 * time.Millisecond

	err := p.PublishTo("ladybug/alerts/farm-1", "hello")
	require.Error(t, err)

	// the failed dial leaves no cached client behind; the next call redials
	// and fails again instead of panicking on a dead connection
	err = p.PublishMessage("hello again")
	require.Error(t, err)

	p.Close()
}
