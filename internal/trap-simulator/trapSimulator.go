package trap_simulator

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ladybugteam/ladybug-backend/internal/services/ingest"
	mq "github.com/ladybugteam/ladybug-backend/pkg/mqtt"
)

// TrapSimulator impersonates one field trap: it publishes CSV status payloads
// on a timer, re-announces its position every few cycles, and listens on the
// live alert topic to log the round trip.
type TrapSimulator struct {
	deviceID  string
	latitude  float64
	longitude float64

	generator *DataGenerator
	publisher mq.IPublisher
	consumer  mq.IConsumer
	logger    *zap.Logger
}

func NewTrapSimulator(deviceID string, lat, lon float64, consumer mq.IConsumer, publisher mq.IPublisher,
	gen *DataGenerator, logger *zap.Logger) *TrapSimulator {
	return &TrapSimulator{
		deviceID:  deviceID,
		latitude:  lat,
		longitude: lon,
		generator: gen,
		publisher: publisher,
		consumer:  consumer,
		logger:    logger,
	}
}

// Start publishes readings at the given interval until ctx is cancelled.
func (s *TrapSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleAlert)
		go s.consumer.ConsumeMessage(ctx)
	}

	// announce the position once at boot, like real firmware does
	s.publishLocation()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-time.After(interval):
			obs := s.generator.Next()
			topic := fmt.Sprintf("%s/%s/status", ingest.TopicNamespace, s.deviceID)
			payload := fmt.Sprintf("%d,%.1f,%d", obs.MothCount, obs.Temperature, obs.StatusCode)
			if err := s.publisher.PublishTo(topic, payload); err != nil {
				s.logger.Error("publish error", zap.Error(err))
			} else {
				s.logger.Info("published status",
					zap.String("device_id", s.deviceID),
					zap.Int("moth_count", obs.MothCount),
					zap.Int("status_code", obs.StatusCode))
			}

			// re-announce position every 20 cycles
			tick++
			if tick%20 == 0 {
				s.publishLocation()
			}
		}
	}
}

func (s *TrapSimulator) publishLocation() {
	topic := fmt.Sprintf("%s/%s/location", ingest.TopicNamespace, s.deviceID)
	payload := fmt.Sprintf("%.8f,%.8f", s.latitude, s.longitude)
	if err := s.publisher.PublishTo(topic, payload); err != nil {
		s.logger.Error("location publish error", zap.Error(err))
	}
}

func (s *TrapSimulator) handleAlert(topic string, msg mqtt.Message) error {
	s.logger.Info("alert received",
		zap.String("topic", topic),
		zap.ByteString("payload", msg.Payload()))
	return nil
}
