package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ladybugteam/ladybug-backend/internal/model"
	mq "github.com/ladybugteam/ladybug-backend/pkg/mqtt"
)

// Pipeline turns one raw broker message into all of its side effects:
// decode -> resolve device -> classify -> append reading -> upsert alert ->
// cache -> notify on red -> fan out. Each storage step runs in its own error
// boundary; a failed append never blocks the alert upsert and vice versa.
// No failure here is ever fatal to the process.
type Pipeline struct {
	registry   DeviceRegistry
	classifier *Classifier
	readings   ReadingStore
	alerts     AlertStore
	cache      *StateCache
	notifier   Notifier
	hub        *Hub
	publisher  mq.IPublisher
	alertTopic string // template, {farm} replaced per message
	logger     *zap.Logger
	now        func() time.Time
}

// PipelineDeps wires the pipeline's collaborators. Notifier, Hub and
// Publisher are optional; registry, stores, classifier and cache are not.
type PipelineDeps struct {
	Registry   DeviceRegistry
	Classifier *Classifier
	Readings   ReadingStore
	Alerts     AlertStore
	Cache      *StateCache
	Notifier   Notifier
	Hub        *Hub
	Publisher  mq.IPublisher
	AlertTopic string
	Logger     *zap.Logger
}

const defaultAlertTopicTmpl = "ladybug/alerts/{farm}"

func NewPipeline(d PipelineDeps) (*Pipeline, error) {
	if d.Registry == nil {
		return nil, errors.New("device registry is nil")
	}
	if d.Readings == nil || d.Alerts == nil {
		return nil, errors.New("stores are nil")
	}
	if d.Classifier == nil {
		d.Classifier = NewClassifier(0, 0)
	}
	if d.Cache == nil {
		d.Cache = NewStateCache()
	}
	if d.AlertTopic == "" {
		d.AlertTopic = defaultAlertTopicTmpl
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Pipeline{
		registry:   d.Registry,
		classifier: d.Classifier,
		readings:   d.Readings,
		alerts:     d.Alerts,
		cache:      d.Cache,
		notifier:   d.Notifier,
		hub:        d.Hub,
		publisher:  d.Publisher,
		alertTopic: d.AlertTopic,
		logger:     d.Logger,
		now:        time.Now,
	}, nil
}

// HandleMessage is the single entry point for bridge dispatch and the legacy
// webhook. Undecodable messages are dropped here; the device resends on its
// own cadence, so there is no retry.
func (p *Pipeline) HandleMessage(ctx context.Context, topic string, payload []byte) {
	msg, err := Decode(topic, payload)
	if err != nil {
		ingestMessages.WithLabelValues(outcomeDecodeError).Inc()
		p.logger.Warn("dropping undecodable message",
			zap.String("topic", topic), zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case model.LocationMessage:
		p.handleLocation(ctx, m)
	case model.StatusMessage:
		p.handleReading(ctx, readingInput{
			deviceID:    m.DeviceID,
			mothCount:   m.MothCount,
			temperature: m.Temperature,
			level:       LevelFromStatusCode(m.StatusCode),
			hasLevel:    true,
		})
	case model.LegacyMessage:
		p.handleReading(ctx, readingInput{
			deviceID:     m.DeviceID,
			mothCount:    m.MothCount,
			temperature:  m.Temperature,
			degreeDays:   m.DegreeDays,
			larvaDensity: m.LarvaDensity,
			level:        m.Status,
			hasLevel:     m.HasStatus,
		})
	}
}

// resolveFarm looks the device up and records the drop outcomes. Unregistered
// devices are common right after field deployment; dropping is expected, not
// an error.
func (p *Pipeline) resolveFarm(ctx context.Context, deviceID string) (string, bool) {
	farmID, ok, err := p.registry.Lookup(ctx, deviceID)
	if err != nil {
		ingestMessages.WithLabelValues(outcomeLookupError).Inc()
		p.logger.Error("registry lookup failed", zap.String("device_id", deviceID), zap.Error(err))
		return "", false
	}
	if !ok {
		ingestMessages.WithLabelValues(outcomeUnknownDev).Inc()
		p.logger.Warn("dropping message from unregistered device", zap.String("device_id", deviceID))
		return "", false
	}
	return farmID, true
}

func (p *Pipeline) handleLocation(ctx context.Context, m model.LocationMessage) {
	farmID, ok := p.resolveFarm(ctx, m.DeviceID)
	if !ok {
		return
	}

	loc := model.FarmLocation{
		FarmID:    farmID,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		UpdatedAt: p.now(),
	}
	p.bestEffort("farm location update", func() error {
		return p.alerts.UpdateFarmLocation(ctx, loc)
	})
	p.cache.PutLocation(loc)
	p.fanOut(model.TrapEvent{
		ID:        uuid.NewString(),
		Type:      model.EventLocation,
		DeviceID:  m.DeviceID,
		FarmID:    farmID,
		Data:      loc,
		Timestamp: loc.UpdatedAt,
	})
	ingestMessages.WithLabelValues(outcomeLocation).Inc()
}

type readingInput struct {
	deviceID     string
	mothCount    int
	temperature  float64
	degreeDays   *float64
	larvaDensity *float64
	level        model.AlertLevel
	hasLevel     bool
}

// alertEventData is the payload of an "alert" fan-out event.
type alertEventData struct {
	Level   model.AlertLevel `json:"alert_level"`
	Reading model.Reading    `json:"reading"`
}

func (p *Pipeline) handleReading(ctx context.Context, in readingInput) {
	farmID, ok := p.resolveFarm(ctx, in.deviceID)
	if !ok {
		return
	}

	// The hardware label, when present, wins over a threshold recompute.
	level := in.level
	if !in.hasLevel {
		level = p.classifier.ClassifyCount(in.mothCount)
	}

	now := p.now()
	reading := model.Reading{
		DeviceID:    in.deviceID,
		FarmID:      farmID,
		MothCount:   in.mothCount,
		Temperature: in.temperature,
		DegreeDays:  in.degreeDays,
		CapturedAt:  now,
	}
	state := model.AlertState{
		FarmID:           farmID,
		Level:            level,
		LastMothCount:    in.mothCount,
		LastTemperature:  in.temperature,
		LastLarvaDensity: in.larvaDensity,
		LastUpdated:      now,
	}

	// Durable history and live alert are independent best-effort targets.
	p.bestEffort("reading append", func() error {
		return p.readings.Append(ctx, reading)
	})
	p.bestEffort("alert upsert", func() error {
		return p.alerts.Upsert(ctx, state)
	})
	p.cache.PutAlert(state)

	if level == model.LevelRed && p.notifier != nil {
		if p.bestEffort("red notification", func() error {
			return p.notifier.Notify(ctx, farmID, level)
		}) {
			notifications.WithLabelValues("ok").Inc()
		} else {
			notifications.WithLabelValues("error").Inc()
		}
	}

	p.fanOut(model.TrapEvent{
		ID:        uuid.NewString(),
		Type:      model.EventAlert,
		DeviceID:  in.deviceID,
		FarmID:    farmID,
		Data:      alertEventData{Level: level, Reading: reading},
		Timestamp: now,
	})
	ingestMessages.WithLabelValues(outcomeOK).Inc()

	p.logger.Info("reading ingested",
		zap.String("device_id", in.deviceID),
		zap.String("farm_id", farmID),
		zap.Int("moth_count", in.mothCount),
		zap.String("alert_level", string(level)),
		zap.Bool("device_classified", in.hasLevel))
}

// fanOut delivers the event to connected dashboard sessions and re-publishes
// it on the live alert topic for external subscribers.
func (p *Pipeline) fanOut(evt model.TrapEvent) {
	if p.hub != nil {
		p.hub.Broadcast(evt)
	}
	if p.publisher != nil && evt.FarmID != "" {
		b, err := json.Marshal(evt)
		if err != nil {
			p.logger.Error("fan-out marshal", zap.Error(err))
			return
		}
		topic := strings.Replace(p.alertTopic, "{farm}", evt.FarmID, 1)
		p.bestEffort("alert republish", func() error {
			return p.publisher.PublishTo(topic, string(b))
		})
	}
}

// bestEffort runs one collaborator call in its own error boundary:
// log-and-continue, never abort the rest of the message.
func (p *Pipeline) bestEffort(op string, fn func() error) bool {
	if err := fn(); err != nil {
		p.logger.Error("best-effort call failed", zap.String("op", op), zap.Error(err))
		return false
	}
	return true
}
