package messages

import "github.com/ladybugteam/ladybug-backend/internal/model/entities"

// LegacyMessage is the structured aggregate-topic/webhook payload used by
// older firmware. Field aliases are already resolved by the codec. When the
// device classified the reading itself, HasStatus is true and Status carries
// the trusted level; otherwise the server classifies by moth count.
type LegacyMessage struct {
	DeviceID     string
	MothCount    int
	Temperature  float64
	DegreeDays   *float64
	LarvaDensity *float64
	Status       entities.AlertLevel
	HasStatus    bool
}

func (LegacyMessage) Kind() MessageKind { return KindLegacy }
