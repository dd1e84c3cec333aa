package messages

import "time"

// Event types fanned out to live dashboard sessions.
const (
	EventAlert    = "alert"
	EventLocation = "location"
	EventSnapshot = "snapshot"
)

// TrapEvent is the envelope delivered to every connected dashboard session
// and re-published on the live alert topic.
type TrapEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	DeviceID  string      `json:"device_id,omitempty"`
	FarmID    string      `json:"farm_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
