package entities

import "time"

// Reading is one immutable trap observation. CapturedAt is assigned by the
// server at ingestion time; devices have no clock authority.
type Reading struct {
	DeviceID    string    `json:"device_id"`
	FarmID      string    `json:"farm_id"`
	MothCount   int       `json:"moth_count"`
	Temperature float64   `json:"temperature"`
	DegreeDays  *float64  `json:"degree_days,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}
