package entities

import "time"

// AlertLevel is the ordered pest-risk classification: green < yellow < red.
type AlertLevel string

const (
	LevelGreen  AlertLevel = "green"
	LevelYellow AlertLevel = "yellow"
	LevelRed    AlertLevel = "red"
)

// AlertState is the single live alert record for a farm. It is re-derived on
// every reading and can move in either direction; it mirrors the fields of the
// most recent reading that produced it.
type AlertState struct {
	FarmID           string     `json:"farm_id"`
	Level            AlertLevel `json:"alert_level"`
	LastMothCount    int        `json:"last_moth_count"`
	LastTemperature  float64    `json:"last_temperature"`
	LastLarvaDensity *float64   `json:"last_larva_density,omitempty"`
	LastUpdated      time.Time  `json:"last_updated"`
}
