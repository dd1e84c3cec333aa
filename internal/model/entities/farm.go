package entities

import "time"

// FarmLocation is the last reported position of a farm's trap. Overwritten on
// every location message, last writer wins.
type FarmLocation struct {
	FarmID    string    `json:"farm_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}
