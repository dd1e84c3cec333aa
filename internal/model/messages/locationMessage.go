package messages

// LocationMessage is a topic-routed CSV position update for a trap.
type LocationMessage struct {
	DeviceID  string
	Latitude  float64
	Longitude float64
}

func (LocationMessage) Kind() MessageKind { return KindLocation }
