package messages

// StatusMessage is a topic-routed CSV status reading. StatusCode is the
// device-assigned classification (1 green, 2 yellow, 3 red) and is trusted
// as-is downstream.
type StatusMessage struct {
	DeviceID    string
	MothCount   int
	Temperature float64
	StatusCode  int
}

func (StatusMessage) Kind() MessageKind { return KindStatus }
