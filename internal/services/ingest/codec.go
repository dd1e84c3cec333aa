package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

// Topic contract for topic-routed CSV payloads:
//
//	ladybug/<device_id>/status    "moth_count,temperature,status_code"
//	ladybug/<device_id>/location  "latitude,longitude"
//
// Legacy firmware instead publishes a structured JSON record on the aggregate
// topic (or the HTTP webhook), decoded by DecodeLegacy.
const (
	TopicNamespace       = "ladybug"
	LegacyAggregateTopic = "trapdata"

	topicSuffixStatus   = "status"
	topicSuffixLocation = "location"
)

var (
	ErrMalformedTopic     = errors.New("malformed topic")
	ErrUnknownMessageKind = errors.New("unknown message kind")
)

// MalformedPayloadError reports a payload that failed the strict CSV or JSON
// contract. The whole message is rejected; there is no partial accept.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return "malformed payload: " + e.Reason
}

func malformed(format string, args ...interface{}) error {
	return &MalformedPayloadError{Reason: fmt.Sprintf(format, args...)}
}

// Decode routes a raw (topic, payload) pair to the right parser. It is pure:
// no I/O, no logging, never panics.
func Decode(topic string, payload []byte) (model.Message, error) {
	if topic == LegacyAggregateTopic {
		return DecodeLegacy(payload)
	}
	return DecodeTopicMessage(topic, payload)
}

// DecodeTopicMessage parses a topic-routed CSV message. The topic must be
// exactly three /-separated segments with the fixed namespace first and the
// message kind last.
func DecodeTopicMessage(topic string, payload []byte) (model.Message, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicNamespace || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	deviceID := parts[1]

	switch parts[2] {
	case topicSuffixStatus:
		return decodeStatusCSV(deviceID, payload)
	case topicSuffixLocation:
		return decodeLocationCSV(deviceID, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageKind, topic)
	}
}

func decodeStatusCSV(deviceID string, payload []byte) (model.Message, error) {
	fields := splitCSV(payload)
	if len(fields) != 3 {
		return nil, malformed("status wants 3 fields, got %d", len(fields))
	}
	mothCount, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, malformed("moth_count %q: not an integer", fields[0])
	}
	if mothCount < 0 {
		return nil, malformed("moth_count %d: negative", mothCount)
	}
	temperature, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, malformed("temperature %q: not a number", fields[1])
	}
	statusCode, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, malformed("status_code %q: not an integer", fields[2])
	}
	return model.StatusMessage{
		DeviceID:    deviceID,
		MothCount:   mothCount,
		Temperature: temperature,
		StatusCode:  statusCode,
	}, nil
}

func decodeLocationCSV(deviceID string, payload []byte) (model.Message, error) {
	fields := splitCSV(payload)
	if len(fields) != 2 {
		return nil, malformed("location wants 2 fields, got %d", len(fields))
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, malformed("latitude %q: not a number", fields[0])
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, malformed("longitude %q: not a number", fields[1])
	}
	return model.LocationMessage{
		DeviceID:  deviceID,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

func splitCSV(payload []byte) []string {
	parts := strings.Split(string(payload), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// legacyPayload mirrors the historical JSON record with all of its optional
// field aliases. Pointers keep absent/null distinguishable from zero.
type legacyPayload struct {
	DeviceID           string   `json:"device_id"`
	MothCount          *int     `json:"moth_count"`
	TemperatureC       *float64 `json:"temperature_c"`
	Temperature        *float64 `json:"temperature"`
	ComputedDegreeDays *float64 `json:"computed_degree_days"`
	DegreeDays         *float64 `json:"degree_days"`
	LarvaDensity       *float64 `json:"larva_density"`
	ComputedStatus     string   `json:"computed_status"`
}

// DecodeLegacy parses the legacy structured payload. device_id is required;
// everything else is optional with alias resolution (first non-null wins).
func DecodeLegacy(payload []byte) (model.Message, error) {
	var raw legacyPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, malformed("legacy record: %v", err)
	}
	if strings.TrimSpace(raw.DeviceID) == "" {
		return nil, malformed("legacy record: missing device_id")
	}

	msg := model.LegacyMessage{
		DeviceID:     raw.DeviceID,
		MothCount:    intOrZero(raw.MothCount),
		Temperature:  floatOrZero(firstFloat(raw.TemperatureC, raw.Temperature)),
		DegreeDays:   firstFloat(raw.ComputedDegreeDays, raw.DegreeDays),
		LarvaDensity: raw.LarvaDensity,
	}
	if lvl, ok := LevelFromLabel(raw.ComputedStatus); ok {
		msg.Status = lvl
		msg.HasStatus = true
	}
	if msg.MothCount < 0 {
		return nil, malformed("legacy record: negative moth_count %d", msg.MothCount)
	}
	return msg, nil
}

// firstFloat resolves a field-alias chain: first non-nil pointer wins.
func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
