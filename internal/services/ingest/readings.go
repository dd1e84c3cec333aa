package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

// ReadingStore appends immutable readings to the durable per-device history.
// Append is best-effort from the pipeline's point of view: a failure is
// logged and must not block the live alert update.
type ReadingStore interface {
	Append(ctx context.Context, r model.Reading) error
}

const readingMeasurement = "trap_reading"

// InfluxReadingStore writes one point per reading, tagged by device and farm,
// and serves the recent-readings query for the HTTP surface.
type InfluxReadingStore struct {
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
}

func NewInfluxReadingStore(client influxdb2.Client, org, bucket string) (*InfluxReadingStore, error) {
	if org == "" || bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	return &InfluxReadingStore{
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
	}, nil
}

func (s *InfluxReadingStore) Append(ctx context.Context, r model.Reading) error {
	tags := map[string]string{
		"device_id": r.DeviceID,
		"farm_id":   r.FarmID,
	}
	fields := map[string]interface{}{
		"moth_count":  int64(r.MothCount),
		"temperature": r.Temperature,
	}
	if r.DegreeDays != nil {
		fields["degree_days"] = *r.DegreeDays
	}

	point := influxdb2.NewPoint(readingMeasurement, tags, fields, r.CapturedAt)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("reading append %s: %w", r.DeviceID, err)
	}
	return nil
}

func buildReadingsFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> keep(columns: ["_time","device_id","farm_id","moth_count","temperature","degree_days"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, readingMeasurement, limit)
}

// QueryLatest returns the most recent readings within the window, newest
// first.
func (s *InfluxReadingStore) QueryLatest(ctx context.Context, minutes, limit int) ([]model.Reading, error) {
	res, err := s.queryAPI.Query(ctx, buildReadingsFlux(s.bucket, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("readings query: %w", err)
	}
	defer func() { _ = res.Close() }()

	out := make([]model.Reading, 0, limit)
	for res.Next() {
		rec := res.Record()
		r := model.Reading{CapturedAt: rec.Time().UTC()}
		if v, ok := rec.ValueByKey("device_id").(string); ok {
			r.DeviceID = v
		}
		if v, ok := rec.ValueByKey("farm_id").(string); ok {
			r.FarmID = v
		}
		r.MothCount = int(asFloat(rec.ValueByKey("moth_count")))
		r.Temperature = asFloat(rec.ValueByKey("temperature"))
		if v := rec.ValueByKey("degree_days"); v != nil {
			dd := asFloat(v)
			r.DegreeDays = &dd
		}
		out = append(out, r)
	}
	if res.Err() != nil {
		return out, fmt.Errorf("readings iter: %w", res.Err())
	}
	return out, nil
}

func asFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}
