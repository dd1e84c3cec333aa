package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

// AlertStore persists the single live alert record per farm and the farm's
// last reported trap position.
type AlertStore interface {
	Upsert(ctx context.Context, state model.AlertState) error
	UpdateFarmLocation(ctx context.Context, loc model.FarmLocation) error
}

// PostgresAlertStore backs AlertStore with the farms schema. The upsert is a
// single conditional statement so concurrent readings for the same farm never
// interleave a read-modify-write.
type PostgresAlertStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAlertStore(pool *pgxpool.Pool) *PostgresAlertStore {
	return &PostgresAlertStore{pool: pool}
}

// Upsert replaces all fields on conflict: last arrival wins, no timestamp
// comparison. Exactly one row per farm that has ever received a reading.
func (s *PostgresAlertStore) Upsert(ctx context.Context, st model.AlertState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO farm_alerts (farm_id, alert_level, last_moth_count, last_temperature, last_larva_density, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (farm_id) DO UPDATE SET
			alert_level        = EXCLUDED.alert_level,
			last_moth_count    = EXCLUDED.last_moth_count,
			last_temperature   = EXCLUDED.last_temperature,
			last_larva_density = EXCLUDED.last_larva_density,
			last_updated       = EXCLUDED.last_updated`,
		st.FarmID, string(st.Level), st.LastMothCount, st.LastTemperature, st.LastLarvaDensity, st.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("alert upsert farm %s: %w", st.FarmID, err)
	}
	return nil
}

func (s *PostgresAlertStore) UpdateFarmLocation(ctx context.Context, loc model.FarmLocation) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE farms SET latitude = $2, longitude = $3, location_updated = $4
		WHERE id = $1`,
		loc.FarmID, loc.Latitude, loc.Longitude, loc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("farm location update %s: %w", loc.FarmID, err)
	}
	return nil
}

// StateCache is the in-memory view of the latest alert and location per farm.
// It feeds the snapshot sent to every newly connected dashboard session and
// the /alerts/latest endpoint. Injected into the pipeline, never ambient.
type StateCache struct {
	mu        sync.RWMutex
	alerts    map[string]model.AlertState
	locations map[string]model.FarmLocation
}

func NewStateCache() *StateCache {
	return &StateCache{
		alerts:    make(map[string]model.AlertState),
		locations: make(map[string]model.FarmLocation),
	}
}

func (c *StateCache) PutAlert(st model.AlertState) {
	c.mu.Lock()
	c.alerts[st.FarmID] = st
	c.mu.Unlock()
}

func (c *StateCache) PutLocation(loc model.FarmLocation) {
	c.mu.Lock()
	c.locations[loc.FarmID] = loc
	c.mu.Unlock()
}

func (c *StateCache) Alert(farmID string) (model.AlertState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.alerts[farmID]
	return st, ok
}

// Snapshot is the full known state, alerts and locations sorted by farm id.
type Snapshot struct {
	Alerts    []model.AlertState   `json:"alerts"`
	Locations []model.FarmLocation `json:"locations"`
}

func (c *StateCache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Alerts:    make([]model.AlertState, 0, len(c.alerts)),
		Locations: make([]model.FarmLocation, 0, len(c.locations)),
	}
	for _, st := range c.alerts {
		snap.Alerts = append(snap.Alerts, st)
	}
	for _, loc := range c.locations {
		snap.Locations = append(snap.Locations, loc)
	}
	sort.Slice(snap.Alerts, func(i, j int) bool { return snap.Alerts[i].FarmID < snap.Alerts[j].FarmID })
	sort.Slice(snap.Locations, func(i, j int) bool { return snap.Locations[i].FarmID < snap.Locations[j].FarmID })
	return snap
}
