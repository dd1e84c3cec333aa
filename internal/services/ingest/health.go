package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

type healthHandler struct {
	bridge *Bridge
	pg     *pgxpool.Pool
	influx influxdb2.Client
	hub    *Hub
}

func NewHealthHandler(b *Bridge, pg *pgxpool.Pool, i influxdb2.Client, hub *Hub) http.Handler {
	return &healthHandler{bridge: b, pg: pg, influx: i, hub: hub}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Status        string `json:"status"`
		BridgeState   string `json:"bridge_state"`
		MQTTConnected bool   `json:"mqtt_connected"`
		PostgresOK    bool   `json:"postgres_ok"`
		InfluxOK      bool   `json:"influx_ok"`
		LiveSessions  int    `json:"live_sessions"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	influxOK := false
	if h.influx != nil {
		up, err := h.influx.Ping(ctx)
		influxOK = up && err == nil
	}

	st := status{
		BridgeState:   h.bridge.State().String(),
		MQTTConnected: h.bridge.Connected(),
		PostgresOK:    h.pg != nil && h.pg.Ping(ctx) == nil,
		InfluxOK:      influxOK,
		LiveSessions:  h.hub.Sessions(),
	}

	switch {
	case st.MQTTConnected && st.PostgresOK && st.InfluxOK:
		st.Status = "ok"
	case st.MQTTConnected || st.PostgresOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// readyHandler returns 200 only when every dependency is usable.
type readyHandler struct {
	bridge *Bridge
	pg     *pgxpool.Pool
}

func NewReadyHandler(b *Bridge, pg *pgxpool.Pool) http.Handler {
	return &readyHandler{bridge: b, pg: pg}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := h.bridge.Connected() && h.pg != nil && h.pg.Ping(ctx) == nil
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Header().Set("Content-Type", "application/json")
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
