package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const legacyBodyLimit = 1 << 20 // 1 MiB

// queryParams for the readings endpoint, clamped like the teacher services do
// for anything coming off the query string.
type queryParams struct {
	Minutes int
	Limit   int
}

func parseQuery(r *http.Request, defMin, defLim int) queryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return queryParams{
		Minutes: get("minutes", defMin, 1, 7*24*60),
		Limit:   get("limit", defLim, 1, 500),
	}
}

// NewHTTPMux exposes the service surface: the dashboard snapshot and stream,
// the recent-readings query, the legacy ingestion webhook, health and
// metrics.
func NewHTTPMux(pl *Pipeline, cache *StateCache, readings *InfluxReadingStore, hub *Hub, bridge *Bridge, health http.Handler, ready http.Handler, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", health)
	mux.Handle("/readyz", ready)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", hub)

	// GET /alerts/latest — current alert per farm, from the live cache.
	mux.HandleFunc("/alerts/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cache.Snapshot())
	})

	// GET /readings/latest?minutes=&limit= — recent readings from history.
	mux.HandleFunc("/readings/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p := parseQuery(r, 60*24, 50)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := readings.QueryLatest(ctx, p.Minutes, p.Limit)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			logger.Warn("readings query failed", zap.Error(err))
			w.Header().Set("X-Error", "history-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode(list)
	})

	// POST /ingest/legacy — the webhook twin of the legacy aggregate topic.
	// The body goes through the exact same codec and pipeline path.
	mux.HandleFunc("/ingest/legacy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, legacyBodyLimit))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		pl.HandleMessage(r.Context(), LegacyAggregateTopic, body)
		// fire-and-forget like the broker path: accepted, outcome in logs
		w.WriteHeader(http.StatusAccepted)
	})

	// POST /ingest/inject?topic=… — operator path to simulate an inbound
	// broker message through the bridge's synthetic injection hook.
	mux.HandleFunc("/ingest/inject", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		topic := strings.TrimSpace(r.URL.Query().Get("topic"))
		if topic == "" {
			http.Error(w, "topic query parameter required", http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, legacyBodyLimit))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		bridge.Inject(topic, body)
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}
