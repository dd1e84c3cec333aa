package ingest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHealthReportsEverythingDown(t *testing.T) {
	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())
	hub := NewHub(f.cache, zap.NewNop())

	rec := httptest.NewRecorder()
	NewHealthHandler(b, nil, nil, hub).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `"status":"down"`)
	assert.Contains(t, body, `"mqtt_connected":false`)
	assert.Contains(t, body, `"postgres_ok":false`)
	assert.Contains(t, body, `"influx_ok":false`)
}

func TestHealthPingsInflux(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())
	hub := NewHub(f.cache, zap.NewNop())
	client := influxdb2.NewClient(srv.URL, "")
	defer client.Close()

	rec := httptest.NewRecorder()
	NewHealthHandler(b, nil, client, hub).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, rec.Body.String(), `"influx_ok":true`)
}

func TestHealthInfluxUnreachableIsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // nothing listening anymore

	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())
	hub := NewHub(f.cache, zap.NewNop())
	client := influxdb2.NewClient(srv.URL, "")
	defer client.Close()

	rec := httptest.NewRecorder()
	NewHealthHandler(b, nil, client, hub).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, rec.Body.String(), `"influx_ok":false`)
}

func TestReadyRequiresBrokerAndDatabase(t *testing.T) {
	f := newFixture(t)
	b := NewBridge(nil, nil, f.pipeline, zap.NewNop())

	rec := httptest.NewRecorder()
	NewReadyHandler(b, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":false`)
}
