package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ladybugteam/ladybug-backend/internal/model"
	"github.com/ladybugteam/ladybug-backend/pkg/dedup"
)

// Notifier delivers red-alert notifications to the external alerting
// collaborator (email service). Fire-and-forget: callers log a failure and
// move on, the ingestion that triggered it is never rolled back.
type Notifier interface {
	Notify(ctx context.Context, farmID string, level model.AlertLevel) error
}

// WebhookNotifier posts to the alert-service webhook. Calls run through a
// circuit breaker so a dead collaborator cannot stall the pipeline, and a TTL
// throttle so a farm staying red does not re-send on every reading.
type WebhookNotifier struct {
	url      string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	throttle *dedup.Deduper
}

func NewWebhookNotifier(url string, timeout, throttleTTL time.Duration) *WebhookNotifier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notifier",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &WebhookNotifier{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		breaker:  cb,
		throttle: dedup.New(throttleTTL, 20000),
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, farmID string, level model.AlertLevel) error {
	key := farmID + "|" + string(level)
	if n.throttle.Seen(key) {
		return nil
	}
	_, err := n.breaker.Execute(func() (interface{}, error) {
		body, _ := json.Marshal(map[string]string{
			"farm_id":     farmID,
			"alert_level": string(level),
		})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, fmt.Errorf("notify farm %s -> %s", farmID, res.Status)
		}
		return nil, nil
	})
	if err != nil {
		// only a delivered notification arms the throttle; a failed post
		// must stay retryable on the next red reading
		return err
	}
	n.throttle.Mark(key)
	return nil
}
