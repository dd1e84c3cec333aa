package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

func TestStateCachePutAndGet(t *testing.T) {
	c := NewStateCache()

	_, ok := c.Alert("farm-1")
	assert.False(t, ok)

	st := model.AlertState{FarmID: "farm-1", Level: model.LevelYellow, LastMothCount: 12}
	c.PutAlert(st)

	got, ok := c.Alert("farm-1")
	require.True(t, ok)
	assert.Equal(t, st, got)

	// replacement, not merge
	c.PutAlert(model.AlertState{FarmID: "farm-1", Level: model.LevelGreen})
	got, _ = c.Alert("farm-1")
	assert.Equal(t, model.LevelGreen, got.Level)
	assert.Equal(t, 0, got.LastMothCount)
}

func TestStateCacheSnapshotSorted(t *testing.T) {
	c := NewStateCache()
	c.PutAlert(model.AlertState{FarmID: "farm-b"})
	c.PutAlert(model.AlertState{FarmID: "farm-a"})
	c.PutAlert(model.AlertState{FarmID: "farm-c"})
	c.PutLocation(model.FarmLocation{FarmID: "farm-z", Latitude: 1})
	c.PutLocation(model.FarmLocation{FarmID: "farm-a", Latitude: 2})

	snap := c.Snapshot()
	require.Len(t, snap.Alerts, 3)
	assert.Equal(t, "farm-a", snap.Alerts[0].FarmID)
	assert.Equal(t, "farm-b", snap.Alerts[1].FarmID)
	assert.Equal(t, "farm-c", snap.Alerts[2].FarmID)

	require.Len(t, snap.Locations, 2)
	assert.Equal(t, "farm-a", snap.Locations[0].FarmID)
	assert.Equal(t, "farm-z", snap.Locations[1].FarmID)
}

func TestStateCacheConcurrentWriters(t *testing.T) {
	c := NewStateCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.PutAlert(model.AlertState{
					FarmID:      "farm-1",
					Level:       model.LevelRed,
					LastUpdated: time.Now(),
				})
				c.Snapshot()
			}
		}()
	}
	wg.Wait()

	_, ok := c.Alert("farm-1")
	assert.True(t, ok)
}
