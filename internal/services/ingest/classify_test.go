package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

func TestLevelFromStatusCode(t *testing.T) {
	assert.Equal(t, model.LevelGreen, LevelFromStatusCode(1))
	assert.Equal(t, model.LevelYellow, LevelFromStatusCode(2))
	assert.Equal(t, model.LevelRed, LevelFromStatusCode(3))

	// fail-safe default for out-of-contract codes
	assert.Equal(t, model.LevelGreen, LevelFromStatusCode(0))
	assert.Equal(t, model.LevelGreen, LevelFromStatusCode(4))
	assert.Equal(t, model.LevelGreen, LevelFromStatusCode(-7))
}

func TestLevelFromLabel(t *testing.T) {
	cases := []struct {
		label string
		want  model.AlertLevel
		ok    bool
	}{
		{"red", model.LevelRed, true},
		{"ALERT: RED zone", model.LevelRed, true},
		{"yellow", model.LevelYellow, true},
		{"Status-Yellow-42", model.LevelYellow, true},
		{"all green here", model.LevelGreen, true},
		// red wins when several labels appear
		{"green going red", model.LevelRed, true},
		{"", "", false},
		{"orange", "", false},
	}
	for _, tc := range cases {
		got, ok := LevelFromLabel(tc.label)
		assert.Equal(t, tc.ok, ok, "label %q", tc.label)
		assert.Equal(t, tc.want, got, "label %q", tc.label)
	}
}

func TestClassifyCountThresholds(t *testing.T) {
	c := NewClassifier(0, 0) // defaults: red >= 20, yellow >= 10

	assert.Equal(t, model.LevelGreen, c.ClassifyCount(0))
	assert.Equal(t, model.LevelGreen, c.ClassifyCount(9))
	assert.Equal(t, model.LevelYellow, c.ClassifyCount(10))
	assert.Equal(t, model.LevelYellow, c.ClassifyCount(15))
	assert.Equal(t, model.LevelYellow, c.ClassifyCount(19))
	assert.Equal(t, model.LevelRed, c.ClassifyCount(20))
	assert.Equal(t, model.LevelRed, c.ClassifyCount(500))
}

func TestClassifyCountCustomThresholds(t *testing.T) {
	c := NewClassifier(50, 25)
	assert.Equal(t, model.LevelGreen, c.ClassifyCount(24))
	assert.Equal(t, model.LevelYellow, c.ClassifyCount(25))
	assert.Equal(t, model.LevelRed, c.ClassifyCount(50))
}
