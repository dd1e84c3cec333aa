package ingest

import (
	"strings"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

// Server-side fallback thresholds, applied only when the device did not
// classify the reading itself.
const (
	DefaultRedThreshold    = 20
	DefaultYellowThreshold = 10
)

// LevelFromStatusCode maps the device-assigned status code (1/2/3) to an
// alert level. Anything outside the contract falls back to green rather than
// rejecting the reading.
func LevelFromStatusCode(code int) model.AlertLevel {
	switch code {
	case 3:
		return model.LevelRed
	case 2:
		return model.LevelYellow
	default:
		return model.LevelGreen
	}
}

// LevelFromLabel substring-matches a free-text precomputed status,
// case-insensitively, red before yellow before green. ok is false when no
// label matched, which means the server must classify by count.
func LevelFromLabel(label string) (model.AlertLevel, bool) {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "red"):
		return model.LevelRed, true
	case strings.Contains(l, "yellow"):
		return model.LevelYellow, true
	case strings.Contains(l, "green"):
		return model.LevelGreen, true
	}
	return "", false
}

// Classifier applies the moth-count thresholds. Edge devices that already
// classified locally bypass it entirely: the server trusts the hardware label
// and never second-guesses it.
type Classifier struct {
	redAt    int
	yellowAt int
}

func NewClassifier(redAt, yellowAt int) *Classifier {
	if redAt <= 0 {
		redAt = DefaultRedThreshold
	}
	if yellowAt <= 0 {
		yellowAt = DefaultYellowThreshold
	}
	return &Classifier{redAt: redAt, yellowAt: yellowAt}
}

// ClassifyCount maps a raw moth count to a level: >= redAt red,
// >= yellowAt yellow, otherwise green.
func (c *Classifier) ClassifyCount(mothCount int) model.AlertLevel {
	switch {
	case mothCount >= c.redAt:
		return model.LevelRed
	case mothCount >= c.yellowAt:
		return model.LevelYellow
	default:
		return model.LevelGreen
	}
}
