package trap_simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ladybugteam/ladybug-backend/internal/services/ingest"
)

// ====== Tunables ======
const (
	// catchLambda: mean new captures per tick; the trap only accumulates.
	catchLambda = 1.2

	// emptyAfter: a field technician empties the trap roughly this often.
	emptyAfter = 6 * time.Hour

	// temperature daily swing around the base, degrees C.
	tempBase  = 24.0
	tempSwing = 8.0
)

// Observation is one simulated tick: the CSV fields of a status payload.
type Observation struct {
	MothCount   int
	Temperature float64
	StatusCode  int
}

// DataGenerator keeps the trap's internal state between ticks: moth counts
// accumulate until the virtual technician empties the trap, temperature
// follows a sinusoidal day cycle with noise.
type DataGenerator struct {
	mu          sync.Mutex
	mothCount   int
	lastEmptied time.Time
	rng         *rand.Rand
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		lastEmptied: time.Now().UTC(),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Next advances the simulation one tick and returns the observation. The
// status code mirrors what real trap firmware computes locally from the same
// thresholds the server would apply.
func (g *DataGenerator) Next() Observation {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	if now.Sub(g.lastEmptied) > emptyAfter {
		g.mothCount = 0
		g.lastEmptied = now
	}

	g.mothCount += g.poisson(catchLambda)

	hour := float64(now.Hour()) + float64(now.Minute())/60
	temp := tempBase + tempSwing*math.Sin((hour-9)/24*2*math.Pi) + g.rng.NormFloat64()

	code := 1
	switch {
	case g.mothCount >= ingest.DefaultRedThreshold:
		code = 3
	case g.mothCount >= ingest.DefaultYellowThreshold:
		code = 2
	}

	return Observation{
		MothCount:   g.mothCount,
		Temperature: math.Round(temp*10) / 10,
		StatusCode:  code,
	}
}

// poisson draws a small Poisson count (Knuth), fine for lambda this low.
func (g *DataGenerator) poisson(lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= g.rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
