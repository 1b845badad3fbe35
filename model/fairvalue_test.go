package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFairValueStaysInBounds(t *testing.T) {
	spots := []float64{100, 50_000, 100_000, 250_000}
	strikes := []float64{99_000, 100_000, 101_000}
	vols := []float64{0.05, 0.5, 1.0, 3.0}
	minutes := []float64{0, 0.5, 2, 15, 59}

	for _, s := range spots {
		for _, k := range strikes {
			for _, v := range vols {
				for _, m := range minutes {
					fv := FairValue(s, k, v, m)
					assert.GreaterOrEqual(t, fv, 0.01, "spot=%v strike=%v vol=%v min=%v", s, k, v, m)
					assert.LessOrEqual(t, fv, 0.99, "spot=%v strike=%v vol=%v min=%v", s, k, v, m)
				}
			}
		}
	}
}

func TestFairValueMonotonicInSpot(t *testing.T) {
	prev := 0.0
	for spot := 99_000.0; spot <= 101_000; spot += 50 {
		fv := FairValue(spot, 100_000, 0.8, 30)
		assert.GreaterOrEqual(t, fv, prev, "fair value dropped as spot rose at %v", spot)
		prev = fv
	}
}

func TestFairValueAtTheMoney(t *testing.T) {
	// At the strike with the settlement boost inactive the model should sit
	// right on a coin flip.
	fv := FairValue(100_000, 100_000, 0.8, 30)
	assert.InDelta(t, 0.5, fv, 1e-6)
}

func TestFairValueGuards(t *testing.T) {
	assert.Equal(t, 0.5, FairValue(0, 100_000, 0.8, 30))
	assert.Equal(t, 0.5, FairValue(-5, 100_000, 0.8, 30))
	assert.Equal(t, 0.5, FairValue(100_000, 100_000, 0, 30))
	assert.Equal(t, 0.5, FairValue(100_000, 100_000, -1, 30))
}

func TestFairValueInTheMoneyScenario(t *testing.T) {
	// $500 above strike, 0.8% hourly vol, 30 minutes out: comfortably ITM.
	fv := FairValue(100_000, 99_500, 0.8, 30)
	assert.Greater(t, fv, 0.5)
	assert.Less(t, fv, 0.99)
}

func TestSettlementAveragingBoost(t *testing.T) {
	// Same distance from strike, the near-expiry value should be more
	// confident than the plain CDF output once averaging dominates.
	base := FairValue(100_200, 100_000, 0.8, 2.01)
	boosted := FairValue(100_200, 100_000, 0.8, 1)
	assert.Greater(t, boosted, base)

	baseLow := FairValue(99_800, 100_000, 0.8, 2.01)
	boostedLow := FairValue(99_800, 100_000, 0.8, 1)
	assert.Less(t, boostedLow, baseLow)
}

func TestZeroMinutesDoesNotCollapse(t *testing.T) {
	// Time factor floors at 30 seconds, so even at 0 minutes a position a
	// hair from the strike is not modeled as certain.
	fv := FairValue(100_001, 100_000, 0.8, 0)
	assert.Less(t, fv, 0.99)
	assert.Greater(t, fv, 0.5)
}

func TestNormCDFKnownValues(t *testing.T) {
	assert.InDelta(t, 0.5, normCDF(0), 1e-7)
	assert.InDelta(t, 0.8413447, normCDF(1), 1e-6)
	assert.InDelta(t, 0.1586553, normCDF(-1), 1e-6)
	assert.InDelta(t, 0.9772499, normCDF(2), 1e-6)
	assert.InDelta(t, 0.9986501, normCDF(3), 1e-6)
}
